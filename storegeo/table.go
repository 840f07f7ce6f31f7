// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package storegeo

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// KeyColumn is the match key for replace.
const KeyColumn = ColStoreNbr

// PostgreSQL caps a single statement at 65535 bind parameters.
const maxBindParams = 65535

// TargetTable identifies the schema-qualified table to replace rows in.
type TargetTable struct {
	Schema string `yaml:"schema"`
	Name   string `yaml:"name"`
}

// DefaultTargetTable is plappl."POG_STR_GEO".
func DefaultTargetTable() TargetTable {
	return TargetTable{Schema: "plappl", Name: "POG_STR_GEO"}
}

func (t TargetTable) String() string {
	return t.Schema + "." + t.Name
}

func (t TargetTable) validate() error {
	if !isValidIdentifier(t.Schema) {
		return fmt.Errorf("%w: invalid schema name %q", ErrInvalidConfig, t.Schema)
	}
	if !isValidIdentifier(t.Name) {
		return fmt.Errorf("%w: invalid table name %q", ErrInvalidConfig, t.Name)
	}
	return nil
}

// isValidIdentifier checks name matches ^[A-Za-z_][A-Za-z0-9_]*$ and fits NAMEDATALEN.
func isValidIdentifier(name string) bool {
	if len(name) == 0 || len(name) > 63 {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// queryBuilder renders SQL text for one target table. Only allow-listed
// identifiers ever reach the SQL text, always through pgx.Identifier sanitizing;
// row values are bound as parameters or streamed with COPY.
type queryBuilder struct {
	table   string
	columns []string
	colList string
	key     string
}

func newQueryBuilder(t TargetTable, columns []string) (*queryBuilder, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(Columns))
	for _, c := range Columns {
		allowed[c] = true
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		if !allowed[c] {
			return nil, fmt.Errorf("%w: column %q is not allowed", ErrInvalidConfig, c)
		}
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return &queryBuilder{
		table:   pgx.Identifier{t.Schema, t.Name}.Sanitize(),
		columns: columns,
		colList: strings.Join(quoted, ", "),
		key:     pgx.Identifier{KeyColumn}.Sanitize(),
	}, nil
}

// rowsPerInsert is the largest number of rows one multi-row INSERT can bind.
func (b *queryBuilder) rowsPerInsert() int {
	return maxBindParams / len(b.columns)
}

// deleteByKeys deletes target rows whose key is in the array bound to $1.
func (b *queryBuilder) deleteByKeys() string {
	return fmt.Sprintf(`DELETE FROM %s WHERE %s = ANY($1)`, b.table, b.key)
}

// insertValues renders a multi-row INSERT with rows*len(columns) placeholders.
func (b *queryBuilder) insertValues(rows int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `INSERT INTO %s (%s) VALUES `, b.table, b.colList)
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := range b.columns {
			if c > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", n)
			n++
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// createStage creates a transaction-scoped staging table shaped like the target.
func (b *queryBuilder) createStage(stage string) string {
	return fmt.Sprintf(`CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP`,
		pgx.Identifier{stage}.Sanitize(), b.table)
}

// deleteUsingStage deletes target rows matching any staged key with a set-based join.
func (b *queryBuilder) deleteUsingStage(stage string) string {
	return fmt.Sprintf(`DELETE FROM %s AS t USING %s AS s WHERE t.%s = s.%s`,
		b.table, pgx.Identifier{stage}.Sanitize(), b.key, b.key)
}

// insertFromStage copies all staged rows into the target.
func (b *queryBuilder) insertFromStage(stage string) string {
	return fmt.Sprintf(`INSERT INTO %s (%s) SELECT %s FROM %s`,
		b.table, b.colList, b.colList, pgx.Identifier{stage}.Sanitize())
}

// stageTableName is unique per process, instant and chunk so concurrent chunks
// (and concurrent loader processes sharing a server) never collide.
func stageTableName(chunkIndex int) string {
	return fmt.Sprintf("stage_store_geo_%d_%d_%d", os.Getpid(), time.Now().UnixNano(), chunkIndex)
}
