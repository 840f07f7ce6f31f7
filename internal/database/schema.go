// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mobiletoly/go-storegeo/storegeo"
)

// Execer is the subset of pgxpool.Pool and pgx.Tx that EnsureTable needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnsureTable creates the schema and the store geography table if they do not
// exist yet. An existing table is left untouched.
func EnsureTable(ctx context.Context, db Execer, table storegeo.TargetTable, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	schemaIdent := pgx.Identifier{table.Schema}.Sanitize()
	tableIdent := pgx.Identifier{table.Schema, table.Name}.Sanitize()

	if _, err := db.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schemaIdent)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", table.Schema, err)
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			"STORE_NBR" BIGINT PRIMARY KEY,
			"RETAIL_SQ_FT" BIGINT,
			"HR24_IND" TEXT NOT NULL DEFAULT '',
			"CITY_NAME" TEXT NOT NULL DEFAULT '',
			"STATE_CD" TEXT NOT NULL DEFAULT '',
			"ZIP_CD" TEXT NOT NULL DEFAULT '',
			"PHARMACY_IND" TEXT NOT NULL DEFAULT '',
			"ACTIVE_STORE_IND" TEXT NOT NULL DEFAULT '',
			"CLINIC_LINK_STORE_NBR" BIGINT,
			"MIN_CLINIC_IND" TEXT NOT NULL DEFAULT '',
			"PRIMARY_DC_ID" BIGINT,
			"WEB_SALE_PICKUP_LOCATION_IND" TEXT NOT NULL DEFAULT '',
			"DISTRICT_NBR" BIGINT,
			"STORE_OPEN_DT" DATE,
			"STORE_CLOSE_DT" DATE,
			"AREA_NBR" BIGINT,
			"REGION_NBR" BIGINT,
			"STREET_TXT" TEXT NOT NULL DEFAULT ''
		)`, tableIdent)
	if _, err := db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	logger.Info("Target table ready", "table", table.String())
	return nil
}
