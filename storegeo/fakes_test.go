package storegeo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB is an in-memory stand-in for the target table and its connection pool.
// Transactions buffer their deletes/inserts and apply them atomically on commit.
// It counts acquire/release and begin/commit/rollback so tests can check that
// every connection is returned exactly once and every tx is resolved exactly once.
type fakeDB struct {
	mu   sync.Mutex
	rows map[int64]StoreGeography

	acquires       int
	releases       int
	doubleReleases int
	begins         int
	commits        int
	rollbacks      int
	unresolvedTx   int
	inFlight       int
	maxInFlight    int
	stmts          []string

	// hold keeps a connection busy inside Begin so concurrent chunks overlap.
	hold time.Duration
	// failInsert, when set, is consulted for every insert with the keys being inserted.
	failInsert func(keys []int64) error
	// failAcquire, when set, fails Acquire.
	failAcquire error
	// failCommit, when set, fails Commit after the tx would otherwise succeed.
	failCommit error
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: make(map[int64]StoreGeography)}
}

func (db *fakeDB) seed(records []StoreGeography) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, r := range records {
		db.rows[r.Key()] = r
	}
}

func (db *fakeDB) snapshot() map[int64]StoreGeography {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make(map[int64]StoreGeography, len(db.rows))
	for k, v := range db.rows {
		out[k] = v
	}
	return out
}

func (db *fakeDB) Acquire(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.failAcquire != nil {
		return nil, db.failAcquire
	}
	db.acquires++
	db.inFlight++
	if db.inFlight > db.maxInFlight {
		db.maxInFlight = db.inFlight
	}
	return &fakeConn{db: db}, nil
}

type fakeConn struct {
	db       *fakeDB
	released bool
}

func (c *fakeConn) Begin(ctx context.Context) (Tx, error) {
	if c.db.hold > 0 {
		select {
		case <-time.After(c.db.hold):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.db.begins++
	c.db.unresolvedTx++
	return &fakeTx{db: c.db}, nil
}

func (c *fakeConn) Release() {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if c.released {
		c.db.doubleReleases++
		return
	}
	c.released = true
	c.db.releases++
	c.db.inFlight--
}

type fakeTx struct {
	db       *fakeDB
	deletes  []int64
	inserts  []StoreGeography
	stage    []StoreGeography
	resolved bool
}

func (tx *fakeTx) record(sql string) {
	tx.db.mu.Lock()
	tx.db.stmts = append(tx.db.stmts, sql)
	tx.db.mu.Unlock()
}

func (tx *fakeTx) checkInsert(rows []StoreGeography) error {
	if tx.db.failInsert == nil {
		return nil
	}
	keys := make([]int64, len(rows))
	for i, r := range rows {
		keys[i] = r.Key()
	}
	return tx.db.failInsert(keys)
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx.resolved {
		return pgconn.CommandTag{}, pgx.ErrTxClosed
	}
	if err := ctx.Err(); err != nil {
		return pgconn.CommandTag{}, err
	}
	tx.record(sql)

	switch {
	case strings.HasPrefix(sql, "CREATE TEMP TABLE"):
		return pgconn.NewCommandTag("CREATE TABLE"), nil

	case strings.HasPrefix(sql, "DELETE FROM") && strings.Contains(sql, "ANY($1)"):
		keys, ok := args[0].([]int64)
		if !ok {
			return pgconn.CommandTag{}, fmt.Errorf("unexpected key argument %T", args[0])
		}
		tx.deletes = append(tx.deletes, keys...)
		return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", len(keys))), nil

	case strings.HasPrefix(sql, "DELETE FROM") && strings.Contains(sql, " USING "):
		for _, r := range tx.stage {
			tx.deletes = append(tx.deletes, r.Key())
		}
		return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", len(tx.stage))), nil

	case strings.HasPrefix(sql, "INSERT INTO") && strings.Contains(sql, " VALUES "):
		if len(args)%len(Columns) != 0 {
			return pgconn.CommandTag{}, fmt.Errorf("got %d args, not a multiple of %d", len(args), len(Columns))
		}
		var rows []StoreGeography
		for i := 0; i < len(args); i += len(Columns) {
			rows = append(rows, recordFromValues(args[i:i+len(Columns)]))
		}
		if err := tx.checkInsert(rows); err != nil {
			return pgconn.CommandTag{}, err
		}
		tx.inserts = append(tx.inserts, rows...)
		return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", len(rows))), nil

	case strings.HasPrefix(sql, "INSERT INTO") && strings.Contains(sql, " SELECT "):
		if err := tx.checkInsert(tx.stage); err != nil {
			return pgconn.CommandTag{}, err
		}
		tx.inserts = append(tx.inserts, tx.stage...)
		return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", len(tx.stage))), nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("fake tx: unexpected statement %q", sql)
}

func (tx *fakeTx) CopyFrom(ctx context.Context, _ pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(columns) != len(Columns) {
		return 0, fmt.Errorf("fake tx: got %d columns", len(columns))
	}
	tx.record("COPY")
	var n int64
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return n, err
		}
		tx.stage = append(tx.stage, recordFromValues(values))
		n++
	}
	return n, src.Err()
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	if tx.resolved {
		return pgx.ErrTxClosed
	}
	tx.resolved = true

	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.unresolvedTx--
	if tx.db.failCommit != nil {
		tx.db.rollbacks++
		return tx.db.failCommit
	}

	// Apply on a copy so a key violation leaves the table untouched.
	next := make(map[int64]StoreGeography, len(tx.db.rows))
	for k, v := range tx.db.rows {
		next[k] = v
	}
	for _, k := range tx.deletes {
		delete(next, k)
	}
	for _, r := range tx.inserts {
		if _, exists := next[r.Key()]; exists {
			tx.db.rollbacks++
			return &pgconn.PgError{Code: "23505", Message: fmt.Sprintf("duplicate key value (STORE_NBR)=(%d)", r.Key())}
		}
		next[r.Key()] = r
	}
	tx.db.rows = next
	tx.db.commits++
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if tx.resolved {
		return pgx.ErrTxClosed
	}
	tx.resolved = true
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.unresolvedTx--
	tx.db.rollbacks++
	return nil
}

// recordFromValues is the inverse of StoreGeography.Values.
func recordFromValues(v []any) StoreGeography {
	return StoreGeography{
		StoreNbr:                 v[0].(int64),
		RetailSqFt:               v[1].(*int64),
		HR24Ind:                  v[2].(string),
		CityName:                 v[3].(string),
		StateCd:                  v[4].(string),
		ZipCd:                    v[5].(string),
		PharmacyInd:              v[6].(string),
		ActiveStoreInd:           v[7].(string),
		ClinicLinkStoreNbr:       v[8].(*int64),
		MinClinicInd:             v[9].(string),
		PrimaryDCID:              v[10].(*int64),
		WebSalePickupLocationInd: v[11].(string),
		DistrictNbr:              v[12].(*int64),
		StoreOpenDt:              v[13].(*time.Time),
		StoreCloseDt:             v[14].(*time.Time),
		AreaNbr:                  v[15].(*int64),
		RegionNbr:                v[16].(*int64),
		StreetTxt:                v[17].(string),
	}
}

func int64Ptr(v int64) *int64 { return &v }

// makeRecords builds n records with keys firstKey, firstKey+1, ... and a street
// text tagged with version so tests can tell which write won.
func makeRecords(n int, firstKey int64, version string) []StoreGeography {
	opened := time.Date(2001, 3, 15, 0, 0, 0, 0, time.UTC)
	out := make([]StoreGeography, n)
	for i := range out {
		key := firstKey + int64(i)
		out[i] = StoreGeography{
			StoreNbr:                 key,
			RetailSqFt:               int64Ptr(80000 + key%1000),
			HR24Ind:                  "N",
			CityName:                 "Springfield",
			StateCd:                  "IL",
			ZipCd:                    fmt.Sprintf("%05d", 62700+key%100),
			PharmacyInd:              "Y",
			ActiveStoreInd:           "Y",
			MinClinicInd:             "N",
			PrimaryDCID:              int64Ptr(6000 + key%10),
			WebSalePickupLocationInd: "Y",
			DistrictNbr:              int64Ptr(key % 50),
			StoreOpenDt:              &opened,
			AreaNbr:                  int64Ptr(key % 7),
			RegionNbr:                int64Ptr(key % 3),
			StreetTxt:                fmt.Sprintf("%d Main St (%s)", key, version),
		}
	}
	return out
}
