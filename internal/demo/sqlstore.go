package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/daviddao/grillgauge_viewer/internal/model"
)

// SQLStore is a HistoryStore backed by SQLite or PostgreSQL, so the demo
// history survives restarts of the demo server.
type SQLStore struct {
	db       *sqlx.DB
	capacity int
}

type readingRow struct {
	ID          int64   `db:"id"`
	ProbeID     int64   `db:"probe_id"`
	TsMillis    int64   `db:"ts_ms"`
	Temperature float64 `db:"temperature"`
}

var schemas = map[string]string{
	"sqlite": `CREATE TABLE IF NOT EXISTS demo_readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		probe_id INTEGER NOT NULL,
		ts_ms INTEGER NOT NULL,
		temperature REAL NOT NULL
	)`,
	"postgres": `CREATE TABLE IF NOT EXISTS demo_readings (
		id BIGSERIAL PRIMARY KEY,
		probe_id BIGINT NOT NULL,
		ts_ms BIGINT NOT NULL,
		temperature DOUBLE PRECISION NOT NULL
	)`,
}

const indexDDL = `CREATE INDEX IF NOT EXISTS demo_readings_probe_ts ON demo_readings (probe_id, ts_ms)`

// OpenSQLStore connects with driver ("sqlite" or "postgres") and ensures
// the schema exists.
func OpenSQLStore(driver, dsn string, capacity int) (*SQLStore, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported history driver %q", driver)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// A single connection avoids SQLITE_BUSY between the simulator
		// and request handlers.
		db.SetMaxOpenConns(1)
	}
	for _, ddl := range []string{schema, indexDDL} {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("create demo schema: %w", err)
		}
	}
	return &SQLStore{db: db, capacity: capacity}, nil
}

// Record implements HistoryStore. Readings beyond capacity are pruned,
// oldest first.
func (s *SQLStore) Record(ctx context.Context, probeID int64, r model.Reading) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	insert := s.db.Rebind(`INSERT INTO demo_readings (probe_id, ts_ms, temperature) VALUES (?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, insert, probeID, r.Timestamp.UnixMilli(), r.Temperature); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}

	prune := s.db.Rebind(`DELETE FROM demo_readings WHERE probe_id = ? AND id NOT IN (
		SELECT id FROM demo_readings WHERE probe_id = ? ORDER BY id DESC LIMIT ?)`)
	if _, err := tx.ExecContext(ctx, prune, probeID, probeID, s.capacity); err != nil {
		return fmt.Errorf("prune readings: %w", err)
	}
	return tx.Commit()
}

// Between implements HistoryStore.
func (s *SQLStore) Between(ctx context.Context, probeID int64, start, end time.Time) ([]model.Reading, error) {
	var rows []readingRow
	q := s.db.Rebind(`SELECT id, probe_id, ts_ms, temperature FROM demo_readings
		WHERE probe_id = ? AND ts_ms >= ? AND ts_ms <= ? ORDER BY ts_ms, id`)
	if err := s.db.SelectContext(ctx, &rows, q, probeID, start.UnixMilli(), end.UnixMilli()); err != nil {
		return nil, fmt.Errorf("select readings: %w", err)
	}
	out := make([]model.Reading, len(rows))
	for i, r := range rows {
		out[i] = model.Reading{ID: r.ID, Timestamp: time.UnixMilli(r.TsMillis).UTC(), Temperature: r.Temperature}
	}
	return out, nil
}

// Forget implements HistoryStore.
func (s *SQLStore) Forget(ctx context.Context, probeID int64) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM demo_readings WHERE probe_id = ?`), probeID)
	return err
}

// Close implements HistoryStore.
func (s *SQLStore) Close() error { return s.db.Close() }

// Count returns the number of stored readings for probeID.
func (s *SQLStore) Count(ctx context.Context, probeID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM demo_readings WHERE probe_id = ?`), probeID)
	return n, err
}
