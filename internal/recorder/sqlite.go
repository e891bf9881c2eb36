package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the history endpoint read while the dashboard writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS queries (
			id         TEXT PRIMARY KEY,
			timestamp  INTEGER NOT NULL,
			ticker     TEXT,
			start_date TEXT,
			end_date   TEXT,
			bar_size   TEXT,
			col_name   TEXT,
			projection TEXT,
			row_count  INTEGER,
			forecast   REAL,
			error_msg  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_ts ON queries(timestamp)`,

		`CREATE TABLE IF NOT EXISTS snapshots (
			id         TEXT PRIMARY KEY,
			timestamp  INTEGER NOT NULL,
			ticker     TEXT,
			last_price REAL,
			forecast   REAL,
			method     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordQuery(evt *QueryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	var forecast sql.NullFloat64
	if evt.Forecast != nil {
		forecast = sql.NullFloat64{Float64: *evt.Forecast, Valid: true}
	}

	_, err := r.db.Exec(`INSERT INTO queries
		(id, timestamp, ticker, start_date, end_date, bar_size, col_name, projection, row_count, forecast, error_msg)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		evt.ID, evt.Timestamp.UnixMilli(), evt.Ticker, evt.Start, evt.End,
		evt.Interval, evt.Column, evt.Projection, evt.Rows, forecast, evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordSnapshot(snap *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}

	_, err := r.db.Exec(`INSERT INTO snapshots
		(id, timestamp, ticker, last_price, forecast, method)
		VALUES (?,?,?,?,?,?)`,
		snap.ID, snap.Timestamp.UnixMilli(), snap.Ticker,
		snap.LastPrice, snap.Forecast, snap.Method,
	)
	return err
}

// RecentQueries returns up to limit interactions, newest first.
func (r *SQLiteRecorder) RecentQueries(limit int) ([]QueryEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(`SELECT id, timestamp, ticker, start_date, end_date, bar_size,
		col_name, projection, row_count, forecast, error_msg
		FROM queries ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []QueryEvent
	for rows.Next() {
		var (
			evt      QueryEvent
			ts       int64
			forecast sql.NullFloat64
		)
		if err := rows.Scan(&evt.ID, &ts, &evt.Ticker, &evt.Start, &evt.End,
			&evt.Interval, &evt.Column, &evt.Projection, &evt.Rows,
			&forecast, &evt.Error); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		evt.Timestamp = time.UnixMilli(ts)
		if forecast.Valid {
			v := forecast.Float64
			evt.Forecast = &v
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
