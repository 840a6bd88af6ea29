package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the event journal to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the monitor writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.Named("recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id  TEXT NOT NULL,
			started_at  INTEGER NOT NULL,
			ended_at    INTEGER NOT NULL,
			duration_s  REAL,
			liters      REAL,
			cost        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended ON sessions(ended_at)`,

		`CREATE TABLE IF NOT EXISTS leak_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			event_type  TEXT NOT NULL,
			session_id  TEXT,
			flow_l_min  REAL,
			duration_s  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leak_ts ON leak_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSession(rec *SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO sessions
		(session_id, started_at, ended_at, duration_s, liters, cost)
		VALUES (?,?,?,?,?,?)`,
		rec.SessionID, rec.StartedAt.Unix(), rec.EndedAt.Unix(),
		rec.EndedAt.Sub(rec.StartedAt).Seconds(), rec.Liters, rec.Cost,
	)
	return err
}

func (r *SQLiteRecorder) RecordLeak(rec *LeakRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO leak_events
		(timestamp, event_type, session_id, flow_l_min, duration_s)
		VALUES (?,?,?,?,?)`,
		rec.At.Unix(), rec.EventType, rec.SessionID, rec.Flow, rec.Duration.Seconds(),
	)
	return err
}

// LeakCountSince returns how many leaks were raised since t.
func (r *SQLiteRecorder) LeakCountSince(t time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM leak_events WHERE event_type = 'LEAK_DETECTED' AND timestamp >= ?`,
		t.Unix()).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
