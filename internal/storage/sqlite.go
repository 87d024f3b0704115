package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/codewithboateng/rulescan/internal/ir"
)

var (
	ErrRunNotFound       = errors.New("run not found")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// DB is the run history backed by SQLite.
type DB struct {
	conn *sql.DB
}

// Open selects the backend named by driver. An empty driver means sqlite.
func Open(driver, dsn string) (*DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return OpenSQLite(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// OpenSQLite opens (and creates if missing) a SQLite DB at path.
func OpenSQLite(path string) (*DB, error) {
	// Pragmas via DSN keep it portable with the modernc driver.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	c, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{conn: c}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// CreateSchema ensures tables exist.
func (db *DB) CreateSchema() error {
	_, err := db.conn.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id         TEXT PRIMARY KEY,
  started_at TEXT,          -- RFC3339Nano
  rules_dir  TEXT,
  version    TEXT,
  failed     INTEGER NOT NULL DEFAULT 0,
  run_json   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS outcomes (
  run_id  TEXT NOT NULL,
  seq     INTEGER NOT NULL,
  class   TEXT NOT NULL,
  rule    TEXT NOT NULL,
  kind    TEXT NOT NULL,
  message TEXT,
  line    INTEGER,
  PRIMARY KEY (run_id, seq),
  FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_outcomes_kind ON outcomes(run_id, kind);
CREATE INDEX IF NOT EXISTS idx_outcomes_rule ON outcomes(rule);
`)
	return err
}

// SaveRun upserts a run JSON and (re)writes its outcomes.
func (db *DB) SaveRun(run *ir.Run) error {
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}
	ts := run.StartedAt.UTC().Format(time.RFC3339Nano)
	failed := 0
	if run.Summary.Failed() {
		failed = 1
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, started_at, rules_dir, version, failed, run_json)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET started_at=excluded.started_at, rules_dir=excluded.rules_dir, version=excluded.version, failed=excluded.failed, run_json=excluded.run_json`,
		run.ID, ts, run.RulesDir, run.Version, failed, string(b),
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM outcomes WHERE run_id = ?`, run.ID); err != nil {
		return err
	}
	if len(run.Outcomes) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO outcomes (run_id, seq, class, rule, kind, message, line)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, o := range run.Outcomes {
			if _, err := stmt.Exec(run.ID, i, o.Class, o.Rule, string(o.Kind), o.Message, o.Line); err != nil {
				return fmt.Errorf("outcome %d: %w", i, err)
			}
		}
	}

	return tx.Commit()
}

// LoadRun returns the full run (from stored JSON).
func (db *DB) LoadRun(id string) (ir.Run, error) {
	return db.loadOne(`SELECT run_json FROM runs WHERE id = ?`, id)
}

// LoadLatestRun returns the most recently started run.
func (db *DB) LoadLatestRun() (ir.Run, error) {
	return db.loadOne(`SELECT run_json FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)
}

func (db *DB) loadOne(q string, args ...any) (ir.Run, error) {
	var s string
	if err := db.conn.QueryRow(q, args...).Scan(&s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Run{}, ErrRunNotFound
		}
		return ir.Run{}, err
	}
	var run ir.Run
	if err := json.Unmarshal([]byte(s), &run); err != nil {
		return ir.Run{}, err
	}
	return run, nil
}
