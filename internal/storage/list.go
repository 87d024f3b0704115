package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/codewithboateng/rulescan/internal/ir"
)

// ListRuns returns a lightweight list of runs with counts, newest first.
func (db *DB) ListRuns(limit, offset int) ([]RunRow, error) {
	const q = `
		SELECT r.id, r.started_at, r.rules_dir, r.version, r.failed,
		       (SELECT COUNT(1) FROM outcomes o WHERE o.run_id = r.id AND o.kind = 'fail'),
		       (SELECT COUNT(1) FROM outcomes o WHERE o.run_id = r.id AND o.kind = 'exception'),
		       (SELECT COUNT(1) FROM outcomes o WHERE o.run_id = r.id AND o.kind = 'warn')
		  FROM runs r
		 ORDER BY r.started_at DESC, r.id DESC
		 LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var rr RunRow
		var startedAtStr string
		var failed int
		if err := rows.Scan(&rr.ID, &startedAtStr, &rr.RulesDir, &rr.Version, &failed, &rr.Failures, &rr.Exceptions, &rr.Warnings); err != nil {
			return nil, err
		}
		rr.Failed = failed != 0
		// Parse RFC3339Nano first, fallback to RFC3339
		if t, err := time.Parse(time.RFC3339Nano, startedAtStr); err == nil {
			rr.StartedAt = t
		} else if t2, err2 := time.Parse(time.RFC3339, startedAtStr); err2 == nil {
			rr.StartedAt = t2
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// ListOutcomes returns a run's outcomes in record order; an empty kind
// returns every kind.
func (db *DB) ListOutcomes(runID string, kind ir.OutcomeKind) ([]ir.Outcome, error) {
	ok, err := db.HasRun(runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRunNotFound
	}

	const q = `
		SELECT class, rule, kind, message, line
		  FROM outcomes
		 WHERE run_id = ?
		   AND (? = '' OR kind = ?)
		 ORDER BY seq`
	rows, err := db.conn.Query(q, runID, string(kind), string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ir.Outcome{}
	for rows.Next() {
		var o ir.Outcome
		var k string
		var msg sql.NullString
		var line sql.NullInt64
		if err := rows.Scan(&o.Class, &o.Rule, &k, &msg, &line); err != nil {
			return nil, err
		}
		o.Kind = ir.OutcomeKind(k)
		o.Message = msg.String
		o.Line = int(line.Int64)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (db *DB) HasRun(id string) (bool, error) {
	const q = `SELECT 1 FROM runs WHERE id = ? LIMIT 1`
	var one int
	err := db.conn.QueryRow(q, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
