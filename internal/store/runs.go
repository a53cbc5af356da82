package store

import (
	"database/sql"
	"fmt"
	"time"
)

// KindFailed marks a run that ended with an error instead of a result.
const KindFailed = "failed"

type Run struct {
	ID              string
	EventID         string
	Channel         string
	ThreadTS        string
	Repo            string
	SDK             string
	ReportedVersion string
	Kind            string
	FixedVersion    string
	PRNumber        int
	Message         string
	Error           string
	CreatedAt       time.Time
	Duration        time.Duration
}

func (s *Store) RecordRun(r Run) error {
	if r.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if r.Kind == "" {
		return fmt.Errorf("run kind is required")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, event_id, channel, thread_ts, repo, sdk, reported_version, kind, fixed_version, pr_number, message, error, created_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			fixed_version = excluded.fixed_version,
			pr_number = excluded.pr_number,
			message = excluded.message,
			error = excluded.error,
			duration_ms = excluded.duration_ms
	`, r.ID, r.EventID, r.Channel, r.ThreadTS, r.Repo, r.SDK, r.ReportedVersion, r.Kind, r.FixedVersion, r.PRNumber, r.Message, r.Error,
		r.CreatedAt.UnixMilli(), r.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

const runColumns = `id, event_id, channel, thread_ts, repo, sdk, reported_version, kind, fixed_version, pr_number, message, error, created_at, duration_ms`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r          Run
		eventID    sql.NullString
		channel    sql.NullString
		threadTS   sql.NullString
		repo       sql.NullString
		sdk        sql.NullString
		reported   sql.NullString
		fixed      sql.NullString
		prNumber   sql.NullInt64
		message    sql.NullString
		errText    sql.NullString
		createdAt  int64
		durationMS int64
	)
	if err := row.Scan(&r.ID, &eventID, &channel, &threadTS, &repo, &sdk, &reported, &r.Kind, &fixed, &prNumber, &message, &errText, &createdAt, &durationMS); err != nil {
		return Run{}, err
	}
	r.EventID = eventID.String
	r.Channel = channel.String
	r.ThreadTS = threadTS.String
	r.Repo = repo.String
	r.SDK = sdk.String
	r.ReportedVersion = reported.String
	r.FixedVersion = fixed.String
	r.PRNumber = int(prNumber.Int64)
	r.Message = message.String
	r.Error = errText.String
	r.CreatedAt = time.UnixMilli(createdAt)
	r.Duration = time.Duration(durationMS) * time.Millisecond
	return r, nil
}

// GetRun returns sql.ErrNoRows when the run does not exist.
func (s *Store) GetRun(id string) (Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("failed to read run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
