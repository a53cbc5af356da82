package store

import (
	"fmt"
	"time"
)

// MarkEventSeen records an event id and reports whether this is the first
// delivery.
func (s *Store) MarkEventSeen(id string) (bool, error) {
	if id == "" {
		return true, nil
	}
	res, err := s.db.Exec(`INSERT OR IGNORE INTO events (id, seen_at) VALUES (?, ?)`, id, time.Now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to record event: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record event: %w", err)
	}
	return rows == 1, nil
}

// PruneEvents drops event ids older than the cutoff.
func (s *Store) PruneEvents(before time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM events WHERE seen_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.RowsAffected()
}
