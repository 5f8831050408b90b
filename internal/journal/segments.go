package journal

import (
	"context"
	"fmt"
	"time"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is one accepted segment.
type Entry struct {
	Folder      string
	GroupKey    int64
	Channel     string
	Index       int
	Path        string
	MaxSegments int
	Checksum    uint16
	ReceivedAt  time.Time
}

// Record stores an accepted segment. An existing row for the same folder,
// group, channel, and index is kept unchanged.
func (s *Store) Record(ctx context.Context, e Entry) error {
	received := e.ReceivedAt
	if received.IsZero() {
		received = time.Now()
	}
	_, err := s.execWithRetry(ctx, `INSERT INTO segments (
            folder, group_key, channel, segment_index, path, max_segments, checksum, received_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (folder, group_key, channel, segment_index) DO NOTHING`,
		e.Folder,
		e.GroupKey,
		e.Channel,
		e.Index,
		e.Path,
		e.MaxSegments,
		int(e.Checksum),
		received.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record segment: %w", err)
	}
	return nil
}

// Forget deletes every row of one group.
func (s *Store) Forget(ctx context.Context, folder string, key int64) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM segments WHERE folder = ? AND group_key = ?`, folder, key); err != nil {
		return fmt.Errorf("forget group: %w", err)
	}
	return nil
}

// ForgetPath deletes the rows that reference path.
func (s *Store) ForgetPath(ctx context.Context, folder, path string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM segments WHERE folder = ? AND path = ?`, folder, path); err != nil {
		return fmt.Errorf("forget segment: %w", err)
	}
	return nil
}

// Load returns the rows of one folder, oldest first.
func (s *Store) Load(ctx context.Context, folder string) ([]Entry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT folder, group_key, channel, segment_index, path, max_segments, checksum, received_at
        FROM segments WHERE folder = ?
        ORDER BY received_at, group_key, channel, segment_index`, folder)
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			checksum int
			received string
		)
		if err := rows.Scan(&e.Folder, &e.GroupKey, &e.Channel, &e.Index, &e.Path, &e.MaxSegments, &checksum, &received); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		e.Checksum = uint16(checksum)
		if ts, err := time.Parse(timeLayout, received); err == nil {
			e.ReceivedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PruneBefore deletes rows received before cutoff and returns how many were
// removed.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM segments WHERE received_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune segments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune segments: %w", err)
	}
	return n, nil
}

// Count returns the number of journaled segments.
func (s *Store) Count(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM segments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count segments: %w", err)
	}
	return n, nil
}

// Vacuum checkpoints the WAL and compacts the database file.
func (s *Store) Vacuum(ctx context.Context) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			return fmt.Errorf("checkpoint journal: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
			return fmt.Errorf("vacuum journal: %w", err)
		}
		return nil
	})
}
