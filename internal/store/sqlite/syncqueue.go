package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/giggleglide/giggleglide-engine/internal/domain"
	"github.com/giggleglide/giggleglide-engine/internal/store"
)

// EnqueueSync adds or refreshes the sync queue entry for a feedback record.
// Re-enqueuing resets the attempt count so a refreshed submission does not
// immediately trip the failure cap.
func (s *Store) EnqueueSync(ctx context.Context, userID string, jokeID int64) error {
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_queue (user_id, joke_id, attempts, last_attempt_at, enqueued_at)
		VALUES (?, ?, 0, NULL, ?)
		ON CONFLICT(user_id, joke_id) DO UPDATE SET
			attempts = 0,
			last_attempt_at = NULL,
			enqueued_at = excluded.enqueued_at`,
		userID, jokeID, now)
	return err
}

// ListSyncQueue returns deliverable queue entries joined with their feedback,
// in feedback creation order, oldest first. Entries whose record is no longer
// pending (synced or failed) are excluded.
func (s *Store) ListSyncQueue(ctx context.Context) ([]*domain.SyncQueueEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.user_id, q.joke_id, f.sentiment, q.attempts, q.last_attempt_at, q.enqueued_at, f.created_at
		FROM sync_queue q
		JOIN feedback f ON f.user_id = q.user_id AND f.joke_id = q.joke_id
		WHERE f.sync_state = ?
		ORDER BY f.created_at ASC, q.joke_id ASC`,
		string(domain.SyncPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.SyncQueueEntry
	for rows.Next() {
		entry, err := scanSyncQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// scanSyncQueueEntry scans a joined sync_queue/feedback row.
func scanSyncQueueEntry(scanner interface{ Scan(dest ...any) error }) (*domain.SyncQueueEntry, error) {
	var e domain.SyncQueueEntry

	var (
		sentiment     string
		lastAttemptAt sql.NullString
		enqueuedAt    string
		createdAt     string
	)

	err := scanner.Scan(
		&e.UserID,
		&e.JokeID,
		&sentiment,
		&e.Attempts,
		&lastAttemptAt,
		&enqueuedAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	e.Sentiment = domain.Sentiment(sentiment)

	e.LastAttemptAt, err = parseNullableTime(lastAttemptAt)
	if err != nil {
		return nil, err
	}
	e.EnqueuedAt, err = parseTime(enqueuedAt)
	if err != nil {
		return nil, err
	}
	e.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// RecordSyncAttempt increments the entry's attempt count and returns the new
// value. Returns store.ErrNotFound if the entry is gone.
func (s *Store) RecordSyncAttempt(ctx context.Context, userID string, jokeID int64, at time.Time) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		UPDATE sync_queue SET attempts = attempts + 1, last_attempt_at = ?
		WHERE user_id = ? AND joke_id = ?
		RETURNING attempts`,
		formatTime(at), userID, jokeID).Scan(&attempts)
	if err == sql.ErrNoRows {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

// RemoveSyncEntry deletes a queue entry after server acknowledgment.
// Removing an absent entry is a no-op.
func (s *Store) RemoveSyncEntry(ctx context.Context, userID string, jokeID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE user_id = ? AND joke_id = ?`,
		userID, jokeID)
	return err
}

// PendingSyncCount returns the number of queue entries still awaiting
// delivery. Failed entries are retained in the queue but not counted here.
func (s *Store) PendingSyncCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM sync_queue q
		JOIN feedback f ON f.user_id = q.user_id AND f.joke_id = q.joke_id
		WHERE f.sync_state = ?`,
		string(domain.SyncPending)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ClearSyncQueue discards every queue entry, pending and failed alike, and
// returns how many were dropped.
func (s *Store) ClearSyncQueue(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sync_queue`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
