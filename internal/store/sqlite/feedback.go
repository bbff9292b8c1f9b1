package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/giggleglide/giggleglide-engine/internal/domain"
	"github.com/giggleglide/giggleglide-engine/internal/id"
	"github.com/giggleglide/giggleglide-engine/internal/store"
)

// feedbackColumns is the ordered list of columns selected in feedback queries.
// Must match the scan order in scanFeedback.
const feedbackColumns = `id, user_id, joke_id, sentiment, sync_state, created_at, updated_at`

// scanFeedback scans a sql.Row (or sql.Rows via its Scan method) into a domain.FeedbackRecord.
func scanFeedback(scanner interface{ Scan(dest ...any) error }) (*domain.FeedbackRecord, error) {
	var f domain.FeedbackRecord

	var (
		sentiment string
		syncState string
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&f.ID,
		&f.UserID,
		&f.JokeID,
		&sentiment,
		&syncState,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.Sentiment = domain.Sentiment(sentiment)
	f.SyncState = domain.SyncState(syncState)

	f.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	f.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &f, nil
}

// UpsertFeedback atomically creates or overwrites the single feedback record
// for (userID, jokeID). A re-submission overwrites sentiment, resets the
// record to pending, and keeps the original ID and created_at so drain order
// still reflects the user's first reaction to the joke.
func (s *Store) UpsertFeedback(ctx context.Context, userID string, jokeID int64, sentiment domain.Sentiment) (*domain.FeedbackRecord, error) {
	recordID, err := id.Generate("fbk")
	if err != nil {
		return nil, err
	}

	now := formatTime(time.Now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, user_id, joke_id, sentiment, sync_state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, joke_id) DO UPDATE SET
			sentiment = excluded.sentiment,
			sync_state = excluded.sync_state,
			updated_at = excluded.updated_at`,
		recordID,
		userID,
		jokeID,
		string(sentiment),
		string(domain.SyncPending),
		now,
		now,
	)
	if err != nil {
		return nil, err
	}

	return s.GetFeedback(ctx, userID, jokeID)
}

// GetFeedback retrieves the feedback record for (userID, jokeID).
// Returns store.ErrNotFound if no record exists.
func (s *Store) GetFeedback(ctx context.Context, userID string, jokeID int64) (*domain.FeedbackRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE user_id = ? AND joke_id = ?`,
		userID, jokeID)

	record, err := scanFeedback(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListPending returns pending feedback in creation order, oldest first.
// An empty userID lists pending feedback for all users.
func (s *Store) ListPending(ctx context.Context, userID string) ([]*domain.FeedbackRecord, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE sync_state = ?`
	args := []any{string(domain.SyncPending)}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at ASC, joke_id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.FeedbackRecord
	for rows.Next() {
		record, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// SetSyncState transitions a feedback record's sync state.
// Returns store.ErrNotFound if no record exists.
func (s *Store) SetSyncState(ctx context.Context, userID string, jokeID int64, state domain.SyncState) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE feedback SET sync_state = ?, updated_at = ?
		WHERE user_id = ? AND joke_id = ?`,
		string(state), formatTime(time.Now()), userID, jokeID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
