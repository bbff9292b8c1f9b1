package domain

import "time"

// Sentiment is the user's reaction to a joke.
type Sentiment string

// Valid sentiments.
const (
	SentimentLike    Sentiment = "like"
	SentimentDislike Sentiment = "dislike"
	SentimentNeutral Sentiment = "neutral"
)

// Valid reports whether s is a known sentiment.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentLike, SentimentDislike, SentimentNeutral:
		return true
	}
	return false
}

// SyncState tracks a feedback record's progress toward server acknowledgment.
type SyncState string

// Sync states. Only the sync queue service transitions a record out of
// SyncPending; the facade only ever creates records in SyncPending.
const (
	SyncPending SyncState = "pending"
	SyncSynced  SyncState = "synced"
	SyncFailed  SyncState = "failed"
)

// FeedbackRecord is a durable reaction to a joke. At most one record exists
// per (UserID, JokeID); a later submission overwrites Sentiment in place and
// keeps the original CreatedAt so drain order preserves the user's intent.
type FeedbackRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	JokeID    int64     `json:"joke_id"`
	Sentiment Sentiment `json:"sentiment"`
	SyncState SyncState `json:"sync_state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncQueueEntry is a feedback record awaiting server acknowledgment, with
// its delivery bookkeeping. The record fields are joined in for drains.
type SyncQueueEntry struct {
	UserID        string     `json:"user_id"`
	JokeID        int64      `json:"joke_id"`
	Sentiment     Sentiment  `json:"sentiment"`
	Attempts      int        `json:"attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	EnqueuedAt    time.Time  `json:"enqueued_at"`
	CreatedAt     time.Time  `json:"created_at"`
}
