// Package store defines the persistence interfaces for the engine's local
// record store.
//
// The interfaces are split by consumer so the sync-state ownership rule is
// enforced by construction: only the sync queue service sees SetSyncState,
// so the delivery facade cannot transition records out of pending.
package store

import (
	"context"
	"time"

	"github.com/giggleglide/giggleglide-engine/internal/domain"
)

// Store is the full persistence contract, implemented by the SQLite store.
type Store interface {
	DeliveryStore
	SyncStore

	Close() error
}

// DeliveryStore is the joke delivery facade's view of the store.
// It can create feedback (always pending) and enqueue it, but cannot
// transition sync state.
type DeliveryStore interface {
	// Ping verifies the store handle is usable.
	Ping(ctx context.Context) error

	// Jokes. The local copy is authoritative for per-user seen state.
	UpsertJoke(ctx context.Context, joke *domain.Joke) error
	GetJoke(ctx context.Context, id int64) (*domain.Joke, error)
	CountJokes(ctx context.Context, filters domain.JokeFilters) (int, error)
	// GetUnseenJoke returns the oldest-fetched joke matching filters that the
	// user has not seen, or ErrNotFound.
	GetUnseenJoke(ctx context.Context, userID string, filters domain.JokeFilters) (*domain.Joke, error)
	// GetAnyJoke returns the oldest-fetched joke matching filters regardless
	// of seen state, or ErrNotFound.
	GetAnyJoke(ctx context.Context, filters domain.JokeFilters) (*domain.Joke, error)

	// Seen markers.
	MarkSeen(ctx context.Context, userID string, jokeID int64) error
	IsSeen(ctx context.Context, userID string, jokeID int64) (bool, error)
	ClearSeen(ctx context.Context, userID string) (int, error)

	// Feedback. UpsertFeedback atomically creates or overwrites the single
	// record for (userID, jokeID), always leaving it pending.
	UpsertFeedback(ctx context.Context, userID string, jokeID int64, sentiment domain.Sentiment) (*domain.FeedbackRecord, error)
	GetFeedback(ctx context.Context, userID string, jokeID int64) (*domain.FeedbackRecord, error)
	ListPending(ctx context.Context, userID string) ([]*domain.FeedbackRecord, error)

	// EnqueueSync adds or refreshes the queue entry for a pending record,
	// resetting its attempt count.
	EnqueueSync(ctx context.Context, userID string, jokeID int64) error
}

// SyncStore is the sync queue service's view of the store. It is the only
// interface that can transition sync state.
type SyncStore interface {
	// ListSyncQueue returns deliverable entries in feedback creation order,
	// oldest first. Entries whose record is already failed are excluded.
	ListSyncQueue(ctx context.Context) ([]*domain.SyncQueueEntry, error)
	SetSyncState(ctx context.Context, userID string, jokeID int64, state domain.SyncState) error
	// RecordSyncAttempt increments and returns the entry's attempt count.
	RecordSyncAttempt(ctx context.Context, userID string, jokeID int64, at time.Time) (int, error)
	RemoveSyncEntry(ctx context.Context, userID string, jokeID int64) error
	PendingSyncCount(ctx context.Context) (int, error)
	// ClearSyncQueue discards every queue entry and returns how many were
	// dropped. Feedback loss; explicit user action only.
	ClearSyncQueue(ctx context.Context) (int, error)

	EnqueueSync(ctx context.Context, userID string, jokeID int64) error

	// Engine metadata (last_synced_at and friends).
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
}

// MetaLastSyncedAt is the metadata key recording the last successful sync,
// stored as RFC3339Nano.
const MetaLastSyncedAt = "last_synced_at"
