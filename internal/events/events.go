// Package events implements in-process event broadcasting for engine state changes.
package events

import (
	"time"

	"github.com/giggleglide/giggleglide-engine/internal/domain"
)

// The engine runs embedded in a host application, so events are delivered
// over in-process channels rather than a network transport. A host that
// wants to surface sync progress in a UI subscribes to the broadcaster.

// EventType represents the type of engine event.
type EventType string

const (
	// EventNetworkChanged represents a connectivity state transition.
	EventNetworkChanged EventType = "network.changed"

	// EventFeedbackQueued represents feedback recorded locally and queued for sync.
	EventFeedbackQueued EventType = "feedback.queued"

	// EventSyncStarted represents the start of a sync queue drain.
	EventSyncStarted EventType = "sync.started"
	// EventSyncCompleted represents the end of a sync queue drain.
	EventSyncCompleted EventType = "sync.completed"
	// EventSyncEntryFailed represents a single queue entry that could not be delivered.
	EventSyncEntryFailed EventType = "sync.entry_failed"
)

// Event represents an engine event to be delivered to subscribers.
// The Data field contains the event payload for direct consumption.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// When set, the event is only delivered to subscribers registered
	// for this user. Empty string means "broadcast to all".
	UserID string `json:"-"`
}

// NetworkChangedData is the data payload for network change events.
type NetworkChangedData struct {
	State domain.NetworkState `json:"state"`
}

// FeedbackQueuedData is the data payload for feedback queued events.
type FeedbackQueuedData struct {
	UserID    string           `json:"user_id"`
	Sentiment domain.Sentiment `json:"sentiment"`
	JokeID    int64            `json:"joke_id"`
	Pending   int              `json:"pending"`
}

// SyncStartedData is the data payload for drain start events.
type SyncStartedData struct {
	StartedAt time.Time `json:"started_at"`
	DrainID   string    `json:"drain_id"`
	Pending   int       `json:"pending"`
}

// SyncCompletedData is the data payload for drain completion events.
type SyncCompletedData struct {
	CompletedAt time.Time `json:"completed_at"`
	DrainID     string    `json:"drain_id"`
	Synced      int       `json:"synced"`
	Failed      int       `json:"failed"`
	Success     bool      `json:"success"`
}

// SyncEntryFailedData is the data payload for per-entry delivery failures.
type SyncEntryFailedData struct {
	UserID    string `json:"user_id"`
	Reason    string `json:"reason"`
	JokeID    int64  `json:"joke_id"`
	Attempts  int    `json:"attempts"`
	Permanent bool   `json:"permanent"`
}

// NewNetworkChangedEvent creates a network change event.
func NewNetworkChangedEvent(state domain.NetworkState) Event {
	return Event{
		Type:      EventNetworkChanged,
		Timestamp: time.Now(),
		Data:      NetworkChangedData{State: state},
	}
}

// NewFeedbackQueuedEvent creates a feedback queued event scoped to the user.
func NewFeedbackQueuedEvent(userID string, jokeID int64, sentiment domain.Sentiment, pending int) Event {
	return Event{
		Type:      EventFeedbackQueued,
		Timestamp: time.Now(),
		UserID:    userID,
		Data: FeedbackQueuedData{
			UserID:    userID,
			JokeID:    jokeID,
			Sentiment: sentiment,
			Pending:   pending,
		},
	}
}

// NewSyncStartedEvent creates a drain start event.
func NewSyncStartedEvent(drainID string, pending int) Event {
	return Event{
		Type:      EventSyncStarted,
		Timestamp: time.Now(),
		Data: SyncStartedData{
			DrainID:   drainID,
			Pending:   pending,
			StartedAt: time.Now(),
		},
	}
}

// NewSyncCompletedEvent creates a drain completion event.
func NewSyncCompletedEvent(drainID string, synced, failed int, success bool) Event {
	return Event{
		Type:      EventSyncCompleted,
		Timestamp: time.Now(),
		Data: SyncCompletedData{
			DrainID:     drainID,
			Synced:      synced,
			Failed:      failed,
			Success:     success,
			CompletedAt: time.Now(),
		},
	}
}

// NewSyncEntryFailedEvent creates a per-entry failure event scoped to the user.
func NewSyncEntryFailedEvent(userID string, jokeID int64, attempts int, permanent bool, reason string) Event {
	return Event{
		Type:      EventSyncEntryFailed,
		Timestamp: time.Now(),
		UserID:    userID,
		Data: SyncEntryFailedData{
			UserID:    userID,
			JokeID:    jokeID,
			Attempts:  attempts,
			Permanent: permanent,
			Reason:    reason,
		},
	}
}

// Emitter is the minimal interface engine components use to publish events.
type Emitter interface {
	Emit(event Event)
}

// NoopEmitter discards all events. Useful for tests and hosts that do not
// consume the event stream.
type NoopEmitter struct{}

// Emit discards the event.
func (NoopEmitter) Emit(Event) {}
