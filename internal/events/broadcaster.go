package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/giggleglide/giggleglide-engine/internal/id"
)

// Subscriber represents a registered event consumer.
type Subscriber struct {
	SubscribedAt time.Time
	EventChan    chan Event
	Done         chan struct{}
	ID           string
	// Events are filtered in broadcast() to only deliver events matching
	// this user. Empty string means "receive all".
	UserID string
}

// Broadcaster fans engine events out to subscribers.
type Broadcaster struct {
	subscribers map[string]*Subscriber
	events      chan Event
	logger      *slog.Logger
	wg          sync.WaitGroup
	mu          sync.RWMutex

	// Shutdown state - protected by shutdownMu
	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewBroadcaster creates a new event Broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
		events:      make(chan Event, 256),
		logger:      logger,
	}
}

// Start begins the event delivery loop.
// This should be called once at engine startup in a goroutine.
func (b *Broadcaster) Start(ctx context.Context) {
	b.wg.Add(1)
	defer b.wg.Done()

	b.logger.Info("event broadcaster starting")

	for {
		select {
		case event := <-b.events:
			b.broadcast(event)

		case <-ctx.Done():
			b.logger.Info("event broadcaster stopping")
			b.closeAllSubscribers()
			return
		}
	}
}

// Shutdown gracefully shuts down the broadcaster.
// It stops accepting new events, drains remaining events, and closes all subscribers.
func (b *Broadcaster) Shutdown(ctx context.Context) error {
	b.logger.Info("event broadcaster shutdown initiated")

	// Mark as shutdown AND close channel atomically while holding lock.
	// This prevents a race with Emit() which holds the read lock during send.
	b.shutdownMu.Lock()
	b.shutdown = true
	close(b.events)
	b.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		for event := range b.events {
			b.broadcast(event)
		}
		close(done)
	}()

	select {
	case <-done:
		b.logger.Debug("event queue drained")
	case <-ctx.Done():
		b.logger.Warn("event drain timeout, some events may be lost")
	}

	b.wg.Wait()

	b.logger.Info("event broadcaster shutdown complete")
	return nil
}

// broadcast delivers an event to subscribers, filtered by user.
func (b *Broadcaster) broadcast(event Event) {
	var delivered, dropped, filtered int

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		// Empty event.UserID means broadcast to all users.
		if event.UserID != "" && sub.UserID != "" && event.UserID != sub.UserID {
			filtered++
			continue
		}

		// Non-blocking send (drop if subscriber is slow/stuck).
		select {
		case sub.EventChan <- event:
			delivered++
		default:
			dropped++
			b.logger.Warn("dropped event for slow subscriber",
				slog.String("subscriber_id", sub.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	b.logger.Debug("event broadcast",
		slog.String("event_type", string(event.Type)),
		slog.Group("stats",
			slog.Int("delivered", delivered),
			slog.Int("filtered", filtered),
			slog.Int("dropped", dropped)))
}

// Subscribe registers a new subscriber and returns it.
// The userID is used to filter user-scoped events; empty string means "all".
func (b *Broadcaster) Subscribe(userID string) (*Subscriber, error) {
	subID, err := id.Generate("sub")
	if err != nil {
		return nil, err
	}

	sub := &Subscriber{
		ID:           subID,
		UserID:       userID,
		EventChan:    make(chan Event, 64),
		Done:         make(chan struct{}),
		SubscribedAt: time.Now(),
	}

	b.mu.Lock()
	b.subscribers[sub.ID] = sub
	total := len(b.subscribers)
	b.mu.Unlock()

	b.logger.Debug("event subscriber registered",
		slog.String("subscriber_id", subID),
		slog.String("user_id", userID),
		slog.Int("total_subscribers", total))
	return sub, nil
}

// Unsubscribe removes a subscriber and closes its channels.
func (b *Broadcaster) Unsubscribe(subscriberID string) {
	b.mu.Lock()
	sub, ok := b.subscribers[subscriberID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subscribers, subscriberID)
	total := len(b.subscribers)
	b.mu.Unlock()

	close(sub.Done)
	close(sub.EventChan)

	b.logger.Debug("event subscriber removed",
		slog.String("subscriber_id", subscriberID),
		slog.Int("total_subscribers", total))
}

// Emit queues an event for delivery to subscribers.
func (b *Broadcaster) Emit(event Event) {
	// Hold read lock through the entire send operation.
	// This prevents a race with Shutdown() which closes the channel under write lock.
	b.shutdownMu.RLock()
	defer b.shutdownMu.RUnlock()

	if b.shutdown {
		// Events after shutdown are expected and silently dropped.
		return
	}

	select {
	case b.events <- event:
	default:
		b.logger.Error("event channel full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}

// SubscriberCount returns the number of registered subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// closeAllSubscribers closes all subscriber channels (used during shutdown).
func (b *Broadcaster) closeAllSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers {
		close(sub.Done)
		close(sub.EventChan)
	}
	b.subscribers = make(map[string]*Subscriber)

	b.logger.Debug("all event subscribers disconnected")
}
