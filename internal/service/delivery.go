// Package service implements the joke delivery facade, the single entry
// point hosts use to get jokes and record feedback.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/giggleglide/giggleglide-engine/internal/domain"
	"github.com/giggleglide/giggleglide-engine/internal/errors"
	"github.com/giggleglide/giggleglide-engine/internal/events"
	"github.com/giggleglide/giggleglide-engine/internal/logger"
	"github.com/giggleglide/giggleglide-engine/internal/normalize"
	"github.com/giggleglide/giggleglide-engine/internal/store"
	"github.com/giggleglide/giggleglide-engine/internal/validation"
)

// JokeAPI fetches fresh jokes from the remote service.
type JokeAPI interface {
	FetchNextJoke(ctx context.Context, userID string, filters domain.JokeFilters) (*domain.Joke, error)
}

// SyncQueue is the facade's view of the sync queue service.
type SyncQueue interface {
	Enqueue(ctx context.Context, record *domain.FeedbackRecord) error
	Drain(ctx context.Context) (*domain.SyncResult, error)
	PendingCount(ctx context.Context) (int, error)
	LastSyncTime(ctx context.Context) (*time.Time, error)
	InProgress() bool
	Clear(ctx context.Context) (int, error)
}

// Connectivity reports and refreshes network state.
type Connectivity interface {
	Current() domain.NetworkState
	Refresh(ctx context.Context) (domain.NetworkState, error)
}

// EventStream is the subscription surface of the event broadcaster.
type EventStream interface {
	Subscribe(userID string) (*events.Subscriber, error)
	Unsubscribe(subscriberID string)
}

// DeliveryService selects jokes across the api/cache/database fallback chain
// and records swipe feedback locally before it syncs.
type DeliveryService struct {
	store        store.DeliveryStore
	api          JokeAPI
	syncQueue    SyncQueue
	connectivity Connectivity
	events       EventStream
	validator    *validation.Validator
	logger       *logger.Logger

	initMu      sync.Mutex
	initialized bool
}

// NewDeliveryService creates a new delivery service.
func NewDeliveryService(st store.DeliveryStore, api JokeAPI, queue SyncQueue, conn Connectivity, stream EventStream, validator *validation.Validator, log *logger.Logger) *DeliveryService {
	return &DeliveryService{
		store:        st,
		api:          api,
		syncQueue:    queue,
		connectivity: conn,
		events:       stream,
		validator:    validator,
		logger:       log,
	}
}

// Initialize verifies the store is usable and marks the service ready.
// Calling it again is a no-op.
func (s *DeliveryService) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.initialized {
		return nil
	}

	if err := s.store.Ping(ctx); err != nil {
		return errors.Wrap(err, errors.CodeStoreUnavailable, "verifying local store")
	}

	s.initialized = true
	s.logger.Info("delivery service initialized")
	return nil
}

// Close marks the service stopped. Safe to call without Initialize and safe
// to call twice; the store handle itself is owned by the container.
func (s *DeliveryService) Close() error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	s.initialized = false
	return nil
}

func (s *DeliveryService) ready() error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if !s.initialized {
		return errors.Internal("delivery service not initialized")
	}
	return nil
}

type nextJokeRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
}

type feedbackRequest struct {
	UserID    string `json:"user_id" validate:"required,max=128"`
	Sentiment string `json:"sentiment" validate:"required,oneof=like dislike neutral"`
	JokeID    int64  `json:"joke_id" validate:"required,gt=0"`
}

// GetNextUnseenJoke returns the next joke for the user, trying sources in
// order: live API, unseen local jokes, then already-seen local jokes. A
// fully exhausted chain returns a no-joke result, not an error.
//
// Whatever source wins, the joke is marked seen before it is returned, so a
// crash after delivery cannot re-show it.
func (s *DeliveryService) GetNextUnseenJoke(ctx context.Context, userID string, filters domain.JokeFilters) (*domain.DeliveredJoke, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(nextJokeRequest{UserID: userID}); err != nil {
		return nil, err
	}
	filters = normalizeFilters(filters)

	if !s.connectivity.Current().Offline() {
		if delivered, ok := s.tryAPI(ctx, userID, filters); ok {
			return delivered, nil
		}
	}

	joke, err := s.store.GetUnseenJoke(ctx, userID, filters)
	switch {
	case err == nil:
		if err := s.deliverLocal(ctx, userID, joke); err != nil {
			return nil, err
		}
		return &domain.DeliveredJoke{Joke: joke, Source: domain.SourceCache}, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "selecting unseen joke")
	}

	// Every matching joke has been seen. Re-deliver the oldest rather than
	// leave the user staring at nothing.
	joke, err = s.store.GetAnyJoke(ctx, filters)
	switch {
	case err == nil:
		if err := s.deliverLocal(ctx, userID, joke); err != nil {
			return nil, err
		}
		return &domain.DeliveredJoke{Joke: joke, Source: domain.SourceDatabase}, nil
	case errors.Is(err, store.ErrNotFound):
		return domain.NoJoke(), nil
	default:
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "selecting fallback joke")
	}
}

// tryAPI attempts a live fetch. Any failure falls back to local sources.
func (s *DeliveryService) tryAPI(ctx context.Context, userID string, filters domain.JokeFilters) (*domain.DeliveredJoke, bool) {
	joke, err := s.api.FetchNextJoke(ctx, userID, filters)
	if err != nil {
		s.logger.WithError(err).Debug("api fetch failed, falling back to local bank")
		return nil, false
	}

	// Bank the joke first so a crash between fetch and delivery cannot
	// lose it, then record the delivery.
	if err := s.store.UpsertJoke(ctx, joke); err != nil {
		s.logger.WithError(err).Warn("banking fetched joke failed")
		return nil, false
	}
	if err := s.store.MarkSeen(ctx, userID, joke.ID); err != nil {
		s.logger.WithError(err).Warn("marking fetched joke seen failed")
		return nil, false
	}

	return &domain.DeliveredJoke{Joke: joke, Source: domain.SourceAPI, FromNetwork: true}, true
}

func (s *DeliveryService) deliverLocal(ctx context.Context, userID string, joke *domain.Joke) error {
	if err := s.store.MarkSeen(ctx, userID, joke.ID); err != nil {
		return errors.Wrap(err, errors.CodeStoreUnavailable, "marking joke seen")
	}
	return nil
}

// SubmitFeedback records the user's swipe locally and queues it for sync.
// Submitting again for the same joke overwrites the sentiment; each
// (user, joke) pair holds at most one record.
func (s *DeliveryService) SubmitFeedback(ctx context.Context, userID string, jokeID int64, sentiment domain.Sentiment) (*domain.FeedbackRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(feedbackRequest{
		UserID:    userID,
		JokeID:    jokeID,
		Sentiment: string(sentiment),
	}); err != nil {
		return nil, err
	}

	// Feedback must reference a banked joke.
	if _, err := s.store.GetJoke(ctx, jokeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFound("joke not found in local bank")
		}
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "looking up joke")
	}

	record, err := s.store.UpsertFeedback(ctx, userID, jokeID, sentiment)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "recording feedback")
	}

	if err := s.syncQueue.Enqueue(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("feedback recorded",
		slog.String("user_id", userID),
		slog.Int64("joke_id", jokeID),
		slog.String("sentiment", string(sentiment)))
	return record, nil
}

// GetSyncStatus returns a point-in-time view of the sync queue.
func (s *DeliveryService) GetSyncStatus(ctx context.Context) (*domain.SyncStatus, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	pending, err := s.syncQueue.PendingCount(ctx)
	if err != nil {
		return nil, err
	}

	last, err := s.syncQueue.LastSyncTime(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.SyncStatus{
		PendingCount:   pending,
		LastSyncedAt:   last,
		SyncInProgress: s.syncQueue.InProgress(),
	}, nil
}

// ForceSyncNow re-checks connectivity and drains the queue immediately.
// Returns errors.CodeNetworkUnavailable when the device is offline.
func (s *DeliveryService) ForceSyncNow(ctx context.Context) (*domain.SyncResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	// A stale "offline" reading should not block an explicit user request,
	// so probe before deciding.
	state, err := s.connectivity.Refresh(ctx)
	if err != nil {
		s.logger.WithError(err).Debug("connectivity refresh before sync failed")
		state = s.connectivity.Current()
	}
	if state.Offline() {
		return nil, errors.NetworkUnavailable("cannot sync while offline")
	}

	return s.syncQueue.Drain(ctx)
}

// ClearPendingSync discards all queued feedback and returns how many entries
// were dropped. The feedback is lost; this is for explicit user resets only.
func (s *DeliveryService) ClearPendingSync(ctx context.Context) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.syncQueue.Clear(ctx)
}

// ClearSeenHistory forgets which jokes the user has seen, making the whole
// local bank deliverable again.
func (s *DeliveryService) ClearSeenHistory(ctx context.Context, userID string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if err := s.validator.Validate(nextJokeRequest{UserID: userID}); err != nil {
		return 0, err
	}

	cleared, err := s.store.ClearSeen(ctx, userID)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeStoreUnavailable, "clearing seen history")
	}

	s.logger.Info("seen history cleared",
		slog.String("user_id", userID),
		slog.Int("cleared", cleared))
	return cleared, nil
}

// Subscribe registers a consumer for engine events. An empty userID receives
// events for all users. The returned subscriber's channel is closed on
// Unsubscribe or broadcaster shutdown.
func (s *DeliveryService) Subscribe(userID string) (*events.Subscriber, error) {
	return s.events.Subscribe(userID)
}

// Unsubscribe detaches a subscriber and closes its channel.
func (s *DeliveryService) Unsubscribe(subscriberID string) {
	s.events.Unsubscribe(subscriberID)
}

func normalizeFilters(filters domain.JokeFilters) domain.JokeFilters {
	return domain.JokeFilters{
		Language: normalize.Language(filters.Language),
		Style:    normalize.Tag(filters.Style),
		Topic:    normalize.Tag(filters.Topic),
		Tone:     normalize.Tag(filters.Tone),
		Format:   normalize.Tag(filters.Format),
	}
}
