// Package syncqueue drains locally queued feedback to the joke API.
package syncqueue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/giggleglide/giggleglide-engine/internal/domain"
	"github.com/giggleglide/giggleglide-engine/internal/errors"
	"github.com/giggleglide/giggleglide-engine/internal/events"
	"github.com/giggleglide/giggleglide-engine/internal/logger"
	"github.com/giggleglide/giggleglide-engine/internal/store"
)

const defaultMaxAttempts = 5

// Remote delivers feedback to the joke API.
type Remote interface {
	SubmitFeedback(ctx context.Context, record *domain.FeedbackRecord) error
}

// Connectivity reports current network state.
type Connectivity interface {
	Current() domain.NetworkState
}

// Options configures a Service.
type Options struct {
	// MaxAttempts is the delivery attempt cap per entry. Once reached the
	// record is marked failed but retained for inspection.
	MaxAttempts int
}

// drainCall is one in-flight drain. Concurrent Drain callers wait on done
// and share the result instead of starting a second pass.
type drainCall struct {
	done   chan struct{}
	result *domain.SyncResult
	err    error
}

// Service owns the sync queue. It is the only component that transitions
// feedback out of the pending state.
type Service struct {
	store        store.SyncStore
	remote       Remote
	connectivity Connectivity
	emitter      events.Emitter
	logger       *logger.Logger
	maxAttempts  int

	mu       sync.Mutex
	inFlight *drainCall
}

// NewService creates a sync queue service.
func NewService(st store.SyncStore, remote Remote, conn Connectivity, emitter events.Emitter, log *logger.Logger, opts Options) *Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	return &Service{
		store:        st,
		remote:       remote,
		connectivity: conn,
		emitter:      emitter,
		logger:       log,
		maxAttempts:  opts.MaxAttempts,
	}
}

// Enqueue adds or refreshes the queue entry for a pending feedback record
// and announces it. Re-enqueueing resets the entry's attempt count.
func (s *Service) Enqueue(ctx context.Context, record *domain.FeedbackRecord) error {
	if err := s.store.EnqueueSync(ctx, record.UserID, record.JokeID); err != nil {
		return errors.Wrap(err, errors.CodeStoreUnavailable, "enqueueing feedback")
	}

	pending, err := s.store.PendingSyncCount(ctx)
	if err != nil {
		// The enqueue itself succeeded; the count is informational.
		s.logger.WithError(err).Warn("pending count after enqueue failed")
		pending = 0
	}

	s.emitter.Emit(events.NewFeedbackQueuedEvent(record.UserID, record.JokeID, record.Sentiment, pending))
	return nil
}

// Drain pushes every deliverable queue entry to the API, oldest feedback
// first. Only one drain runs at a time; callers that arrive while one is in
// flight wait for it and share its result.
//
// Returns errors.CodeNetworkUnavailable without touching any entry when the
// device is offline at the start of the pass.
func (s *Service) Drain(ctx context.Context) (*domain.SyncResult, error) {
	s.mu.Lock()
	if call := s.inFlight; call != nil {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.result, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &drainCall{done: make(chan struct{})}
	s.inFlight = call
	s.mu.Unlock()

	call.result, call.err = s.drain(ctx)

	s.mu.Lock()
	s.inFlight = nil
	s.mu.Unlock()
	close(call.done)

	return call.result, call.err
}

// InProgress reports whether a drain is currently running.
func (s *Service) InProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight != nil
}

// PendingCount returns the number of deliverable queue entries.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	count, err := s.store.PendingSyncCount(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeStoreUnavailable, "counting pending feedback")
	}
	return count, nil
}

// LastSyncTime returns when a drain last delivered feedback, or nil if no
// drain has succeeded yet.
func (s *Service) LastSyncTime(ctx context.Context) (*time.Time, error) {
	value, err := s.store.GetMeta(ctx, store.MetaLastSyncedAt)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "reading last sync time")
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "parsing last sync time")
	}
	return &t, nil
}

// Clear discards every queue entry and returns how many were dropped.
// The queued feedback is lost; callers must treat this as an explicit,
// user-initiated action.
func (s *Service) Clear(ctx context.Context) (int, error) {
	dropped, err := s.store.ClearSyncQueue(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeStoreUnavailable, "clearing sync queue")
	}

	s.logger.Info("sync queue cleared", slog.Int("dropped", dropped))
	return dropped, nil
}

func (s *Service) drain(ctx context.Context) (*domain.SyncResult, error) {
	if s.connectivity.Current().Offline() {
		return nil, errors.NetworkUnavailable("cannot sync while offline")
	}

	entries, err := s.store.ListSyncQueue(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "listing sync queue")
	}

	result := &domain.SyncResult{Success: true}
	if len(entries) == 0 {
		// An online no-op pass still proves the queue is fully reconciled.
		if err := s.markSynced(ctx); err != nil {
			return nil, err
		}
		return result, nil
	}

	drainID := uuid.NewString()
	s.emitter.Emit(events.NewSyncStartedEvent(drainID, len(entries)))
	s.logger.Info("sync drain started",
		slog.String("drain_id", drainID),
		slog.Int("pending", len(entries)))

	completed := true
	for _, entry := range entries {
		// Connectivity can drop mid-drain. Stop without burning attempts;
		// the remaining entries are not the problem.
		if s.connectivity.Current().Offline() {
			s.logger.Warn("went offline mid-drain, stopping",
				slog.String("drain_id", drainID),
				slog.Int("synced", result.Synced))
			completed = false
			result.Success = false
			break
		}

		if err := s.deliver(ctx, entry, result); err != nil {
			// Transient delivery failure. Later entries would hit the same
			// outage, so stop here and let the next drain resume.
			completed = false
			result.Success = false
			break
		}
	}

	if result.Synced > 0 || completed {
		if err := s.markSynced(ctx); err != nil {
			return result, err
		}
	}
	if result.Failed > 0 {
		result.Success = false
	}

	s.emitter.Emit(events.NewSyncCompletedEvent(drainID, result.Synced, result.Failed, result.Success))
	s.logger.Info("sync drain finished",
		slog.String("drain_id", drainID),
		slog.Int("synced", result.Synced),
		slog.Int("failed", result.Failed),
		slog.Bool("success", result.Success))

	return result, nil
}

// deliver pushes one entry. A returned error means a transient failure that
// should stop the drain; permanent rejections are recorded in result and do
// not stop it.
func (s *Service) deliver(ctx context.Context, entry *domain.SyncQueueEntry, result *domain.SyncResult) error {
	record := &domain.FeedbackRecord{
		UserID:    entry.UserID,
		JokeID:    entry.JokeID,
		Sentiment: entry.Sentiment,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.EnqueuedAt,
	}

	submitErr := s.remote.SubmitFeedback(ctx, record)
	if submitErr == nil {
		if err := s.store.SetSyncState(ctx, entry.UserID, entry.JokeID, domain.SyncSynced); err != nil {
			return errors.Wrap(err, errors.CodeStoreUnavailable, "marking record synced")
		}
		if err := s.store.RemoveSyncEntry(ctx, entry.UserID, entry.JokeID); err != nil {
			return errors.Wrap(err, errors.CodeStoreUnavailable, "removing synced entry")
		}
		result.Synced++
		return nil
	}

	attempts, err := s.store.RecordSyncAttempt(ctx, entry.UserID, entry.JokeID, time.Now())
	if err != nil {
		return errors.Wrap(err, errors.CodeStoreUnavailable, "recording sync attempt")
	}

	permanent := errors.Is(submitErr, errors.ErrRemoteRejected) || attempts >= s.maxAttempts
	if permanent {
		// Retained as failed rather than deleted so the record can be
		// inspected and re-submitted by a new swipe.
		if err := s.store.SetSyncState(ctx, entry.UserID, entry.JokeID, domain.SyncFailed); err != nil {
			return errors.Wrap(err, errors.CodeStoreUnavailable, "marking record failed")
		}

		result.Failed++
		result.Errors = append(result.Errors, domain.SyncError{
			UserID:    entry.UserID,
			JokeID:    entry.JokeID,
			Attempts:  attempts,
			Permanent: true,
			Err:       submitErr.Error(),
		})
		s.emitter.Emit(events.NewSyncEntryFailedEvent(entry.UserID, entry.JokeID, attempts, true, submitErr.Error()))
		s.logger.WithError(submitErr).Warn("feedback permanently failed",
			slog.String("user_id", entry.UserID),
			slog.Int64("joke_id", entry.JokeID),
			slog.Int("attempts", attempts))
		return nil
	}

	// Transient failure: the entry stays pending for the next drain.
	result.Errors = append(result.Errors, domain.SyncError{
		UserID:   entry.UserID,
		JokeID:   entry.JokeID,
		Attempts: attempts,
		Err:      submitErr.Error(),
	})
	s.emitter.Emit(events.NewSyncEntryFailedEvent(entry.UserID, entry.JokeID, attempts, false, submitErr.Error()))
	s.logger.WithError(submitErr).Warn("feedback delivery failed, will retry",
		slog.String("user_id", entry.UserID),
		slog.Int64("joke_id", entry.JokeID),
		slog.Int("attempts", attempts))
	return submitErr
}

func (s *Service) markSynced(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.store.SetMeta(ctx, store.MetaLastSyncedAt, now); err != nil {
		return errors.Wrap(err, errors.CodeStoreUnavailable, "recording sync time")
	}
	return nil
}
