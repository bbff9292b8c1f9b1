// Package scheduler triggers background sync drains on a cron interval and
// on connectivity recovery.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/giggleglide/giggleglide-engine/internal/domain"
	"github.com/giggleglide/giggleglide-engine/internal/errors"
	"github.com/giggleglide/giggleglide-engine/internal/logger"
)

// Drainer is the sync queue surface the scheduler drives.
type Drainer interface {
	Drain(ctx context.Context) (*domain.SyncResult, error)
	PendingCount(ctx context.Context) (int, error)
}

// Connectivity reports network state and transitions.
type Connectivity interface {
	Current() domain.NetworkState
	Refresh(ctx context.Context) (domain.NetworkState, error)
	Subscribe(fn func(state domain.NetworkState)) func()
}

// JokeCounter reports local bank size, used as a cache health signal.
type JokeCounter interface {
	CountJokes(ctx context.Context, filters domain.JokeFilters) (int, error)
}

// Options configures a Scheduler.
type Options struct {
	// Interval is a cron spec, typically "@every 5m". Empty disables the
	// periodic trigger; recovery drains still run.
	Interval string
}

// Scheduler runs drains in the background. Drains are skipped while offline
// rather than attempted and failed.
type Scheduler struct {
	drainer      Drainer
	connectivity Connectivity
	jokes        JokeCounter
	logger       *logger.Logger
	interval     string
	cron         *cron.Cron

	mu          sync.Mutex
	lastRun     time.Time
	unsubscribe func()
}

// New creates a background sync scheduler.
func New(drainer Drainer, conn Connectivity, jokes JokeCounter, log *logger.Logger, opts Options) *Scheduler {
	return &Scheduler{
		drainer:      drainer,
		connectivity: conn,
		jokes:        jokes,
		logger:       log,
		interval:     opts.Interval,
		cron:         cron.New(),
	}
}

// Start registers the periodic trigger and the connectivity recovery trigger.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval != "" {
		if _, err := s.cron.AddFunc(s.interval, s.triggerSync); err != nil {
			return errors.Wrapf(err, errors.CodeValidation, "invalid sync interval %q", s.interval)
		}
		s.cron.Start()
	}

	// Coming back online is the most valuable moment to drain.
	s.unsubscribe = s.connectivity.Subscribe(func(state domain.NetworkState) {
		if !state.Offline() {
			s.logger.Info("connectivity restored, triggering sync")
			go s.triggerSync()
		}
	})

	s.logger.Info("background sync scheduler started",
		slog.String("interval", s.interval))
	return nil
}

// Stop halts the periodic trigger and detaches from connectivity updates.
// A drain already in flight is left to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	s.logger.Info("background sync scheduler stopped")
}

// ForceSyncNow drains immediately regardless of the schedule. Unlike the
// background triggers it reports the offline error to the caller.
func (s *Scheduler) ForceSyncNow(ctx context.Context) (*domain.SyncResult, error) {
	s.recordRun()
	return s.drainer.Drain(ctx)
}

// GetStats returns an aggregate view for diagnostics.
func (s *Scheduler) GetStats(ctx context.Context) (*domain.BackgroundSyncStats, error) {
	pending, err := s.drainer.PendingCount(ctx)
	if err != nil {
		return nil, err
	}

	health, err := s.jokes.CountJokes(ctx, domain.JokeFilters{})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	lastRun := s.lastRun
	s.mu.Unlock()

	return &domain.BackgroundSyncStats{
		Pending:     pending,
		LastRun:     lastRun,
		CacheHealth: health,
	}, nil
}

func (s *Scheduler) triggerSync() {
	state, err := s.connectivity.Refresh(context.Background())
	if err != nil {
		state = s.connectivity.Current()
	}
	if state.Offline() {
		s.logger.Debug("skipping scheduled sync, device offline")
		return
	}

	s.recordRun()

	result, err := s.drainer.Drain(context.Background())
	if err != nil {
		s.logger.WithError(err).Warn("scheduled sync failed")
		return
	}

	if result.Synced > 0 || result.Failed > 0 {
		s.logger.Info("scheduled sync finished",
			slog.Int("synced", result.Synced),
			slog.Int("failed", result.Failed))
	}
}

func (s *Scheduler) recordRun() {
	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()
}
