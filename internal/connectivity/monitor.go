// Package connectivity tracks network state and notifies listeners on transitions.
package connectivity

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/giggleglide/giggleglide-engine/internal/domain"
	"github.com/giggleglide/giggleglide-engine/internal/events"
	"github.com/giggleglide/giggleglide-engine/internal/logger"
)

// Prober determines the current network state.
type Prober interface {
	Probe(ctx context.Context) (domain.NetworkState, error)
}

// Listener receives network state transitions.
type Listener func(state domain.NetworkState)

// Options configures a Monitor.
type Options struct {
	// PollInterval is how often the prober runs. Zero disables polling,
	// leaving state changes to Refresh and SetState callers.
	PollInterval time.Duration
	// ProbeTimeout bounds each probe run.
	ProbeTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 2 * time.Second
	}
}

type subscription struct {
	id string
	fn Listener
}

// Monitor tracks network state. Transitions are delivered to listeners
// in order, one at a time, from a single dispatch goroutine.
type Monitor struct {
	prober  Prober
	emitter events.Emitter
	logger  *logger.Logger
	opts    Options

	mu    sync.Mutex
	state domain.NetworkState
	// transitions is written while holding mu so that listeners observe
	// state changes in the order they happened.
	transitions chan domain.NetworkState

	subMu   sync.Mutex
	subs    []subscription
	nextSub int

	wg sync.WaitGroup
}

// NewMonitor creates a Monitor. The initial state is fully offline until the
// first probe or SetState call.
func NewMonitor(prober Prober, emitter events.Emitter, log *logger.Logger, opts Options) *Monitor {
	opts.setDefaults()
	return &Monitor{
		prober:      prober,
		emitter:     emitter,
		logger:      log,
		opts:        opts,
		state:       domain.NetworkState{Transport: domain.TransportNone},
		transitions: make(chan domain.NetworkState, 256),
	}
}

// Start runs the poll and dispatch loops until the context is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.dispatchLoop(ctx)

	m.logger.Info("connectivity monitor starting",
		slog.Duration("poll_interval", m.opts.PollInterval))

	// Establish a baseline before the first tick.
	if _, err := m.Refresh(ctx); err != nil {
		m.logger.WithError(err).Warn("initial connectivity probe failed")
	}

	if m.opts.PollInterval <= 0 {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.opts.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := m.Refresh(ctx); err != nil {
					m.logger.WithError(err).Debug("connectivity probe failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown waits for the poll and dispatch loops to exit.
// Start's context must already be cancelled.
func (m *Monitor) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current returns the last known network state.
func (m *Monitor) Current() domain.NetworkState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Refresh probes immediately and returns the resulting state.
// A probe error leaves the previous state in place.
func (m *Monitor) Refresh(ctx context.Context) (domain.NetworkState, error) {
	probeCtx, cancel := context.WithTimeout(ctx, m.opts.ProbeTimeout)
	defer cancel()

	next, err := m.prober.Probe(probeCtx)
	if err != nil {
		return m.Current(), err
	}

	m.SetState(next)
	return next, nil
}

// SetState records a network state observed outside the prober, such as a
// host platform callback. No-op when the state is unchanged.
func (m *Monitor) SetState(next domain.NetworkState) {
	m.mu.Lock()
	prev := m.state
	if prev == next {
		m.mu.Unlock()
		return
	}
	m.state = next
	// Queue while holding mu so transitions stay ordered.
	m.transitions <- next
	m.mu.Unlock()

	m.logger.Info("network state changed",
		slog.Bool("was_offline", prev.Offline()),
		slog.Bool("offline", next.Offline()),
		slog.String("transport", string(next.Transport)))
}

// Subscribe registers a listener for state transitions and returns a
// function that removes it. The listener is called for every transition
// that happens after registration, in order.
func (m *Monitor) Subscribe(fn func(state domain.NetworkState)) func() {
	m.subMu.Lock()
	m.nextSub++
	sub := subscription{id: subID(m.nextSub), fn: fn}
	m.subs = append(m.subs, sub)
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		for i, s := range m.subs {
			if s.id == sub.id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

func (m *Monitor) dispatchLoop(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case state := <-m.transitions:
			m.emitter.Emit(events.NewNetworkChangedEvent(state))
			m.notify(state)
		case <-ctx.Done():
			// Flush queued transitions so late listeners still see them.
			for {
				select {
				case state := <-m.transitions:
					m.notify(state)
				default:
					return
				}
			}
		}
	}
}

func (m *Monitor) notify(state domain.NetworkState) {
	m.subMu.Lock()
	subs := make([]subscription, len(m.subs))
	copy(subs, m.subs)
	m.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(state)
	}
}

func subID(n int) string {
	return "listener-" + strconv.Itoa(n)
}
