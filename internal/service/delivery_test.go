package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giggleglide/giggleglide-engine/internal/domain"
	"github.com/giggleglide/giggleglide-engine/internal/errors"
	"github.com/giggleglide/giggleglide-engine/internal/events"
	"github.com/giggleglide/giggleglide-engine/internal/logger"
	"github.com/giggleglide/giggleglide-engine/internal/store/sqlite"
	"github.com/giggleglide/giggleglide-engine/internal/syncqueue"
	"github.com/giggleglide/giggleglide-engine/internal/validation"
)

type fakeAPI struct {
	mu    sync.Mutex
	calls int
	joke  *domain.Joke
	err   error
}

func (a *fakeAPI) FetchNextJoke(context.Context, string, domain.JokeFilters) (*domain.Joke, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	joke := *a.joke
	joke.FetchedAt = time.Now().UTC()
	return &joke, nil
}

type fakeSubmitter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSubmitter) SubmitFeedback(context.Context, *domain.FeedbackRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fakeConnectivity struct {
	mu      sync.Mutex
	offline bool
}

func (c *fakeConnectivity) Current() domain.NetworkState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offline {
		return domain.NetworkState{Transport: domain.TransportNone}
	}
	return domain.NetworkState{IsConnected: true, IsInternetReachable: true, Transport: domain.TransportWifi}
}

func (c *fakeConnectivity) Refresh(context.Context) (domain.NetworkState, error) {
	return c.Current(), nil
}

func (c *fakeConnectivity) setOffline(offline bool) {
	c.mu.Lock()
	c.offline = offline
	c.mu.Unlock()
}

type testEngine struct {
	svc     *DeliveryService
	store   *sqlite.Store
	api     *fakeAPI
	remote  *fakeSubmitter
	conn    *fakeConnectivity
	nowBase time.Time
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "engine.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	log := &logger.Logger{Logger: slog.New(slog.DiscardHandler)}
	api := &fakeAPI{err: errors.NetworkUnavailable("no api in this test")}
	remote := &fakeSubmitter{}
	conn := &fakeConnectivity{offline: true}

	broadcaster := events.NewBroadcaster(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	go broadcaster.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = broadcaster.Shutdown(context.Background())
	})

	queue := syncqueue.NewService(st, remote, conn, broadcaster, log, syncqueue.Options{})
	svc := NewDeliveryService(st, api, queue, conn, broadcaster, validation.New(), log)
	require.NoError(t, svc.Initialize(context.Background()))

	return &testEngine{
		svc:     svc,
		store:   st,
		api:     api,
		remote:  remote,
		conn:    conn,
		nowBase: time.Now().UTC(),
	}
}

func (e *testEngine) seedJoke(t *testing.T, id int64, ageOffset time.Duration) {
	t.Helper()
	require.NoError(t, e.store.UpsertJoke(context.Background(), &domain.Joke{
		ID:        id,
		Text:      "joke text",
		Language:  "en",
		FetchedAt: e.nowBase.Add(ageOffset),
	}))
}

func TestInitialize_Idempotent(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.svc.Initialize(context.Background()))
	require.NoError(t, e.svc.Initialize(context.Background()))
}

func TestOperationsBeforeInitializeFail(t *testing.T) {
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "engine.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	log := &logger.Logger{Logger: slog.New(slog.DiscardHandler)}
	conn := &fakeConnectivity{}
	queue := syncqueue.NewService(st, &fakeSubmitter{}, conn, events.NoopEmitter{}, log, syncqueue.Options{})
	svc := NewDeliveryService(st, &fakeAPI{}, queue, conn, events.NewBroadcaster(slog.New(slog.DiscardHandler)), validation.New(), log)

	_, err = svc.GetNextUnseenJoke(context.Background(), "user-1", domain.JokeFilters{})
	assert.Error(t, err)

	// Close without Initialize is safe.
	assert.NoError(t, svc.Close())
}

func TestGetNextUnseenJoke_PrefersAPIWhenOnline(t *testing.T) {
	e := newTestEngine(t)
	e.conn.setOffline(false)
	e.api.err = nil
	e.api.joke = &domain.Joke{ID: 100, Text: "fresh from the api", Language: "en"}

	delivered, err := e.svc.GetNextUnseenJoke(context.Background(), "user-1", domain.JokeFilters{})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceAPI, delivered.Source)
	assert.True(t, delivered.FromNetwork)
	assert.Equal(t, int64(100), delivered.Joke.ID)

	// The fetched joke is banked and marked seen.
	banked, err := e.store.GetJoke(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, "fresh from the api", banked.Text)

	seen, err := e.store.IsSeen(context.Background(), "user-1", 100)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestGetNextUnseenJoke_SkipsAPIWhenOffline(t *testing.T) {
	e := newTestEngine(t)
	e.conn.setOffline(true)
	e.seedJoke(t, 1, 0)

	delivered, err := e.svc.GetNextUnseenJoke(context.Background(), "user-1", domain.JokeFilters{})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceCache, delivered.Source)
	assert.False(t, delivered.FromNetwork)
	assert.Equal(t, 0, e.api.calls)
}

func TestGetNextUnseenJoke_FallsBackToCacheOnAPIError(t *testing.T) {
	e := newTestEngine(t)
	e.conn.setOffline(false)
	e.api.err = errors.NetworkUnavailable("api down")
	e.seedJoke(t, 1, 0)

	delivered, err := e.svc.GetNextUnseenJoke(context.Background(), "user-1", domain.JokeFilters{})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceCache, delivered.Source)
	assert.Equal(t, 1, e.api.calls)
}

func TestGetNextUnseenJoke_SeenJokesNeverRedeliveredFromCache(t *testing.T) {
	e := newTestEngine(t)
	e.seedJoke(t, 1, 0)
	e.seedJoke(t, 2, time.Minute)
	e.seedJoke(t, 3, 2*time.Minute)

	ctx := context.Background()
	var order []int64
	for range 3 {
		delivered, err := e.svc.GetNextUnseenJoke(ctx, "user-1", domain.JokeFilters{})
		require.NoError(t, err)
		require.Equal(t, domain.SourceCache, delivered.Source)
		order = append(order, delivered.Joke.ID)
	}

	// Oldest fetched first, each exactly once.
	assert.Equal(t, []int64{1, 2, 3}, order)

	// Exhausted cache falls through to already-seen jokes.
	delivered, err := e.svc.GetNextUnseenJoke(ctx, "user-1", domain.JokeFilters{})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceDatabase, delivered.Source)
	assert.Equal(t, int64(1), delivered.Joke.ID)
}

func TestGetNextUnseenJoke_EmptyBankReturnsNoJoke(t *testing.T) {
	e := newTestEngine(t)

	delivered, err := e.svc.GetNextUnseenJoke(context.Background(), "user-1", domain.JokeFilters{})
	require.NoError(t, err)

	assert.True(t, delivered.None())
	assert.Equal(t, domain.SourceNone, delivered.Source)
}

func TestGetNextUnseenJoke_SeenStateIsPerUser(t *testing.T) {
	e := newTestEngine(t)
	e.seedJoke(t, 1, 0)

	ctx := context.Background()
	first, err := e.svc.GetNextUnseenJoke(ctx, "user-1", domain.JokeFilters{})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceCache, first.Source)

	// A different user still sees the joke as fresh.
	second, err := e.svc.GetNextUnseenJoke(ctx, "user-2", domain.JokeFilters{})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceCache, second.Source)
	assert.Equal(t, int64(1), second.Joke.ID)
}

func TestGetNextUnseenJoke_FiltersNormalized(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.store.UpsertJoke(context.Background(), &domain.Joke{
		ID:        1,
		Text:      "german joke",
		Language:  "de",
		Style:     "pun",
		FetchedAt: e.nowBase,
	}))

	// Host passes a platform-style locale and mixed-case tag.
	delivered, err := e.svc.GetNextUnseenJoke(context.Background(), "user-1", domain.JokeFilters{
		Language: "de_DE",
		Style:    "  PUN ",
	})
	require.NoError(t, err)
	require.False(t, delivered.None())
	assert.Equal(t, int64(1), delivered.Joke.ID)
}

func TestGetNextUnseenJoke_ValidatesUserID(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.svc.GetNextUnseenJoke(context.Background(), "", domain.JokeFilters{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestSubmitFeedback_OfflineRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	e.conn.setOffline(true)
	e.seedJoke(t, 1, 0)

	ctx := context.Background()
	record, err := e.svc.SubmitFeedback(ctx, "user-1", 1, domain.SentimentLike)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncPending, record.SyncState)

	status, err := e.svc.GetSyncStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.PendingCount)
	assert.Nil(t, status.LastSyncedAt)

	// Forcing a sync while offline fails without touching the queue.
	_, err = e.svc.ForceSyncNow(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNetworkUnavailable))

	// Back online, the queued swipe reaches the API.
	e.conn.setOffline(false)
	result, err := e.svc.ForceSyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)

	status, err = e.svc.GetSyncStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.PendingCount)
	require.NotNil(t, status.LastSyncedAt)
}

func TestSubmitFeedback_OverwriteKeepsSingleRecord(t *testing.T) {
	e := newTestEngine(t)
	e.seedJoke(t, 1, 0)

	ctx := context.Background()
	first, err := e.svc.SubmitFeedback(ctx, "user-1", 1, domain.SentimentLike)
	require.NoError(t, err)

	second, err := e.svc.SubmitFeedback(ctx, "user-1", 1, domain.SentimentDislike)
	require.NoError(t, err)

	// Same record, new sentiment.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.SentimentDislike, second.Sentiment)

	status, err := e.svc.GetSyncStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.PendingCount)
}

func TestSubmitFeedback_UnknownJoke(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.svc.SubmitFeedback(context.Background(), "user-1", 999, domain.SentimentLike)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSubmitFeedback_InvalidSentiment(t *testing.T) {
	e := newTestEngine(t)
	e.seedJoke(t, 1, 0)

	_, err := e.svc.SubmitFeedback(context.Background(), "user-1", 1, domain.Sentiment("meh"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestClearPendingSync(t *testing.T) {
	e := newTestEngine(t)
	e.seedJoke(t, 1, 0)
	e.seedJoke(t, 2, time.Minute)

	ctx := context.Background()
	_, err := e.svc.SubmitFeedback(ctx, "user-1", 1, domain.SentimentLike)
	require.NoError(t, err)
	_, err = e.svc.SubmitFeedback(ctx, "user-1", 2, domain.SentimentDislike)
	require.NoError(t, err)

	dropped, err := e.svc.ClearPendingSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)

	status, err := e.svc.GetSyncStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.PendingCount)
}

func TestSubscribe_ReceivesFeedbackQueuedEvent(t *testing.T) {
	e := newTestEngine(t)
	e.seedJoke(t, 1, 0)

	sub, err := e.svc.Subscribe("user-1")
	require.NoError(t, err)
	defer e.svc.Unsubscribe(sub.ID)

	_, err = e.svc.SubmitFeedback(context.Background(), "user-1", 1, domain.SentimentLike)
	require.NoError(t, err)

	select {
	case ev := <-sub.EventChan:
		assert.Equal(t, events.EventFeedbackQueued, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestClearSeenHistory(t *testing.T) {
	e := newTestEngine(t)
	e.seedJoke(t, 1, 0)

	ctx := context.Background()
	_, err := e.svc.GetNextUnseenJoke(ctx, "user-1", domain.JokeFilters{})
	require.NoError(t, err)

	cleared, err := e.svc.ClearSeenHistory(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	// The joke is fresh again.
	delivered, err := e.svc.GetNextUnseenJoke(ctx, "user-1", domain.JokeFilters{})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceCache, delivered.Source)
}
