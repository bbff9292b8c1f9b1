package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/giggleglide/giggleglide-engine/internal/domain"
)

// enqueueFeedback creates a joke, a feedback record, and its queue entry.
func enqueueFeedback(t *testing.T, s *Store, userID string, jokeID int64, sentiment domain.Sentiment) {
	t.Helper()
	ctx := context.Background()
	insertTestJoke(t, s, jokeID, time.Now().UTC())
	if _, err := s.UpsertFeedback(ctx, userID, jokeID, sentiment); err != nil {
		t.Fatalf("UpsertFeedback: %v", err)
	}
	if err := s.EnqueueSync(ctx, userID, jokeID); err != nil {
		t.Fatalf("EnqueueSync: %v", err)
	}
}

func TestEnqueueSync_And_List(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	enqueueFeedback(t, s, "user-1", 1, domain.SentimentLike)
	enqueueFeedback(t, s, "user-1", 2, domain.SentimentDislike)

	entries, err := s.ListSyncQueue(ctx)
	if err != nil {
		t.Fatalf("ListSyncQueue: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Feedback creation order.
	if entries[0].JokeID != 1 || entries[1].JokeID != 2 {
		t.Errorf("unexpected order: %d, %d", entries[0].JokeID, entries[1].JokeID)
	}
	if entries[0].Sentiment != domain.SentimentLike {
		t.Errorf("Sentiment: got %q", entries[0].Sentiment)
	}
	if entries[0].Attempts != 0 {
		t.Errorf("Attempts: got %d, want 0", entries[0].Attempts)
	}
	if entries[0].LastAttemptAt != nil {
		t.Errorf("LastAttemptAt: got %v, want nil", entries[0].LastAttemptAt)
	}
}

func TestEnqueueSync_ResetsAttempts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	enqueueFeedback(t, s, "user-1", 1, domain.SentimentLike)

	if _, err := s.RecordSyncAttempt(ctx, "user-1", 1, time.Now()); err != nil {
		t.Fatalf("RecordSyncAttempt: %v", err)
	}
	if _, err := s.RecordSyncAttempt(ctx, "user-1", 1, time.Now()); err != nil {
		t.Fatalf("RecordSyncAttempt: %v", err)
	}

	// Re-enqueue resets the counter so a refreshed submission is not
	// immediately capped.
	if err := s.EnqueueSync(ctx, "user-1", 1); err != nil {
		t.Fatalf("EnqueueSync: %v", err)
	}

	entries, err := s.ListSyncQueue(ctx)
	if err != nil {
		t.Fatalf("ListSyncQueue: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Attempts != 0 {
		t.Errorf("Attempts after re-enqueue: got %d, want 0", entries[0].Attempts)
	}
}

func TestRecordSyncAttempt_Increments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	enqueueFeedback(t, s, "user-1", 1, domain.SentimentLike)

	at := time.Now().UTC()
	attempts, err := s.RecordSyncAttempt(ctx, "user-1", 1, at)
	if err != nil {
		t.Fatalf("RecordSyncAttempt: %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts: got %d, want 1", attempts)
	}

	attempts, err = s.RecordSyncAttempt(ctx, "user-1", 1, at.Add(time.Second))
	if err != nil {
		t.Fatalf("RecordSyncAttempt: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts: got %d, want 2", attempts)
	}

	entries, err := s.ListSyncQueue(ctx)
	if err != nil {
		t.Fatalf("ListSyncQueue: %v", err)
	}
	if entries[0].LastAttemptAt == nil {
		t.Fatal("LastAttemptAt should be set after an attempt")
	}
}

func TestRemoveSyncEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	enqueueFeedback(t, s, "user-1", 1, domain.SentimentLike)

	if err := s.RemoveSyncEntry(ctx, "user-1", 1); err != nil {
		t.Fatalf("RemoveSyncEntry: %v", err)
	}

	count, err := s.PendingSyncCount(ctx)
	if err != nil {
		t.Fatalf("PendingSyncCount: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty queue, got %d", count)
	}

	// Removing again is a no-op.
	if err := s.RemoveSyncEntry(ctx, "user-1", 1); err != nil {
		t.Fatalf("RemoveSyncEntry twice: %v", err)
	}
}

func TestListSyncQueue_ExcludesFailed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	enqueueFeedback(t, s, "user-1", 1, domain.SentimentLike)
	enqueueFeedback(t, s, "user-1", 2, domain.SentimentDislike)

	// A failed record stays in the queue table but is no longer deliverable.
	if err := s.SetSyncState(ctx, "user-1", 1, domain.SyncFailed); err != nil {
		t.Fatalf("SetSyncState: %v", err)
	}

	entries, err := s.ListSyncQueue(ctx)
	if err != nil {
		t.Fatalf("ListSyncQueue: %v", err)
	}
	if len(entries) != 1 || entries[0].JokeID != 2 {
		t.Fatalf("expected only joke 2 deliverable, got %+v", entries)
	}

	count, err := s.PendingSyncCount(ctx)
	if err != nil {
		t.Fatalf("PendingSyncCount: %v", err)
	}
	if count != 1 {
		t.Errorf("pending count: got %d, want 1", count)
	}

	// The failed entry is still physically present for diagnostics.
	var rows int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sync_queue`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 2 {
		t.Errorf("queue rows: got %d, want 2 (failed entry retained)", rows)
	}
}

func TestClearSyncQueue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	enqueueFeedback(t, s, "user-1", 1, domain.SentimentLike)
	enqueueFeedback(t, s, "user-2", 2, domain.SentimentNeutral)

	n, err := s.ClearSyncQueue(ctx)
	if err != nil {
		t.Fatalf("ClearSyncQueue: %v", err)
	}
	if n != 2 {
		t.Errorf("cleared: got %d, want 2", n)
	}

	count, err := s.PendingSyncCount(ctx)
	if err != nil {
		t.Fatalf("PendingSyncCount: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty queue, got %d", count)
	}
}
