package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/giggleglide/giggleglide-engine/internal/domain"
	"github.com/giggleglide/giggleglide-engine/internal/store"
)

func TestUpsertAndGetJoke(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	joke := &domain.Joke{
		ID:        42,
		Text:      "I would tell you a UDP joke, but you might not get it.",
		Language:  "en",
		Style:     "one-liner",
		Topic:     "tech",
		Tone:      "dry",
		Format:    "short",
		FetchedAt: now,
	}

	if err := s.UpsertJoke(ctx, joke); err != nil {
		t.Fatalf("UpsertJoke: %v", err)
	}

	got, err := s.GetJoke(ctx, 42)
	if err != nil {
		t.Fatalf("GetJoke: %v", err)
	}

	if got.ID != joke.ID {
		t.Errorf("ID: got %d, want %d", got.ID, joke.ID)
	}
	if got.Text != joke.Text {
		t.Errorf("Text: got %q, want %q", got.Text, joke.Text)
	}
	if got.Language != joke.Language {
		t.Errorf("Language: got %q, want %q", got.Language, joke.Language)
	}
	if got.Style != joke.Style {
		t.Errorf("Style: got %q, want %q", got.Style, joke.Style)
	}
	if got.Topic != joke.Topic {
		t.Errorf("Topic: got %q, want %q", got.Topic, joke.Topic)
	}
	if got.FetchedAt.Unix() != joke.FetchedAt.Unix() {
		t.Errorf("FetchedAt: got %v, want %v", got.FetchedAt, joke.FetchedAt)
	}
}

func TestGetJoke_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetJoke(context.Background(), 999)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertJoke_KeepsFetchedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	original := time.Now().UTC().Add(-time.Hour)
	insertTestJoke(t, s, 1, original)

	// Re-upsert the same joke with fresh text; fetched_at must not move.
	refreshed := &domain.Joke{ID: 1, Text: "updated text", Language: "en", FetchedAt: time.Now().UTC()}
	if err := s.UpsertJoke(ctx, refreshed); err != nil {
		t.Fatalf("UpsertJoke refresh: %v", err)
	}

	got, err := s.GetJoke(ctx, 1)
	if err != nil {
		t.Fatalf("GetJoke: %v", err)
	}
	if got.Text != "updated text" {
		t.Errorf("Text not refreshed: %q", got.Text)
	}
	if got.FetchedAt.Unix() != original.Unix() {
		t.Errorf("FetchedAt moved on upsert: got %v, want %v", got.FetchedAt, original)
	}
}

func TestGetUnseenJoke_OldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	insertTestJoke(t, s, 3, now.Add(-1*time.Minute))
	insertTestJoke(t, s, 1, now.Add(-3*time.Minute))
	insertTestJoke(t, s, 2, now.Add(-2*time.Minute))

	joke, err := s.GetUnseenJoke(ctx, "user-1", domain.JokeFilters{})
	if err != nil {
		t.Fatalf("GetUnseenJoke: %v", err)
	}
	if joke.ID != 1 {
		t.Errorf("expected oldest-fetched joke 1, got %d", joke.ID)
	}
}

func TestGetUnseenJoke_SkipsSeen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	insertTestJoke(t, s, 1, now.Add(-2*time.Minute))
	insertTestJoke(t, s, 2, now.Add(-1*time.Minute))

	if err := s.MarkSeen(ctx, "user-1", 1); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	joke, err := s.GetUnseenJoke(ctx, "user-1", domain.JokeFilters{})
	if err != nil {
		t.Fatalf("GetUnseenJoke: %v", err)
	}
	if joke.ID != 2 {
		t.Errorf("expected joke 2, got %d", joke.ID)
	}

	// Seen markers are per user.
	joke, err = s.GetUnseenJoke(ctx, "user-2", domain.JokeFilters{})
	if err != nil {
		t.Fatalf("GetUnseenJoke other user: %v", err)
	}
	if joke.ID != 1 {
		t.Errorf("expected joke 1 for other user, got %d", joke.ID)
	}
}

func TestGetUnseenJoke_Exhausted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestJoke(t, s, 1, time.Now().UTC())
	if err := s.MarkSeen(ctx, "user-1", 1); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	_, err := s.GetUnseenJoke(ctx, "user-1", domain.JokeFilters{})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUnseenJoke_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := s.UpsertJoke(ctx, &domain.Joke{ID: 1, Text: "a", Language: "en", Style: "pun", FetchedAt: now.Add(-2 * time.Minute)}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertJoke(ctx, &domain.Joke{ID: 2, Text: "b", Language: "de", Style: "pun", FetchedAt: now.Add(-1 * time.Minute)}); err != nil {
		t.Fatal(err)
	}

	joke, err := s.GetUnseenJoke(ctx, "user-1", domain.JokeFilters{Language: "de"})
	if err != nil {
		t.Fatalf("GetUnseenJoke: %v", err)
	}
	if joke.ID != 2 {
		t.Errorf("expected german joke 2, got %d", joke.ID)
	}

	_, err = s.GetUnseenJoke(ctx, "user-1", domain.JokeFilters{Language: "fr"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unmatched filter, got %v", err)
	}
}

func TestGetAnyJoke_IgnoresSeen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestJoke(t, s, 1, time.Now().UTC())
	if err := s.MarkSeen(ctx, "user-1", 1); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	joke, err := s.GetAnyJoke(ctx, domain.JokeFilters{})
	if err != nil {
		t.Fatalf("GetAnyJoke: %v", err)
	}
	if joke.ID != 1 {
		t.Errorf("expected joke 1, got %d", joke.ID)
	}
}

func TestMarkSeen_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestJoke(t, s, 1, time.Now().UTC())

	if err := s.MarkSeen(ctx, "user-1", 1); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if err := s.MarkSeen(ctx, "user-1", 1); err != nil {
		t.Fatalf("MarkSeen twice: %v", err)
	}

	seen, err := s.IsSeen(ctx, "user-1", 1)
	if err != nil {
		t.Fatalf("IsSeen: %v", err)
	}
	if !seen {
		t.Error("expected joke to be seen")
	}
}

func TestClearSeen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertTestJoke(t, s, 1, time.Now().UTC())
	insertTestJoke(t, s, 2, time.Now().UTC())
	if err := s.MarkSeen(ctx, "user-1", 1); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkSeen(ctx, "user-1", 2); err != nil {
		t.Fatal(err)
	}

	n, err := s.ClearSeen(ctx, "user-1")
	if err != nil {
		t.Fatalf("ClearSeen: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 markers cleared, got %d", n)
	}

	seen, err := s.IsSeen(ctx, "user-1", 1)
	if err != nil {
		t.Fatalf("IsSeen: %v", err)
	}
	if seen {
		t.Error("marker should be gone after ClearSeen")
	}
}

func TestCountJokes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := s.UpsertJoke(ctx, &domain.Joke{ID: 1, Text: "a", Language: "en", FetchedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertJoke(ctx, &domain.Joke{ID: 2, Text: "b", Language: "de", FetchedAt: now}); err != nil {
		t.Fatal(err)
	}

	total, err := s.CountJokes(ctx, domain.JokeFilters{})
	if err != nil {
		t.Fatalf("CountJokes: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 jokes, got %d", total)
	}

	german, err := s.CountJokes(ctx, domain.JokeFilters{Language: "de"})
	if err != nil {
		t.Fatalf("CountJokes filtered: %v", err)
	}
	if german != 1 {
		t.Errorf("expected 1 german joke, got %d", german)
	}
}
