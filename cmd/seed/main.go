// Package main provides a tool to seed the local joke bank from a JSON file.
//
// This loads jokes into the engine database so the cache fallback has
// content before the first successful API fetch.
//
// Usage:
//
//	DB_PATH=~/GiggleGlide/engine.db go run ./cmd/seed --file jokes.json
//	go run ./cmd/seed --file jokes.json --db-path /tmp/engine.db
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/giggleglide/giggleglide-engine/internal/domain"
	"github.com/giggleglide/giggleglide-engine/internal/normalize"
	"github.com/giggleglide/giggleglide-engine/internal/store/sqlite"
)

var (
	file   = flag.String("file", "jokes.json", "JSON file holding an array of jokes")
	dbPath = flag.String("db-path", "", "Path to the engine SQLite database (defaults to $DB_PATH)")
)

type seedJoke struct {
	ID       int64  `json:"id"`
	Text     string `json:"text"`
	Language string `json:"language"`
	Style    string `json:"style"`
	Topic    string `json:"topic"`
	Tone     string `json:"tone"`
	Format   string `json:"format"`
}

func main() {
	flag.Parse()

	path := *dbPath
	if path == "" {
		path = os.Getenv("DB_PATH")
	}
	if path == "" {
		path = os.ExpandEnv("$HOME/GiggleGlide/engine.db")
	}

	fmt.Printf("Opening database at: %s\n", path)

	s, err := sqlite.Open(path, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *file, err)
	}

	var jokes []seedJoke
	if err := json.Unmarshal(data, &jokes); err != nil {
		log.Fatalf("Failed to parse %s: %v", *file, err)
	}

	ctx := context.Background()
	loaded := 0
	skipped := 0

	// Stagger FetchedAt so oldest-first selection has a stable order.
	base := time.Now().UTC().Add(-time.Duration(len(jokes)) * time.Second)

	for i, j := range jokes {
		if j.ID == 0 || j.Text == "" {
			fmt.Printf("  skipping entry %d: missing id or text\n", i)
			skipped++
			continue
		}

		err := s.UpsertJoke(ctx, &domain.Joke{
			ID:        j.ID,
			Text:      j.Text,
			Language:  normalize.Language(j.Language),
			Style:     normalize.Tag(j.Style),
			Topic:     normalize.Tag(j.Topic),
			Tone:      normalize.Tag(j.Tone),
			Format:    normalize.Tag(j.Format),
			FetchedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			log.Fatalf("Failed to upsert joke %d: %v", j.ID, err)
		}
		loaded++
	}

	total, err := s.CountJokes(ctx, domain.JokeFilters{})
	if err != nil {
		log.Fatalf("Failed to count jokes: %v", err)
	}

	fmt.Printf("\nSeeded %d jokes (%d skipped), bank now holds %d\n", loaded, skipped, total)
}
