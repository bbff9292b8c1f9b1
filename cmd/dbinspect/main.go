// Package main inspects an engine database and prints sync diagnostics.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "modernc.org/sqlite"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/GiggleGlide/engine.db")
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Engine Database Inspection ===")
	fmt.Println()

	var jokeCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM jokes`).Scan(&jokeCount); err != nil {
		log.Fatalf("Failed to count jokes: %v", err)
	}
	fmt.Printf("Jokes banked:       %d\n", jokeCount)

	var seenCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM seen_markers`).Scan(&seenCount); err != nil {
		log.Fatalf("Failed to count seen markers: %v", err)
	}
	fmt.Printf("Seen markers:       %d\n", seenCount)

	fmt.Println()
	fmt.Println("Feedback by sync state:")
	rows, err := db.Query(`SELECT sync_state, COUNT(*) FROM feedback GROUP BY sync_state ORDER BY sync_state`)
	if err != nil {
		log.Fatalf("Failed to group feedback: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			log.Fatalf("Failed to scan feedback row: %v", err)
		}
		fmt.Printf("  %-8s %d\n", state, count)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Failed iterating feedback rows: %v", err)
	}

	fmt.Println()
	fmt.Println("Sync queue:")
	queueRows, err := db.Query(`
		SELECT sq.user_id, sq.joke_id, f.sentiment, f.sync_state, sq.attempts, sq.enqueued_at
		FROM sync_queue sq
		JOIN feedback f ON f.user_id = sq.user_id AND f.joke_id = sq.joke_id
		ORDER BY f.created_at ASC`)
	if err != nil {
		log.Fatalf("Failed to list sync queue: %v", err)
	}
	defer queueRows.Close()

	entries := 0
	for queueRows.Next() {
		var userID, sentiment, state, enqueuedAt string
		var jokeID int64
		var attempts int
		if err := queueRows.Scan(&userID, &jokeID, &sentiment, &state, &attempts, &enqueuedAt); err != nil {
			log.Fatalf("Failed to scan queue row: %v", err)
		}
		fmt.Printf("  %s joke=%d %s state=%s attempts=%d enqueued=%s\n",
			userID, jokeID, sentiment, state, attempts, enqueuedAt)
		entries++
	}
	if err := queueRows.Err(); err != nil {
		log.Fatalf("Failed iterating queue rows: %v", err)
	}
	if entries == 0 {
		fmt.Println("  (empty)")
	}

	var lastSynced sql.NullString
	err = db.QueryRow(`SELECT value FROM engine_meta WHERE key = 'last_synced_at'`).Scan(&lastSynced)
	if err != nil && err != sql.ErrNoRows {
		log.Fatalf("Failed to read last sync time: %v", err)
	}

	fmt.Println()
	if lastSynced.Valid {
		fmt.Printf("Last synced at: %s\n", lastSynced.String)
	} else {
		fmt.Println("Last synced at: never")
	}
}
