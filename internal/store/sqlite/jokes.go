package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/giggleglide/giggleglide-engine/internal/domain"
	"github.com/giggleglide/giggleglide-engine/internal/store"
)

// jokeColumns is the ordered list of columns selected in joke queries.
// Must match the scan order in scanJoke.
const jokeColumns = `id, text, language, style, topic, tone, format, fetched_at`

// scanJoke scans a sql.Row (or sql.Rows via its Scan method) into a domain.Joke.
func scanJoke(scanner interface{ Scan(dest ...any) error }) (*domain.Joke, error) {
	var j domain.Joke
	var fetchedAt string

	err := scanner.Scan(
		&j.ID,
		&j.Text,
		&j.Language,
		&j.Style,
		&j.Topic,
		&j.Tone,
		&j.Format,
		&fetchedAt,
	)
	if err != nil {
		return nil, err
	}

	j.FetchedAt, err = parseTime(fetchedAt)
	if err != nil {
		return nil, err
	}

	return &j, nil
}

// filterClause builds WHERE fragments for joke filters, prefixing columns
// with the given table alias.
func filterClause(alias string, f domain.JokeFilters) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(column, value string) {
		if value != "" {
			clauses = append(clauses, alias+"."+column+" = ?")
			args = append(args, value)
		}
	}
	add("language", f.Language)
	add("style", f.Style)
	add("topic", f.Topic)
	add("tone", f.Tone)
	add("format", f.Format)

	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

// UpsertJoke inserts a joke into the local bank. A joke that already exists
// keeps its original fetched_at so selection order is stable; the text and
// tags are refreshed from the server copy.
func (s *Store) UpsertJoke(ctx context.Context, joke *domain.Joke) error {
	if joke.FetchedAt.IsZero() {
		joke.FetchedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jokes (id, text, language, style, topic, tone, format, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			language = excluded.language,
			style = excluded.style,
			topic = excluded.topic,
			tone = excluded.tone,
			format = excluded.format`,
		joke.ID,
		joke.Text,
		joke.Language,
		joke.Style,
		joke.Topic,
		joke.Tone,
		joke.Format,
		formatTime(joke.FetchedAt),
	)
	return err
}

// GetJoke retrieves a joke by ID.
// Returns store.ErrNotFound if the joke does not exist.
func (s *Store) GetJoke(ctx context.Context, id int64) (*domain.Joke, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jokeColumns+` FROM jokes WHERE id = ?`, id)

	joke, err := scanJoke(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return joke, nil
}

// CountJokes returns how many banked jokes match the filters.
func (s *Store) CountJokes(ctx context.Context, filters domain.JokeFilters) (int, error) {
	where, args := filterClause("j", filters)

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jokes j WHERE 1=1`+where, args...).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetUnseenJoke returns the oldest-fetched joke matching filters that the
// user has not seen. Ties are broken by ID so results are deterministic.
// Returns store.ErrNotFound when the user has seen everything that matches.
func (s *Store) GetUnseenJoke(ctx context.Context, userID string, filters domain.JokeFilters) (*domain.Joke, error) {
	where, args := filterClause("j", filters)
	query := `
		SELECT ` + prefixColumns("j", jokeColumns) + `
		FROM jokes j
		LEFT JOIN seen_markers sm ON sm.joke_id = j.id AND sm.user_id = ?
		WHERE sm.joke_id IS NULL` + where + `
		ORDER BY j.fetched_at ASC, j.id ASC
		LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, append([]any{userID}, args...)...)

	joke, err := scanJoke(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return joke, nil
}

// GetAnyJoke returns the oldest-fetched joke matching filters regardless of
// seen state. Used as the last-resort bank fallback.
func (s *Store) GetAnyJoke(ctx context.Context, filters domain.JokeFilters) (*domain.Joke, error) {
	where, args := filterClause("j", filters)
	query := `
		SELECT ` + jokeColumns + `
		FROM jokes j
		WHERE 1=1` + where + `
		ORDER BY j.fetched_at ASC, j.id ASC
		LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, args...)

	joke, err := scanJoke(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return joke, nil
}

// MarkSeen records that a joke was shown to a user. Marking an already-seen
// joke is a no-op.
func (s *Store) MarkSeen(ctx context.Context, userID string, jokeID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seen_markers (user_id, joke_id, seen_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, joke_id) DO NOTHING`,
		userID, jokeID, formatTime(time.Now()))
	return err
}

// IsSeen reports whether the user has already been shown the joke.
func (s *Store) IsSeen(ctx context.Context, userID string, jokeID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM seen_markers WHERE user_id = ? AND joke_id = ?`,
		userID, jokeID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ClearSeen removes all seen markers for a user and returns how many were
// dropped. Explicit user-initiated reset only.
func (s *Store) ClearSeen(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM seen_markers WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// prefixColumns prefixes each column in a comma-separated list with an alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
