package domain

import (
	"time"
)

// Joke is a single joke as delivered by the remote service.
// Jokes are immutable once fetched; the local store copy is authoritative
// for per-user seen state.
type Joke struct {
	ID       int64  `json:"id"`
	Text     string `json:"text"`
	Language string `json:"language"`

	// Classification tags assigned by the server.
	Style  string `json:"style,omitempty"`
	Topic  string `json:"topic,omitempty"`
	Tone   string `json:"tone,omitempty"`
	Format string `json:"format,omitempty"`

	// FetchedAt is when this joke entered the local bank. Selection ties
	// are broken oldest-fetched-first so older cached content is not starved.
	FetchedAt time.Time `json:"fetched_at"`
}

// JokeFilters narrows joke selection. Zero-value fields match everything.
type JokeFilters struct {
	Language string `json:"language,omitempty"`
	Style    string `json:"style,omitempty"`
	Topic    string `json:"topic,omitempty"`
	Tone     string `json:"tone,omitempty"`
	Format   string `json:"format,omitempty"`
}

// IsZero reports whether no filter field is set.
func (f JokeFilters) IsZero() bool {
	return f == JokeFilters{}
}

// Source identifies which layer satisfied a joke request.
type Source string

// Source tags, in fallback order.
const (
	SourceAPI      Source = "api"      // fetched live from the remote service
	SourceCache    Source = "cache"    // unseen joke from the local bank
	SourceDatabase Source = "database" // previously delivered joke, freshness ignored
	SourceNone     Source = "none"     // no joke available anywhere
)

// DeliveredJoke is the result of a next-joke request.
type DeliveredJoke struct {
	Joke        *Joke  `json:"joke,omitempty"`
	Source      Source `json:"source"`
	FromNetwork bool   `json:"from_network"`
}

// None reports whether selection exhausted every source. This is an expected
// terminal state, not an error.
func (d *DeliveredJoke) None() bool {
	return d == nil || d.Joke == nil
}

// NoJoke is the explicit "no joke available" result.
func NoJoke() *DeliveredJoke {
	return &DeliveredJoke{Source: SourceNone}
}

// SeenMarker records that a joke was shown to a user. Once recorded, the joke
// is never returned to that user again, across restarts.
type SeenMarker struct {
	UserID string    `json:"user_id"`
	JokeID int64     `json:"joke_id"`
	SeenAt time.Time `json:"seen_at"`
}
