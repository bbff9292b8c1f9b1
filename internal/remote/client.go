// Package remote implements the HTTP client for the joke API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/giggleglide/giggleglide-engine/internal/domain"
	"github.com/giggleglide/giggleglide-engine/internal/errors"
	"github.com/giggleglide/giggleglide-engine/internal/logger"
	"github.com/giggleglide/giggleglide-engine/internal/ratelimit"
)

const (
	defaultRPS   = 5.0
	defaultBurst = 10

	defaultFetchTimeout  = 3 * time.Second
	defaultSubmitTimeout = 10 * time.Second

	userAgent = "GiggleGlide-Engine/1.0"
)

// Rate limit keys. Fetch and submit have independent budgets so a drain
// cannot starve joke delivery.
const (
	limitKeyFetch  = "fetch"
	limitKeySubmit = "submit"
)

// Options configures a Client.
type Options struct {
	BaseURL           string
	FetchTimeout      time.Duration
	SubmitTimeout     time.Duration
	RequestsPerSecond float64
	Burst             int
}

func (o *Options) setDefaults() {
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = defaultFetchTimeout
	}
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = defaultSubmitTimeout
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = defaultRPS
	}
	if o.Burst <= 0 {
		o.Burst = defaultBurst
	}
}

// Client is a rate-limited joke API client.
type Client struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *logger.Logger
	opts    Options
}

// New creates a new joke API client.
func New(opts Options, log *logger.Logger) *Client {
	opts.setDefaults()
	return &Client{
		http:    &http.Client{},
		limiter: ratelimit.New(opts.RequestsPerSecond, opts.Burst),
		logger:  log,
		opts:    opts,
	}
}

// FetchNextJoke requests a fresh joke for the user, constrained by filters.
// Returns errors.CodeNetworkUnavailable when the API cannot be reached and
// errors.CodeNotFound when the API has no joke matching the filters.
func (c *Client) FetchNextJoke(ctx context.Context, userID string, filters domain.JokeFilters) (*domain.Joke, error) {
	if err := c.limiter.Wait(ctx, limitKeyFetch); err != nil {
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "rate limit wait")
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("user_id", userID)
	if filters.Language != "" {
		query.Set("language", filters.Language)
	}
	if filters.Style != "" {
		query.Set("style", filters.Style)
	}
	if filters.Topic != "" {
		query.Set("topic", filters.Topic)
	}
	if filters.Tone != "" {
		query.Set("tone", filters.Tone)
	}
	if filters.Format != "" {
		query.Set("format", filters.Format)
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/v1/jokes/next", query, nil)
	if err != nil {
		return nil, err
	}

	var raw rawJoke
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, errors.CodeRemoteRejected, "decoding joke response")
	}

	joke := raw.toDomain()
	joke.FetchedAt = time.Now().UTC()
	return joke, nil
}

// SubmitFeedback delivers one feedback record to the API. The request is an
// idempotent upsert keyed on (user, joke), so retries after an ambiguous
// failure are safe.
func (c *Client) SubmitFeedback(ctx context.Context, record *domain.FeedbackRecord) error {
	if err := c.limiter.Wait(ctx, limitKeySubmit); err != nil {
		return errors.Wrap(err, errors.CodeNetworkUnavailable, "rate limit wait")
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.SubmitTimeout)
	defer cancel()

	payload, err := json.Marshal(rawFeedback{
		Sentiment: string(record.Sentiment),
		CreatedAt: record.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: record.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encoding feedback")
	}

	path := "/v1/users/" + url.PathEscape(record.UserID) +
		"/jokes/" + strconv.FormatInt(record.JokeID, 10) + "/feedback"

	_, err = c.doRequest(ctx, http.MethodPut, path, nil, payload)
	return err
}

// doRequest executes an HTTP request and maps status codes to engine errors.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	fullURL := c.opts.BaseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create request")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("api request",
		"method", method,
		"path", path,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "execute request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetworkUnavailable, "read response")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.NotFound("no matching resource")
	case resp.StatusCode == http.StatusTooManyRequests:
		// Retryable: treat like a transient outage rather than a rejection.
		return nil, errors.NetworkUnavailable("api rate limited")
	case resp.StatusCode >= 500:
		return nil, errors.NetworkUnavailablef("api unavailable: status %d", resp.StatusCode)
	default:
		return nil, errors.RemoteRejectedf("status %d: %s", resp.StatusCode, string(body))
	}
}

type rawJoke struct {
	ID       int64  `json:"id"`
	Text     string `json:"text"`
	Language string `json:"language"`
	Style    string `json:"style"`
	Topic    string `json:"topic"`
	Tone     string `json:"tone"`
	Format   string `json:"format"`
}

func (r rawJoke) toDomain() *domain.Joke {
	return &domain.Joke{
		ID:       r.ID,
		Text:     r.Text,
		Language: r.Language,
		Style:    r.Style,
		Topic:    r.Topic,
		Tone:     r.Tone,
		Format:   r.Format,
	}
}

type rawFeedback struct {
	Sentiment string `json:"sentiment"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
