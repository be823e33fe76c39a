// Package metadata imports movies and series from TMDB into the catalog.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const DefaultBaseURL = "https://api.themoviedb.org/3"

var (
	// ErrUpstream wraps transport failures and unexpected TMDB responses.
	ErrUpstream = errors.New("tmdb request failed")
	// ErrNotFound is returned when TMDB has no record for the id.
	ErrNotFound = errors.New("tmdb record not found")
	ErrNoAPIKey = errors.New("TMDB API key not configured")

	// errTransient marks failures worth another attempt: transport errors,
	// 429 and 5xx.
	errTransient = errors.New("transient")
)

// Client is a small TMDB v3 client with a fixed per-call timeout.
type Client struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	attempts   uint
	retryDelay time.Duration
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: timeout},
		attempts:   1,
		retryDelay: 250 * time.Millisecond,
	}
}

// WithRetries lets transient failures be retried n times with backoff. The
// default is zero: a failed call fails the import.
func (c *Client) WithRetries(n uint) *Client {
	c.attempts = n + 1
	return c
}

// get fetches path into dst. Only transient failures are retried; 404 and
// other 4xx answers are returned at once.
func (c *Client) get(ctx context.Context, path string, params url.Values, dst any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	target := c.baseURL + path + "?" + params.Encode()

	return retry.Do(
		func() error { return c.fetch(ctx, target, path, dst) },
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(2*time.Second),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errTransient) }),
	)
}

func (c *Client) fetch(ctx context.Context, target, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w: %v", ErrUpstream, errTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: %w: %s returned %d", ErrUpstream, errTransient, path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w: %s returned %d: %s", ErrUpstream, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUpstream, path, err)
	}
	return nil
}

var detailParams = url.Values{"append_to_response": {"credits,videos,external_ids"}}

func (c *Client) GetMovie(ctx context.Context, id int) (*TMDBMovie, error) {
	var m TMDBMovie
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", id), cloneValues(detailParams), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) GetTV(ctx context.Context, id int) (*TMDBShow, error) {
	var s TMDBShow
	if err := c.get(ctx, fmt.Sprintf("/tv/%d", id), cloneValues(detailParams), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) GetSeason(ctx context.Context, tvID, season int) (*TMDBSeason, error) {
	var s TMDBSeason
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/season/%d", tvID, season), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
