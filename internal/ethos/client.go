// Package ethos is a client for the Ethos Protocol HTTP API. It supplies
// identities and review history to the r4r analyzer.
package ethos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethosradar/backend/internal/config"
	"github.com/ethosradar/backend/internal/r4r"
	"github.com/ethosradar/backend/pkg/logger"
	"golang.org/x/time/rate"
)

// ErrUpstream marks failures of the Ethos API itself, as opposed to bad
// input or unknown users.
var ErrUpstream = errors.New("ethos api unavailable")

// APIError is a non-2xx reply from the Ethos API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ethos api returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return ErrUpstream }

type Client struct {
	baseURL    string
	clientName string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryConfig
}

func NewClient(cfg *config.EthosConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	retry := DefaultRetryConfig()
	if cfg.MaxRetries >= 0 {
		retry.MaxRetries = cfg.MaxRetries
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		clientName: cfg.ClientName,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		retry:      retry,
	}
}

// SetRetryConfig replaces the backoff policy. Tests use it to avoid sleeping.
func (c *Client) SetRetryConfig(cfg RetryConfig) {
	c.retry = cfg
}

// ResolveIdentity looks userkey up and returns r4r.ErrUserNotFound when the
// API knows no such user.
func (c *Client) ResolveIdentity(ctx context.Context, userkey string) (*r4r.Identity, error) {
	var users []userDTO
	err := c.do(ctx, http.MethodPost, "/api/v2/users/by/userkeys", userkeysRequest{Userkeys: []string{userkey}}, &users)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, r4r.ErrUserNotFound
		}
		return nil, err
	}
	if len(users) == 0 {
		return nil, r4r.ErrUserNotFound
	}
	id := users[0].toIdentity(userkey)
	return &id, nil
}

// FetchReviews returns one page of reviews userkey received or gave.
func (c *Client) FetchReviews(ctx context.Context, userkey string, dir r4r.Direction, limit, offset int) ([]r4r.ReviewRecord, error) {
	req := activitiesRequest{
		Userkey:           userkey,
		Direction:         wireDirection(dir),
		Filter:            []string{"review"},
		ExcludeHistorical: true,
		Limit:             limit,
		Offset:            offset,
	}
	var resp activitiesResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/activities/unified", req, &resp); err != nil {
		return nil, err
	}

	reviews := make([]r4r.ReviewRecord, 0, len(resp.Values))
	for _, a := range resp.Values {
		if a.Type != "" && a.Type != "review" {
			continue
		}
		reviews = append(reviews, a.toReview())
	}
	return reviews, nil
}

// SearchUsers runs a free text identity search.
func (c *Client) SearchUsers(ctx context.Context, query string, limit int) ([]r4r.Identity, error) {
	q := url.Values{}
	q.Set("query", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp searchResponse
	if err := c.do(ctx, http.MethodGet, "/api/v2/users/search?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	users := make([]r4r.Identity, 0, len(resp.Values))
	for _, u := range resp.Values {
		users = append(users, u.toIdentity(""))
	}
	return users, nil
}

func wireDirection(dir r4r.Direction) string {
	if dir == r4r.DirectionGiven {
		return "author"
	}
	return "subject"
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	start := time.Now()
	err := withRetry(ctx, c.retry, path, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return c.doOnce(ctx, method, path, payload, out)
	})

	logger.Debug().
		Str("method", method).
		Str("path", path).
		Dur("latency", time.Since(start)).
		AnErr("error", err).
		Msg("[Ethos] API call")
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.clientName != "" {
		req.Header.Set("X-Ethos-Client", c.clientName)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(data))
		var er errorResponse
		if json.Unmarshal(data, &er) == nil && er.Message != "" {
			msg = er.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrUpstream, path, err)
	}
	return nil
}
