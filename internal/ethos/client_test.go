package ethos

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethosradar/backend/internal/config"
	"github.com/ethosradar/backend/internal/r4r"
	"github.com/google/go-cmp/cmp"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(&config.EthosConfig{
		BaseURL:        srv.URL,
		ClientName:     "ethosradar-test",
		TimeoutSeconds: 5,
		RequestsPerSec: 1000,
		Burst:          100,
		MaxRetries:     2,
	})
	c.SetRetryConfig(RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2})
	return c
}

func TestResolveIdentity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v2/users/by/userkeys" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Ethos-Client") != "ethosradar-test" {
			t.Errorf("missing client header")
		}
		var body userkeysRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Userkeys) != 1 {
			t.Errorf("bad body: %v %+v", err, body)
		}
		w.Write([]byte(`[{"id": 77, "profileId": 12, "displayName": "Alice", "username": "alice",
			"avatarUrl": "https://img/a.png", "score": 1420, "userkeys": ["address:0xabc", "profileId:12"]}]`))
	})

	id, err := c.ResolveIdentity(context.Background(), "service:x.com:username:alice")
	if err != nil {
		t.Fatalf("ResolveIdentity() error = %v", err)
	}
	want := &r4r.Identity{Userkey: "profileId:12", DisplayName: "Alice", Username: "alice", AvatarURL: "https://img/a.png", Score: 1420}
	if diff := cmp.Diff(want, id); diff != "" {
		t.Errorf("identity mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveIdentity_NotFound(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"empty list", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`[]`)) }},
		{"404", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"no such user"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			if _, err := c.ResolveIdentity(context.Background(), "profileId:404"); !errors.Is(err, r4r.ErrUserNotFound) {
				t.Errorf("expected ErrUserNotFound, got %v", err)
			}
		})
	}
}

func TestFetchReviews(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/activities/unified" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body activitiesRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.Direction != "author" || body.Limit != 2 || body.Offset != 4 {
			t.Errorf("unexpected request %+v", body)
		}
		if len(body.Filter) != 1 || body.Filter[0] != "review" {
			t.Errorf("filter = %v", body.Filter)
		}
		w.Write([]byte(`{"total": 3, "values": [
			{"type": "review", "data": {"id": 501, "score": "positive", "comment": "great", "createdAt": 1705321800},
			 "author": {"userkey": "profileId:1", "profileId": 1, "name": "Alice"},
			 "subject": {"userkey": "address:0xdef", "name": "Bob"}},
			{"type": "review", "data": {"id": "abc", "score": "NEGATIVE", "comment": "", "createdAt": null},
			 "timestamp": "2024-01-15T12:30:00Z",
			 "author": {"userkey": "profileId:1"}, "subject": {"userkey": "profileId:3", "profileId": 3}},
			{"type": "vouch", "data": {"id": 9}}
		]}`))
	})

	reviews, err := c.FetchReviews(context.Background(), "profileId:1", r4r.DirectionGiven, 2, 4)
	if err != nil {
		t.Fatalf("FetchReviews() error = %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews (vouch dropped), got %d", len(reviews))
	}

	expectedTime := time.Date(2024, 1, 15, 12, 30, 0, 0, time.UTC)
	first := reviews[0]
	if first.ID != "501" || first.Sentiment != r4r.SentimentPositive || !first.Timestamp.Equal(expectedTime) {
		t.Errorf("unexpected first review %+v", first)
	}
	if first.Author.Userkey != "profileId:1" || first.Subject.Userkey != "address:0xdef" {
		t.Errorf("unexpected keys %s -> %s", first.Author.Userkey, first.Subject.Userkey)
	}
	second := reviews[1]
	if second.ID != "abc" || second.Sentiment != r4r.SentimentNegative || !second.Timestamp.Equal(expectedTime) {
		t.Errorf("unexpected second review %+v", second)
	}
	if second.Subject.Userkey != "profileId:3" {
		t.Errorf("subject key = %s, expected profileId:3", second.Subject.Userkey)
	}
}

func TestFetchReviews_ReceivedDirection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body activitiesRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.Direction != "subject" {
			t.Errorf("direction = %s, expected subject", body.Direction)
		}
		w.Write([]byte(`{"values": []}`))
	})

	reviews, err := c.FetchReviews(context.Background(), "profileId:1", r4r.DirectionReceived, 50, 0)
	if err != nil || len(reviews) != 0 {
		t.Errorf("got %v, %v", reviews, err)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"values": [{"displayName": "Carol", "profileId": 3}]}`))
	})

	users, err := c.SearchUsers(context.Background(), "carol", 5)
	if err != nil {
		t.Fatalf("SearchUsers() error = %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if len(users) != 1 || users[0].Userkey != "profileId:3" {
		t.Errorf("unexpected users %+v", users)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "limit too large"}`))
	})

	_, err := c.FetchReviews(context.Background(), "profileId:1", r4r.DirectionReceived, 5000, 0)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "limit too large" {
		t.Fatalf("expected 400 APIError, got %v", err)
	}
	if !errors.Is(err, ErrUpstream) {
		t.Error("APIError should unwrap to ErrUpstream")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("client errors must not be retried, got %d calls", calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.SearchUsers(context.Background(), "x", 1)
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected 1 attempt + 2 retries, got %d", calls)
	}
}

func TestSearchUsers_Query(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v2/users/search" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("query") != "vitalik eth" || r.URL.Query().Get("limit") != "10" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"values": [{"displayName": "V", "userkeys": ["address:0x1"]}], "total": 1}`))
	})

	users, err := c.SearchUsers(context.Background(), "vitalik eth", 10)
	if err != nil {
		t.Fatalf("SearchUsers() error = %v", err)
	}
	if len(users) != 1 || users[0].Userkey != "address:0x1" {
		t.Errorf("unexpected users %+v", users)
	}
}

func TestCalculateDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := calculateDelay(cfg, tt.attempt); got != tt.expected {
			t.Errorf("calculateDelay(%d) = %v, expected %v", tt.attempt, got, tt.expected)
		}
	}

	cfg.Jitter = true
	for i := 0; i < 20; i++ {
		d := calculateDelay(cfg, 1)
		if d < 1800*time.Millisecond || d > 2200*time.Millisecond {
			t.Fatalf("jittered delay %v outside 10%% band", d)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{nil, false},
		{context.Canceled, false},
		{&APIError{StatusCode: 500}, true},
		{&APIError{StatusCode: 429}, true},
		{&APIError{StatusCode: 404}, false},
		{errors.New("decode failed"), false},
	}
	for _, tt := range tests {
		if got := isRetryable(tt.err); got != tt.expected {
			t.Errorf("isRetryable(%v) = %v, expected %v", tt.err, got, tt.expected)
		}
	}
}
