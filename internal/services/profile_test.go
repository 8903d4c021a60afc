package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethosradar/backend/internal/r4r"
)

type fakeProfileSource struct {
	resolves  int
	lastLimit int
	users     map[string]r4r.Identity
}

func (f *fakeProfileSource) ResolveIdentity(ctx context.Context, userkey string) (*r4r.Identity, error) {
	f.resolves++
	u, ok := f.users[userkey]
	if !ok {
		return nil, r4r.ErrUserNotFound
	}
	return &u, nil
}

func (f *fakeProfileSource) SearchUsers(ctx context.Context, query string, limit int) ([]r4r.Identity, error) {
	f.lastLimit = limit
	var out []r4r.Identity
	for _, u := range f.users {
		if u.DisplayName == query {
			out = append(out, u)
		}
	}
	return out, nil
}

func TestProfileService_GetProfileCaches(t *testing.T) {
	src := &fakeProfileSource{users: map[string]r4r.Identity{
		"profileId:1": {Userkey: "profileId:1", DisplayName: "Alice", Score: 1400},
	}}
	svc := NewProfileService(src, NewMemoryCache(), time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		u, err := svc.GetProfile(ctx, "profileId:1")
		if err != nil {
			t.Fatalf("GetProfile() error = %v", err)
		}
		if u.DisplayName != "Alice" {
			t.Errorf("DisplayName = %q, expected Alice", u.DisplayName)
		}
	}
	if src.resolves != 1 {
		t.Errorf("upstream resolves = %d, expected 1", src.resolves)
	}

	if _, err := svc.GetProfile(ctx, "profileId:2"); !errors.Is(err, r4r.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestProfileService_Search(t *testing.T) {
	src := &fakeProfileSource{users: map[string]r4r.Identity{
		"profileId:1": {Userkey: "profileId:1", DisplayName: "Alice"},
	}}
	svc := NewProfileService(src, NewMemoryCache(), time.Minute)
	ctx := context.Background()

	users, err := svc.Search(ctx, "  Alice ", 500)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(users) != 1 || src.lastLimit != maxSearchLimit {
		t.Errorf("len=%d limit=%d, expected 1 and %d", len(users), src.lastLimit, maxSearchLimit)
	}

	users, _ = svc.Search(ctx, "nobody", 0)
	if users == nil || len(users) != 0 || src.lastLimit != defaultSearchLimit {
		t.Errorf("expected empty non-nil result with default limit, got %v limit=%d", users, src.lastLimit)
	}

	users, _ = svc.Search(ctx, "   ", 5)
	if len(users) != 0 {
		t.Errorf("blank query should return no users")
	}
}
