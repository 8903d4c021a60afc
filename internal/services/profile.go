package services

import (
	"context"
	"strings"
	"time"

	"github.com/ethosradar/backend/internal/r4r"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// ProfileSource looks identities up upstream. *ethos.Client satisfies it.
type ProfileSource interface {
	ResolveIdentity(ctx context.Context, userkey string) (*r4r.Identity, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]r4r.Identity, error)
}

type ProfileService struct {
	source ProfileSource
	cache  Cache
	ttl    time.Duration
}

func NewProfileService(source ProfileSource, cache Cache, ttl time.Duration) *ProfileService {
	return &ProfileService{source: source, cache: cache, ttl: ttl}
}

func profileCacheKey(userkey string) string {
	return "profile:" + userkey
}

// GetProfile returns the identity behind userkey, cached for the profile TTL.
func (s *ProfileService) GetProfile(ctx context.Context, userkey string) (*r4r.Identity, error) {
	key := profileCacheKey(userkey)

	var cached r4r.Identity
	if getJSON(ctx, s.cache, key, &cached) {
		return &cached, nil
	}

	identity, err := s.source.ResolveIdentity(ctx, userkey)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, r4r.ErrUserNotFound
	}
	setJSON(ctx, s.cache, key, identity, s.ttl)
	return identity, nil
}

// Search proxies an identity search. Searches are not cached.
func (s *ProfileService) Search(ctx context.Context, query string, limit int) ([]r4r.Identity, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []r4r.Identity{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	users, err := s.source.SearchUsers(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []r4r.Identity{}
	}
	return users, nil
}
