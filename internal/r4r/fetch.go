package r4r

import (
	"context"
	"fmt"

	"github.com/ethosradar/backend/pkg/logger"
)

const (
	DefaultPageSize   = 50
	DefaultMaxReviews = 5000
	// emptyPageLimit is how many consecutive pages without new records end
	// a fetch.
	emptyPageLimit = 2
)

// ReviewSource supplies identities and paginated review history.
type ReviewSource interface {
	// ResolveIdentity returns ErrUserNotFound when userkey does not exist.
	ResolveIdentity(ctx context.Context, userkey string) (*Identity, error)
	FetchReviews(ctx context.Context, userkey string, dir Direction, limit, offset int) ([]ReviewRecord, error)
}

// FetchResult is the outcome of paging through one review collection.
type FetchResult struct {
	Reviews []ReviewRecord
	Pages   int
	// Partial is set when a page failed after earlier pages succeeded, or
	// when the collection was truncated at the review cap.
	Partial bool
}

// FetchAll pages through a review collection, deduplicating by review ID.
// It stops on a short page, after two consecutive pages with no new
// records, or once maxReviews have been collected. A failure on the first
// page is returned as an error; later upstream failures keep what was
// collected. A done context always fails the fetch.
func FetchAll(ctx context.Context, src ReviewSource, userkey string, dir Direction, pageSize, maxReviews int) (*FetchResult, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxReviews <= 0 {
		maxReviews = DefaultMaxReviews
	}

	result := &FetchResult{}
	seen := make(map[string]struct{})
	emptyPages := 0

	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := src.FetchReviews(ctx, userkey, dir, pageSize, offset)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if result.Pages == 0 {
				return nil, fmt.Errorf("fetch %s reviews for %s: %w", dir, userkey, err)
			}
			logger.Warn().Err(err).
				Str("userkey", userkey).
				Str("direction", string(dir)).
				Int("offset", offset).
				Int("collected", len(result.Reviews)).
				Msg("[R4R] Review page failed, continuing with partial data")
			result.Partial = true
			break
		}
		result.Pages++

		added, capped := 0, false
		for _, r := range page {
			if r.ID != "" {
				if _, dup := seen[r.ID]; dup {
					continue
				}
			}
			if len(result.Reviews) >= maxReviews {
				capped = true
				break
			}
			if r.ID != "" {
				seen[r.ID] = struct{}{}
			}
			result.Reviews = append(result.Reviews, r)
			added++
		}

		if capped {
			result.Partial = true
			logCapReached(userkey, dir, maxReviews)
			break
		}
		if len(page) < pageSize {
			break
		}
		if added == 0 {
			emptyPages++
			if emptyPages >= emptyPageLimit {
				break
			}
		} else {
			emptyPages = 0
		}
		if len(result.Reviews) >= maxReviews {
			more, err := hasUnseen(ctx, src, userkey, dir, pageSize, offset+pageSize, seen)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// an unreadable next page leaves the collection unconfirmed
			if err != nil || more {
				result.Partial = true
				logCapReached(userkey, dir, maxReviews)
			}
			break
		}
	}

	return result, nil
}

// hasUnseen reports whether the page at offset holds any record not yet
// collected.
func hasUnseen(ctx context.Context, src ReviewSource, userkey string, dir Direction, pageSize, offset int, seen map[string]struct{}) (bool, error) {
	page, err := src.FetchReviews(ctx, userkey, dir, pageSize, offset)
	if err != nil {
		return false, err
	}
	for _, r := range page {
		if r.ID == "" {
			return true, nil
		}
		if _, dup := seen[r.ID]; !dup {
			return true, nil
		}
	}
	return false, nil
}

func logCapReached(userkey string, dir Direction, maxReviews int) {
	logger.Warn().Str("userkey", userkey).Str("direction", string(dir)).
		Int("max_reviews", maxReviews).Msg("[R4R] Review cap reached")
}
