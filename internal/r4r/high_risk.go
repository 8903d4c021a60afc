package r4r

import (
	"context"
	"sort"

	"github.com/ethosradar/backend/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// FindHighRiskReviewers scores a bounded set of user's counterparts with the
// single-level pipeline and returns those at or above the high-risk
// threshold, highest first. Counterparts that fail to score are skipped.
func (a *Analyzer) FindHighRiskReviewers(ctx context.Context, user Identity, pairs []ReviewPair, connections []NetworkConnection) []HighRiskReviewer {
	candidates := collectCandidates(user.Userkey, pairs, connections, a.maxCandidates)
	if len(candidates) == 0 {
		return []HighRiskReviewer{}
	}

	results := make([]*Analysis, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, candidate := range candidates {
		g.Go(func() error {
			analysis, err := a.Score(gctx, candidate)
			if err != nil {
				logger.Warn().Err(err).
					Str("userkey", user.Userkey).
					Str("candidate", candidate.Userkey).
					Msg("[R4R] Skipping high-risk candidate")
				return nil
			}
			results[i] = analysis
			return nil
		})
	}
	_ = g.Wait()

	flagged := []HighRiskReviewer{}
	for i, analysis := range results {
		if analysis == nil || analysis.R4RScore < HighRiskThreshold {
			continue
		}
		flagged = append(flagged, HighRiskReviewer{
			User:                 candidates[i],
			R4RScore:             analysis.R4RScore,
			RiskLevel:            analysis.RiskLevel,
			ReciprocalReviews:    analysis.ReciprocalReviews,
			TotalReviewsReceived: analysis.TotalReviewsReceived,
		})
	}
	sort.SliceStable(flagged, func(i, j int) bool {
		return flagged[i].R4RScore > flagged[j].R4RScore
	})
	return flagged
}

// collectCandidates returns unique counterparts from pairs, then from
// connections, never including the analyzed user, capped at limit.
func collectCandidates(selfKey string, pairs []ReviewPair, connections []NetworkConnection, limit int) []Identity {
	seen := map[string]bool{selfKey: true}
	var out []Identity
	add := func(id Identity) bool {
		if id.Userkey == "" || seen[id.Userkey] {
			return true
		}
		seen[id.Userkey] = true
		out = append(out, id)
		return limit <= 0 || len(out) < limit
	}
	for _, p := range pairs {
		if !add(p.User2) {
			return out
		}
	}
	for _, c := range connections {
		if !add(c.User) {
			return out
		}
	}
	return out
}
