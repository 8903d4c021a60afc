package r4r

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethosradar/backend/pkg/logger"
)

const (
	DefaultMaxCandidates = 15
	DefaultWorkers       = 4
	DefaultMaxLLMPairs   = 10
)

// ContentScorer is an optional external judge of comment similarity.
type ContentScorer interface {
	ScoreContent(ctx context.Context, comment1, comment2 string) (*ContentAssessment, error)
}

// Analyzer runs R4R analyses against a ReviewSource.
type Analyzer struct {
	source        ReviewSource
	scorer        ContentScorer
	pageSize      int
	maxReviews    int
	maxCandidates int
	workers       int
	maxLLMPairs   int
	now           func() time.Time
}

type Option func(*Analyzer)

func WithContentScorer(s ContentScorer) Option {
	return func(a *Analyzer) { a.scorer = s }
}

func WithPageSize(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

func WithMaxReviews(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxReviews = n
		}
	}
}

func WithMaxCandidates(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxCandidates = n
		}
	}
}

func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

func WithMaxLLMPairs(n int) Option {
	return func(a *Analyzer) {
		if n >= 0 {
			a.maxLLMPairs = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

func NewAnalyzer(source ReviewSource, opts ...Option) *Analyzer {
	a := &Analyzer{
		source:        source,
		pageSize:      DefaultPageSize,
		maxReviews:    DefaultMaxReviews,
		maxCandidates: DefaultMaxCandidates,
		workers:       DefaultWorkers,
		maxLLMPairs:   DefaultMaxLLMPairs,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type AnalyzeOptions struct {
	IncludeHighRisk bool
}

// Analyze resolves userkey, pulls its complete review history and returns
// the full analysis. An unresolvable identity, a total fetch failure or a
// done context is an error.
func (a *Analyzer) Analyze(ctx context.Context, userkey string, opts AnalyzeOptions) (*Analysis, error) {
	user, err := a.source.ResolveIdentity(ctx, userkey)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Userkey == "" {
		user.Userkey = userkey
	}

	received, given, partial, err := a.fetchHistory(ctx, user.Userkey)
	if err != nil {
		return nil, err
	}

	pairs := MatchPairs(*user, received, given)
	a.assessContent(ctx, pairs)

	analysis := a.build(*user, received, given, pairs)
	analysis.PartialData = partial

	if opts.IncludeHighRisk {
		analysis.HighR4RReviewers = a.FindHighRiskReviewers(ctx, *user, pairs, analysis.NetworkConnections)
	}
	// candidates or content checks skipped on a done context are not
	// upstream gaps
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("userkey", user.Userkey).
		Int("received", analysis.TotalReviewsReceived).
		Int("given", analysis.TotalReviewsGiven).
		Int("reciprocal", analysis.ReciprocalReviews).
		Float64("score", analysis.R4RScore).
		Str("risk", string(analysis.RiskLevel)).
		Bool("partial", partial).
		Msg("[R4R] Analysis complete")

	return analysis, nil
}

// Score runs the single-level pipeline for userkey: no identity lookup,
// no content scorer and no high-risk expansion.
func (a *Analyzer) Score(ctx context.Context, user Identity) (*Analysis, error) {
	received, given, partial, err := a.fetchHistory(ctx, user.Userkey)
	if err != nil {
		return nil, err
	}
	analysis := a.build(user, received, given, MatchPairs(user, received, given))
	analysis.PartialData = partial
	return analysis, nil
}

func (a *Analyzer) fetchHistory(ctx context.Context, userkey string) (received, given []ReviewRecord, partial bool, err error) {
	recv, recvErr := FetchAll(ctx, a.source, userkey, DirectionReceived, a.pageSize, a.maxReviews)
	gave, givenErr := FetchAll(ctx, a.source, userkey, DirectionGiven, a.pageSize, a.maxReviews)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, false, ctxErr
	}
	if recvErr != nil && givenErr != nil {
		return nil, nil, false, fmt.Errorf("%w: %v", ErrNoData, errors.Join(recvErr, givenErr))
	}
	if recvErr != nil {
		logger.Warn().Err(recvErr).Str("userkey", userkey).Msg("[R4R] Received reviews unavailable")
		partial = true
	} else {
		received = recv.Reviews
		partial = partial || recv.Partial
	}
	if givenErr != nil {
		logger.Warn().Err(givenErr).Str("userkey", userkey).Msg("[R4R] Given reviews unavailable")
		partial = true
	} else {
		given = gave.Reviews
		partial = partial || gave.Partial
	}
	return received, given, partial, nil
}

// assessContent asks the content scorer about a bounded number of pairs and
// folds its opinion in. Scorer errors leave the rule-based score as is.
func (a *Analyzer) assessContent(ctx context.Context, pairs []ReviewPair) {
	if a.scorer == nil || a.maxLLMPairs == 0 {
		return
	}
	asked := 0
	for i := range pairs {
		if asked >= a.maxLLMPairs {
			return
		}
		if !NeedsContentReview(pairs[i]) {
			continue
		}
		asked++
		assessment, err := a.scorer.ScoreContent(ctx, pairs[i].Review1.Comment, pairs[i].Review2.Comment)
		if err != nil {
			logger.Warn().Err(err).Str("counterpart", pairs[i].User2.Userkey).Msg("[R4R] Content scorer failed")
			continue
		}
		if assessment == nil {
			continue
		}
		assessment.SuspiciousScore = clamp(assessment.SuspiciousScore, 0, 100)
		pairs[i].ContentAssessment = assessment
		if assessment.SuspiciousScore > pairs[i].SuspiciousScore {
			pairs[i].SuspiciousScore = assessment.SuspiciousScore
		}
	}
}

func (a *Analyzer) build(user Identity, received, given []ReviewRecord, pairs []ReviewPair) *Analysis {
	now := a.now()

	reciprocal, quick := 0, 0
	for _, p := range pairs {
		if !p.IsPositiveExchange() {
			continue
		}
		reciprocal++
		if p.IsQuickReciprocal {
			quick++
		}
	}

	ageDays := AccountAgeDays(now, received, given)
	breakdown := CalculateScore(ScoreInputs{
		ReciprocalCount:      reciprocal,
		ReviewsReceivedCount: len(received),
		ReviewsGivenCount:    len(given),
		QuickReciprocalCount: quick,
		AccountAgeDays:       ageDays,
	})

	analysis := &Analysis{
		Userkey:              user.Userkey,
		User:                 user,
		TotalReviewsReceived: len(received),
		TotalReviewsGiven:    len(given),
		ReciprocalReviews:    reciprocal,
		QuickReciprocalCount: quick,
		R4RScore:             breakdown.FinalScore,
		RiskLevel:            ClassifyRisk(breakdown.FinalScore),
		ReviewPairs:          pairs,
		AllReviews:           flattenReviews(received, given, pairs),
		NetworkConnections:   SummarizeNetwork(pairs, DisplayConnectionLimit),
		AccountAgeDays:       ageDays,
		ScoreBreakdown:       breakdown,
		AnalyzedAt:           now,
	}
	if analysis.ReviewPairs == nil {
		analysis.ReviewPairs = []ReviewPair{}
	}
	if len(received) > 0 {
		analysis.ReciprocalPercentage = round2(float64(reciprocal) / float64(len(received)) * 100)
	}
	if reciprocal > 0 {
		analysis.QuickReciprocalPercentage = round2(float64(quick) / float64(reciprocal) * 100)
	}
	fillActivityStats(analysis, received, given)
	return analysis
}

// flattenReviews lists every review, received first, each tagged with
// whether it takes part in a reciprocal pair.
func flattenReviews(received, given []ReviewRecord, pairs []ReviewPair) []ReviewEntry {
	inPair := make(map[string]bool, len(pairs)*2)
	for _, p := range pairs {
		inPair[pairKey(DirectionReceived, p.Review1)] = true
		inPair[pairKey(DirectionGiven, p.Review2)] = true
	}

	entries := make([]ReviewEntry, 0, len(received)+len(given))
	for _, r := range received {
		entries = append(entries, ReviewEntry{
			Review:       r,
			Direction:    DirectionReceived,
			Counterpart:  r.Author,
			IsReciprocal: inPair[pairKey(DirectionReceived, r)],
		})
	}
	for _, g := range given {
		entries = append(entries, ReviewEntry{
			Review:       g,
			Direction:    DirectionGiven,
			Counterpart:  g.Subject,
			IsReciprocal: inPair[pairKey(DirectionGiven, g)],
		})
	}
	return entries
}

func pairKey(dir Direction, r ReviewRecord) string {
	if r.ID != "" {
		return string(dir) + ":" + r.ID
	}
	return string(dir) + ":" + r.Author.Userkey + ">" + r.Subject.Userkey + "@" + r.Timestamp.String()
}

// fillActivityStats sets first/last review dates, reviews per day over the
// active span and the mean hours between consecutive reviews.
func fillActivityStats(a *Analysis, received, given []ReviewRecord) {
	var stamps []time.Time
	for _, set := range [][]ReviewRecord{received, given} {
		for _, r := range set {
			if !r.Timestamp.IsZero() {
				stamps = append(stamps, r.Timestamp)
			}
		}
	}
	if len(stamps) == 0 {
		return
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

	first, last := stamps[0], stamps[len(stamps)-1]
	a.FirstReviewDate = &first
	a.LastReviewDate = &last

	spanDays := last.Sub(first).Hours() / 24
	if spanDays < 1 {
		spanDays = 1
	}
	a.ReviewFrequency = round2(float64(len(stamps)) / spanDays)

	if len(stamps) > 1 {
		a.AverageTimeBetweenReviews = round2(last.Sub(first).Hours() / float64(len(stamps)-1))
	}
}
