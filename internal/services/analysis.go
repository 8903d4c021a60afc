package services

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/ethosradar/backend/internal/models"
	"github.com/ethosradar/backend/internal/r4r"
	"github.com/ethosradar/backend/pkg/logger"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Analysis log sources.
const (
	SourceAPI   = "api"
	SourceQueue = "queue"
)

// Analyzer runs an R4R analysis. *r4r.Analyzer satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, userkey string, opts r4r.AnalyzeOptions) (*r4r.Analysis, error)
}

type AnalysisRequest struct {
	IncludeHighRisk bool
	// Refresh skips the cache lookup; the fresh result is still cached.
	Refresh bool
	Source  string
}

const (
	// DefaultRunTimeout bounds one shared analysis run.
	DefaultRunTimeout = 2 * time.Minute
	// maxPartialTTL caps how long an analysis built from incomplete data
	// stays cached.
	maxPartialTTL = time.Minute
)

// AnalysisService puts the cache, the analysis log and SSE notifications
// around the analyzer.
//
// An identity can be asked for by several keys (address, handle, profile
// id). Results are cached under both the requested key and the canonical
// key the analyzer resolves, and both are stored on the analysis log.
type AnalysisService struct {
	db         *gorm.DB
	analyzer   Analyzer
	cache      Cache
	hub        *SSEHub
	ttl        time.Duration
	runTimeout time.Duration
	group      singleflight.Group
}

func NewAnalysisService(db *gorm.DB, analyzer Analyzer, cache Cache, hub *SSEHub, ttl time.Duration) *AnalysisService {
	return &AnalysisService{db: db, analyzer: analyzer, cache: cache, hub: hub, ttl: ttl, runTimeout: DefaultRunTimeout}
}

// SetRunTimeout overrides DefaultRunTimeout.
func (s *AnalysisService) SetRunTimeout(d time.Duration) {
	if d > 0 {
		s.runTimeout = d
	}
}

func analysisCacheKey(userkey string, highRisk bool) string {
	if highRisk {
		return "r4r:" + userkey + ":hr"
	}
	return "r4r:" + userkey
}

// Analyze returns the analysis for userkey and whether it came from the
// cache. Concurrent requests for the same key share one upstream run. The
// run is detached from ctx: a caller that gives up gets ctx's error while
// the run finishes for the others.
func (s *AnalysisService) Analyze(ctx context.Context, userkey string, req AnalysisRequest) (*r4r.Analysis, bool, error) {
	key := analysisCacheKey(userkey, req.IncludeHighRisk)

	if !req.Refresh {
		var cached r4r.Analysis
		if getJSON(ctx, s.cache, key, &cached) {
			return &cached, true, nil
		}
		// a high-risk result is a superset of the plain one
		if !req.IncludeHighRisk && getJSON(ctx, s.cache, analysisCacheKey(userkey, true), &cached) {
			cached.HighR4RReviewers = nil
			return &cached, true, nil
		}
	}

	runCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(runCtx, s.runTimeout)
		defer cancel()
		return s.run(ctx, userkey, req)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*r4r.Analysis), false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// HighRiskReviewers returns only the high-risk reviewers of userkey.
func (s *AnalysisService) HighRiskReviewers(ctx context.Context, userkey string, refresh bool) ([]r4r.HighRiskReviewer, error) {
	analysis, _, err := s.Analyze(ctx, userkey, AnalysisRequest{IncludeHighRisk: true, Refresh: refresh, Source: SourceAPI})
	if err != nil {
		return nil, err
	}
	if analysis.HighR4RReviewers == nil {
		return []r4r.HighRiskReviewer{}, nil
	}
	return analysis.HighR4RReviewers, nil
}

func (s *AnalysisService) run(ctx context.Context, userkey string, req AnalysisRequest) (*r4r.Analysis, error) {
	s.publish(AnalysisEvent{Userkey: userkey, Status: AnalysisRunning})

	start := time.Now()
	analysis, err := s.analyzer.Analyze(WithUsageUserkey(ctx, userkey), userkey, r4r.AnalyzeOptions{IncludeHighRisk: req.IncludeHighRisk})
	if err != nil {
		s.publish(AnalysisEvent{Userkey: userkey, Status: AnalysisFailed, Error: err.Error()})
		if !errors.Is(err, r4r.ErrUserNotFound) {
			logger.Warn().Err(err).Str("userkey", userkey).Msg("[Analysis] Analysis failed")
		}
		return nil, err
	}
	duration := time.Since(start)

	ttl := s.ttl
	if analysis.PartialData && ttl > maxPartialTTL {
		ttl = maxPartialTTL
	}
	for _, k := range identityKeys(userkey, analysis.Userkey) {
		setJSON(ctx, s.cache, analysisCacheKey(k, req.IncludeHighRisk), analysis, ttl)
	}
	s.recordLog(userkey, analysis, req.Source, duration)

	score := analysis.R4RScore
	s.publish(AnalysisEvent{
		Userkey:      userkey,
		CanonicalKey: analysis.Userkey,
		Status:       AnalysisCompleted,
		R4RScore:     &score,
		RiskLevel:    string(analysis.RiskLevel),
	})

	logger.Infof("[Analysis] %s analyzed in %dms: score=%.2f risk=%s", userkey, duration.Milliseconds(), score, analysis.RiskLevel)
	return analysis, nil
}

// identityKeys returns the distinct non-empty keys among keys.
func identityKeys(keys ...string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

func (s *AnalysisService) recordLog(requestKey string, a *r4r.Analysis, source string, duration time.Duration) {
	if s.db == nil {
		return
	}
	if source == "" {
		source = SourceAPI
	}
	log := &models.AnalysisLog{
		Userkey:              a.Userkey,
		RequestKey:           requestKey,
		DisplayName:          a.User.DisplayName,
		R4RScore:             a.R4RScore,
		RiskLevel:            string(a.RiskLevel),
		TotalReviewsReceived: a.TotalReviewsReceived,
		TotalReviewsGiven:    a.TotalReviewsGiven,
		ReciprocalReviews:    a.ReciprocalReviews,
		QuickReciprocalCount: a.QuickReciprocalCount,
		HighRiskReviewers:    len(a.HighR4RReviewers),
		PartialData:          a.PartialData,
		Source:               source,
		DurationMs:           duration.Milliseconds(),
	}
	if err := s.db.Create(log).Error; err != nil {
		logger.Warnf("[Analysis] Failed to record analysis log for %s: %v", a.Userkey, err)
	}
}

func (s *AnalysisService) publish(event AnalysisEvent) {
	if s.hub != nil {
		s.hub.Publish(event)
	}
}

// MarkQueued announces that a re-analysis of userkey was queued.
func (s *AnalysisService) MarkQueued(userkey string) {
	s.publish(AnalysisEvent{Userkey: userkey, Status: AnalysisQueued})
}

// ProcessTask runs a queued re-analysis. The fresh result replaces the
// cached one.
func (s *AnalysisService) ProcessTask(ctx context.Context, task *AnalyzeTask) error {
	_, _, err := s.Analyze(ctx, task.Userkey, AnalysisRequest{
		IncludeHighRisk: task.IncludeHighRisk,
		Refresh:         true,
		Source:          SourceQueue,
	})
	if errors.Is(err, r4r.ErrUserNotFound) {
		// retrying will not make the identity appear
		logger.Infof("[Analysis] Dropping task for unknown identity %s", task.Userkey)
		return nil
	}
	return err
}

// InvalidateUser drops every cached payload for userkey and for the other
// keys the analysis log has seen for the same identity.
func (s *AnalysisService) InvalidateUser(ctx context.Context, userkey string) error {
	keys := []string{userkey}
	if aliases, err := s.aliases(ctx, userkey); err != nil {
		logger.Warn().Err(err).Str("userkey", userkey).Msg("[Analysis] Alias lookup failed")
	} else {
		keys = identityKeys(append(keys, aliases...)...)
	}

	cacheKeys := make([]string, 0, len(keys)*3)
	for _, k := range keys {
		cacheKeys = append(cacheKeys,
			analysisCacheKey(k, false),
			analysisCacheKey(k, true),
			profileCacheKey(k),
		)
	}
	return s.cache.Delete(ctx, cacheKeys...)
}

// aliases lists every canonical and requested key logged together with
// userkey.
func (s *AnalysisService) aliases(ctx context.Context, userkey string) ([]string, error) {
	if s.db == nil {
		return nil, nil
	}
	var rows []struct {
		Userkey    string
		RequestKey string
	}
	err := s.db.WithContext(ctx).Model(&models.AnalysisLog{}).
		Distinct("userkey", "request_key").
		Where("userkey = ? OR request_key = ?", userkey, userkey).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows)*2)
	for _, r := range rows {
		out = append(out, r.Userkey, r.RequestKey)
	}
	return out, nil
}

// ListLogs returns analysis history, newest first. userkey matches either
// the canonical or the requested key; empty lists every identity.
func (s *AnalysisService) ListLogs(userkey, riskLevel string, page, pageSize int) ([]models.AnalysisLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := s.db.Model(&models.AnalysisLog{})
	if userkey != "" {
		query = query.Where("userkey = ? OR request_key = ?", userkey, userkey)
	}
	if riskLevel != "" {
		query = query.Where("risk_level = ?", riskLevel)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AnalysisLog
	err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	return logs, total, err
}
