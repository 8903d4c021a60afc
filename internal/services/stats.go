package services

import (
	"math"
	"time"

	"github.com/ethosradar/backend/internal/models"
	"github.com/ethosradar/backend/internal/r4r"
	"gorm.io/gorm"
)

type StatsService struct {
	db    *gorm.DB
	usage *AIUsageService
}

func NewStatsService(db *gorm.DB, usage *AIUsageService) *StatsService {
	return &StatsService{db: db, usage: usage}
}

type RiskCount struct {
	RiskLevel string `json:"risk_level"`
	Count     int64  `json:"count"`
}

type AnalysisStats struct {
	TotalAnalyses    int64                `json:"total_analyses"`
	UniqueIdentities int64                `json:"unique_identities"`
	AverageScore     float64              `json:"average_score"`
	RiskLevels       []RiskCount          `json:"risk_levels"`
	RecentHighRisk   []models.AnalysisLog `json:"recent_high_risk"`
	AIUsage          *UsageStats          `json:"ai_usage,omitempty"`
}

// GetStats summarizes analysis history since the given time; zero means
// all time.
func (s *StatsService) GetStats(since time.Time) (*AnalysisStats, error) {
	base := func() *gorm.DB {
		q := s.db.Model(&models.AnalysisLog{})
		if !since.IsZero() {
			q = q.Where("created_at >= ?", since)
		}
		return q
	}

	var stats AnalysisStats
	if err := base().Count(&stats.TotalAnalyses).Error; err != nil {
		return nil, err
	}
	if err := base().Distinct("userkey").Count(&stats.UniqueIdentities).Error; err != nil {
		return nil, err
	}

	var avg struct{ Avg float64 }
	if err := base().Select("COALESCE(AVG(r4r_score), 0) AS avg").Scan(&avg).Error; err != nil {
		return nil, err
	}
	stats.AverageScore = round2(avg.Avg)

	var counts []RiskCount
	if err := base().Select("risk_level, COUNT(*) as count").Group("risk_level").Scan(&counts).Error; err != nil {
		return nil, err
	}
	stats.RiskLevels = fillRiskLevels(counts)

	if err := base().Where("risk_level = ?", string(r4r.RiskHigh)).
		Order("created_at DESC, id DESC").
		Limit(10).
		Find(&stats.RecentHighRisk).Error; err != nil {
		return nil, err
	}

	if s.usage != nil {
		usage, err := s.usage.GetStats(since)
		if err != nil {
			return nil, err
		}
		stats.AIUsage = usage
	}

	return &stats, nil
}

// fillRiskLevels returns one entry per risk level in severity order,
// including levels with no analyses.
func fillRiskLevels(counts []RiskCount) []RiskCount {
	byLevel := make(map[string]int64, len(counts))
	for _, c := range counts {
		byLevel[c.RiskLevel] = c.Count
	}
	levels := []r4r.RiskLevel{r4r.RiskLow, r4r.RiskModerate, r4r.RiskHigh, r4r.RiskCritical}
	out := make([]RiskCount, 0, len(levels))
	for _, l := range levels {
		out = append(out, RiskCount{RiskLevel: string(l), Count: byLevel[string(l)]})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
