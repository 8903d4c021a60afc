package services

import (
	"time"

	"github.com/ethosradar/backend/internal/models"
	"github.com/ethosradar/backend/pkg/logger"
	"gorm.io/gorm"
)

// AIUsageService tracks content scorer calls.
type AIUsageService struct {
	db *gorm.DB
}

func NewAIUsageService(db *gorm.DB) *AIUsageService {
	return &AIUsageService{db: db}
}

// Record saves a usage log entry. Failures are logged, never returned.
func (s *AIUsageService) Record(log *models.AIUsageLog) {
	if s == nil || s.db == nil {
		return
	}
	if err := s.db.Create(log).Error; err != nil {
		logger.Warnf("[AIUsage] Failed to record usage: %v", err)
	}
}

// UsageStats holds aggregated AI usage statistics.
type UsageStats struct {
	TotalCalls   int64   `json:"total_calls"`
	TotalTokens  int64   `json:"total_tokens"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	SuccessCount int64   `json:"success_count"`
	RepairCount  int64   `json:"repair_count"`
	SuccessRate  float64 `json:"success_rate"`
}

// GetStats aggregates usage since the given time; zero means all time.
func (s *AIUsageService) GetStats(since time.Time) (*UsageStats, error) {
	query := s.db.Model(&models.AIUsageLog{})
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}

	var stats UsageStats
	err := query.Select(
		"COUNT(*) as total_calls, " +
			"COALESCE(SUM(total_tokens), 0) as total_tokens, " +
			"COALESCE(AVG(latency_ms), 0) as avg_latency_ms, " +
			"COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) as success_count, " +
			"COALESCE(SUM(CASE WHEN repaired THEN 1 ELSE 0 END), 0) as repair_count",
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	if stats.TotalCalls > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalCalls) * 100
	}
	return &stats, nil
}

// ProviderUsage holds usage data grouped by provider.
type ProviderUsage struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Calls        int     `json:"calls"`
	TotalTokens  int     `json:"total_tokens"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

func (s *AIUsageService) GetProviderBreakdown(since time.Time) ([]ProviderUsage, error) {
	query := s.db.Model(&models.AIUsageLog{})
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}

	var results []ProviderUsage
	err := query.Select(
		"provider, model, " +
			"COUNT(*) as calls, " +
			"COALESCE(SUM(total_tokens), 0) as total_tokens, " +
			"COALESCE(AVG(latency_ms), 0) as avg_latency_ms",
	).Group("provider, model").Order("calls DESC").Scan(&results).Error
	if err != nil {
		return nil, err
	}

	if results == nil {
		results = []ProviderUsage{}
	}
	return results, nil
}

// CleanupBefore deletes usage logs older than the given time.
func (s *AIUsageService) CleanupBefore(before time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", before).Delete(&models.AIUsageLog{})
	return result.RowsAffected, result.Error
}
