package models

import "time"

// AnalysisLog records one completed R4R analysis.
type AnalysisLog struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Userkey              string    `gorm:"size:255;index;not null" json:"userkey"`
	RequestKey           string    `gorm:"size:255;index" json:"request_key"` // key the caller asked for
	DisplayName          string    `gorm:"size:255" json:"display_name"`
	R4RScore             float64   `gorm:"column:r4r_score" json:"r4r_score"`
	RiskLevel            string    `gorm:"size:20;index" json:"risk_level"`
	TotalReviewsReceived int       `json:"total_reviews_received"`
	TotalReviewsGiven    int       `json:"total_reviews_given"`
	ReciprocalReviews    int       `json:"reciprocal_reviews"`
	QuickReciprocalCount int       `json:"quick_reciprocal_count"`
	HighRiskReviewers    int       `json:"high_risk_reviewers"`
	PartialData          bool      `json:"partial_data"`
	Source               string    `gorm:"size:20" json:"source"` // api, queue
	DurationMs           int64     `json:"duration_ms"`
	CreatedAt            time.Time `gorm:"index" json:"created_at"`
}

func (AnalysisLog) TableName() string { return "analysis_logs" }
