package r4r

import (
	"fmt"
	"math"
	"time"
)

const (
	// MaxBaseScore caps the reciprocal-rate component of the score.
	MaxBaseScore = 65.0
	// HighRiskThreshold is the score at which an identity is High risk.
	HighRiskThreshold = 70.0
	// ModerateRiskThreshold is the score at which an identity is Moderate risk.
	ModerateRiskThreshold = 40.0
)

const scoreFormula = "min(65, reciprocal/received*100) * volumeMultiplier * accountAgeMultiplier + timePenalty, clamped to [0,100]"

// ScoreInputs are the counts the aggregate formula works on. ReciprocalCount
// and QuickReciprocalCount cover positive/positive pairs only.
type ScoreInputs struct {
	ReciprocalCount      int
	ReviewsReceivedCount int
	ReviewsGivenCount    int
	QuickReciprocalCount int
	AccountAgeDays       int
}

// CalculateScore applies the R4R formula and returns every intermediate
// factor alongside the final score.
func CalculateScore(in ScoreInputs) ScoreBreakdown {
	b := ScoreBreakdown{
		ReciprocalCount:      in.ReciprocalCount,
		ReviewsReceivedCount: in.ReviewsReceivedCount,
		ReviewsGivenCount:    in.ReviewsGivenCount,
		QuickReciprocalCount: in.QuickReciprocalCount,
		AccountAgeDays:       in.AccountAgeDays,
		VolumeMultiplier:     1.0,
		AccountAgeMultiplier: 1.0,
		Formula:              scoreFormula,
	}

	if in.ReviewsReceivedCount <= 0 {
		b.BaseScoreDescription = "No reviews received"
		b.VolumeDescription = "Normal volume"
		b.AccountAgeDescription = "Established account or normal activity"
		b.TimePenaltyDescription = "No quick reciprocation penalty"
		return b
	}

	// 1-2. reciprocal rate, capped
	b.UncappedBaseScore = float64(in.ReciprocalCount) / float64(in.ReviewsReceivedCount) * 100
	b.BaseScore = math.Min(MaxBaseScore, b.UncappedBaseScore)
	b.BaseScoreCapped = b.UncappedBaseScore > MaxBaseScore
	b.BaseScoreDescription = fmt.Sprintf("%.1f%% of received reviews were reciprocated", b.UncappedBaseScore)
	if b.BaseScoreCapped {
		b.BaseScoreDescription += fmt.Sprintf(" (capped at %.0f)", MaxBaseScore)
	}

	// 3. volume
	b.VolumeMultiplier, b.VolumeDescription = volumeMultiplier(in.ReciprocalCount)

	// 4. account age vs. activity
	ageDays := in.AccountAgeDays
	if ageDays < 1 {
		ageDays = 1
	}
	b.ReviewsPerDay = float64(in.ReviewsGivenCount+in.ReviewsReceivedCount) / float64(ageDays)
	b.AccountAgeMultiplier, b.AccountAgeDescription = accountAgeMultiplier(in.AccountAgeDays, b.ReviewsPerDay)

	// 5. quick reciprocation
	if in.ReciprocalCount > 0 {
		b.QuickReciprocalPercentage = float64(in.QuickReciprocalCount) / float64(in.ReciprocalCount) * 100
	}
	b.TimePenalty, b.TimePenaltyDescription = timePenalty(b.QuickReciprocalPercentage)

	// 6. combine
	final := b.BaseScore*b.VolumeMultiplier*b.AccountAgeMultiplier + b.TimePenalty
	b.FinalScore = round2(clamp(final, 0, 100))
	return b
}

func volumeMultiplier(reciprocal int) (float64, string) {
	switch {
	case reciprocal >= 50:
		return 1.20, "Very high volume (50+ reciprocal reviews)"
	case reciprocal >= 20:
		return 1.15, "High volume (20+ reciprocal reviews)"
	case reciprocal >= 10:
		return 1.05, "Moderate volume (10+ reciprocal reviews)"
	}
	return 1.0, "Normal volume"
}

func accountAgeMultiplier(ageDays int, perDay float64) (float64, string) {
	switch {
	case ageDays < 30 && perDay > 10:
		return 1.40, fmt.Sprintf("New account (%d days) with very high activity (%.1f reviews/day)", ageDays, perDay)
	case ageDays < 60 && perDay > 5:
		return 1.25, fmt.Sprintf("Young account (%d days) with high activity (%.1f reviews/day)", ageDays, perDay)
	case ageDays < 90 && perDay > 2:
		return 1.10, fmt.Sprintf("Recent account (%d days) with elevated activity (%.1f reviews/day)", ageDays, perDay)
	}
	return 1.0, "Established account or normal activity"
}

func timePenalty(quickPct float64) (float64, string) {
	switch {
	case quickPct >= 80:
		return 12.5, fmt.Sprintf("%.0f%% of reciprocal reviews within 30 minutes", quickPct)
	case quickPct >= 60:
		return 10, fmt.Sprintf("%.0f%% of reciprocal reviews within 30 minutes", quickPct)
	case quickPct >= 40:
		return 6.5, fmt.Sprintf("%.0f%% of reciprocal reviews within 30 minutes", quickPct)
	case quickPct >= 20:
		return 3, fmt.Sprintf("%.0f%% of reciprocal reviews within 30 minutes", quickPct)
	}
	return 0, "No quick reciprocation penalty"
}

// ClassifyRisk maps a score onto a risk level. Critical is never produced.
func ClassifyRisk(score float64) RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= ModerateRiskThreshold:
		return RiskModerate
	}
	return RiskLow
}

// AccountAgeDays estimates account age from the oldest review timestamp
// across both collections. The result is at least 1.
func AccountAgeDays(now time.Time, collections ...[]ReviewRecord) int {
	oldest, ok := oldestTimestamp(collections...)
	if !ok {
		return 1
	}
	days := int(now.Sub(oldest).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

func oldestTimestamp(collections ...[]ReviewRecord) (time.Time, bool) {
	var oldest time.Time
	found := false
	for _, records := range collections {
		for _, r := range records {
			if r.Timestamp.IsZero() {
				continue
			}
			if !found || r.Timestamp.Before(oldest) {
				oldest = r.Timestamp
				found = true
			}
		}
	}
	return oldest, found
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
