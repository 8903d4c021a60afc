package r4r

import (
	"math"
	"testing"
	"time"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculateScore_ZeroReceived(t *testing.T) {
	b := CalculateScore(ScoreInputs{ReviewsGivenCount: 40, AccountAgeDays: 5})

	if b.FinalScore != 0 {
		t.Errorf("FinalScore = %v, expected 0", b.FinalScore)
	}
	if b.VolumeMultiplier != 1.0 || b.AccountAgeMultiplier != 1.0 {
		t.Errorf("multipliers should default to 1.0, got %v and %v", b.VolumeMultiplier, b.AccountAgeMultiplier)
	}
	if ClassifyRisk(b.FinalScore) != RiskLow {
		t.Errorf("risk = %s, expected Low", ClassifyRisk(b.FinalScore))
	}
}

func TestCalculateScore_BaseCap(t *testing.T) {
	b := CalculateScore(ScoreInputs{
		ReciprocalCount:      8,
		ReviewsReceivedCount: 8,
		ReviewsGivenCount:    8,
		AccountAgeDays:       400,
	})

	if !approxEqual(b.UncappedBaseScore, 100) {
		t.Errorf("UncappedBaseScore = %v, expected 100", b.UncappedBaseScore)
	}
	if b.BaseScore != 65 || !b.BaseScoreCapped {
		t.Errorf("BaseScore = %v (capped=%v), expected 65 capped", b.BaseScore, b.BaseScoreCapped)
	}
	if b.FinalScore != 65 {
		t.Errorf("FinalScore = %v, expected exactly 65", b.FinalScore)
	}
}

func TestCalculateScore_VolumeMultiplierOnly(t *testing.T) {
	b := CalculateScore(ScoreInputs{
		ReciprocalCount:      10,
		ReviewsReceivedCount: 20,
		ReviewsGivenCount:    20,
		QuickReciprocalCount: 0,
		AccountAgeDays:       400,
	})

	if !approxEqual(b.UncappedBaseScore, 50) || !approxEqual(b.BaseScore, 50) {
		t.Errorf("base = %v/%v, expected 50/50", b.UncappedBaseScore, b.BaseScore)
	}
	if b.VolumeMultiplier != 1.05 {
		t.Errorf("VolumeMultiplier = %v, expected 1.05", b.VolumeMultiplier)
	}
	if b.AccountAgeMultiplier != 1.0 {
		t.Errorf("AccountAgeMultiplier = %v, expected 1.0", b.AccountAgeMultiplier)
	}
	if b.TimePenalty != 0 {
		t.Errorf("TimePenalty = %v, expected 0", b.TimePenalty)
	}
	if b.FinalScore != 52.5 {
		t.Errorf("FinalScore = %v, expected 52.5", b.FinalScore)
	}
	if ClassifyRisk(b.FinalScore) != RiskModerate {
		t.Errorf("risk = %s, expected Moderate", ClassifyRisk(b.FinalScore))
	}
}

func TestCalculateScore_AllFactorsClampTo100(t *testing.T) {
	b := CalculateScore(ScoreInputs{
		ReciprocalCount:      60,
		ReviewsReceivedCount: 70,
		ReviewsGivenCount:    70,
		QuickReciprocalCount: 60,
		AccountAgeDays:       10,
	})

	if b.BaseScore != 65 {
		t.Errorf("BaseScore = %v, expected 65", b.BaseScore)
	}
	if b.VolumeMultiplier != 1.2 {
		t.Errorf("VolumeMultiplier = %v, expected 1.2", b.VolumeMultiplier)
	}
	if !approxEqual(b.ReviewsPerDay, 14) {
		t.Errorf("ReviewsPerDay = %v, expected 14", b.ReviewsPerDay)
	}
	if b.AccountAgeMultiplier != 1.4 {
		t.Errorf("AccountAgeMultiplier = %v, expected 1.4", b.AccountAgeMultiplier)
	}
	if b.TimePenalty != 12.5 {
		t.Errorf("TimePenalty = %v, expected 12.5", b.TimePenalty)
	}
	if b.FinalScore != 100 {
		t.Errorf("FinalScore = %v, expected 100", b.FinalScore)
	}
	if ClassifyRisk(b.FinalScore) != RiskHigh {
		t.Errorf("risk = %s, expected High", ClassifyRisk(b.FinalScore))
	}
}

func TestCalculateScore_Multipliers(t *testing.T) {
	tests := []struct {
		name       string
		in         ScoreInputs
		volume     float64
		age        float64
		penalty    float64
	}{
		{"volume 20", ScoreInputs{ReciprocalCount: 20, ReviewsReceivedCount: 100, ReviewsGivenCount: 0, AccountAgeDays: 1000}, 1.15, 1.0, 0},
		{"volume 9", ScoreInputs{ReciprocalCount: 9, ReviewsReceivedCount: 100, AccountAgeDays: 1000}, 1.0, 1.0, 0},
		{"age 45 days 6/day", ScoreInputs{ReciprocalCount: 1, ReviewsReceivedCount: 150, ReviewsGivenCount: 120, AccountAgeDays: 45}, 1.0, 1.25, 0},
		{"age 80 days 3/day", ScoreInputs{ReciprocalCount: 1, ReviewsReceivedCount: 120, ReviewsGivenCount: 120, AccountAgeDays: 80}, 1.0, 1.10, 0},
		{"age 20 days exactly 10/day", ScoreInputs{ReciprocalCount: 1, ReviewsReceivedCount: 100, ReviewsGivenCount: 100, AccountAgeDays: 20}, 1.0, 1.25, 0},
		{"quick 60%", ScoreInputs{ReciprocalCount: 5, QuickReciprocalCount: 3, ReviewsReceivedCount: 50, AccountAgeDays: 1000}, 1.0, 1.0, 10},
		{"quick 40%", ScoreInputs{ReciprocalCount: 5, QuickReciprocalCount: 2, ReviewsReceivedCount: 50, AccountAgeDays: 1000}, 1.0, 1.0, 6.5},
		{"quick 20%", ScoreInputs{ReciprocalCount: 5, QuickReciprocalCount: 1, ReviewsReceivedCount: 50, AccountAgeDays: 1000}, 1.0, 1.0, 3},
		{"quick 10%", ScoreInputs{ReciprocalCount: 10, QuickReciprocalCount: 1, ReviewsReceivedCount: 50, AccountAgeDays: 1000}, 1.05, 1.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := CalculateScore(tt.in)
			if b.VolumeMultiplier != tt.volume {
				t.Errorf("VolumeMultiplier = %v, expected %v", b.VolumeMultiplier, tt.volume)
			}
			if b.AccountAgeMultiplier != tt.age {
				t.Errorf("AccountAgeMultiplier = %v, expected %v", b.AccountAgeMultiplier, tt.age)
			}
			if b.TimePenalty != tt.penalty {
				t.Errorf("TimePenalty = %v, expected %v", b.TimePenalty, tt.penalty)
			}
			if b.VolumeDescription == "" || b.AccountAgeDescription == "" || b.TimePenaltyDescription == "" {
				t.Error("every factor should carry a description")
			}
		})
	}
}

func TestCalculateScore_AlwaysInRange(t *testing.T) {
	for received := 0; received <= 60; received += 5 {
		for reciprocal := 0; reciprocal <= received; reciprocal += 5 {
			for quick := 0; quick <= reciprocal; quick += 5 {
				for _, age := range []int{1, 10, 45, 80, 500} {
					b := CalculateScore(ScoreInputs{
						ReciprocalCount:      reciprocal,
						ReviewsReceivedCount: received,
						ReviewsGivenCount:    received * 3,
						QuickReciprocalCount: quick,
						AccountAgeDays:       age,
					})
					if b.FinalScore < 0 || b.FinalScore > 100 {
						t.Fatalf("score %v out of range for %+v", b.FinalScore, b)
					}
					level := ClassifyRisk(b.FinalScore)
					switch {
					case b.FinalScore >= 70 && level != RiskHigh,
						b.FinalScore >= 40 && b.FinalScore < 70 && level != RiskModerate,
						b.FinalScore < 40 && level != RiskLow:
						t.Fatalf("risk %s inconsistent with score %v", level, b.FinalScore)
					}
				}
			}
		}
	}
}

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		score    float64
		expected RiskLevel
	}{
		{0, RiskLow},
		{39.99, RiskLow},
		{40, RiskModerate},
		{69.99, RiskModerate},
		{70, RiskHigh},
		{100, RiskHigh},
	}
	for _, tt := range tests {
		if got := ClassifyRisk(tt.score); got != tt.expected {
			t.Errorf("ClassifyRisk(%v) = %s, expected %s", tt.score, got, tt.expected)
		}
	}
}

func TestAccountAgeDays(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	received := []ReviewRecord{
		{ID: "1", Timestamp: now.AddDate(0, 0, -10)},
		{ID: "2"},
	}
	given := []ReviewRecord{
		{ID: "3", Timestamp: now.AddDate(0, 0, -40)},
	}

	if got := AccountAgeDays(now, received, given); got != 40 {
		t.Errorf("AccountAgeDays = %d, expected 40", got)
	}
	if got := AccountAgeDays(now, []ReviewRecord{{ID: "x", Timestamp: now.Add(-time.Hour)}}); got != 1 {
		t.Errorf("AccountAgeDays for a fresh account = %d, expected 1", got)
	}
	if got := AccountAgeDays(now); got != 1 {
		t.Errorf("AccountAgeDays with no data = %d, expected 1", got)
	}
}
