// Package r4r detects review-for-review (R4R) farming in an identity's
// Ethos review history. It matches reciprocal review pairs, scores how
// suspicious each pair looks, folds the pair statistics into a single
// 0-100 score and classifies the result.
package r4r

import (
	"errors"
	"time"
)

var (
	// ErrUserNotFound is returned when the analyzed identity cannot be resolved.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoData is returned when no review data at all could be fetched.
	ErrNoData = errors.New("no review data available")
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ParseSentiment maps an upstream sentiment value onto a Sentiment.
// Unknown values are treated as neutral.
func ParseSentiment(s string) Sentiment {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNegative:
		return Sentiment(s)
	}
	return SentimentNeutral
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
	// RiskCritical is part of the public model but ClassifyRisk never returns it.
	RiskCritical RiskLevel = "Critical"
)

// Direction selects which side of a review the analyzed identity is on.
type Direction string

const (
	DirectionReceived Direction = "received"
	DirectionGiven    Direction = "given"
)

// Identity is a user of the reputation system. Userkey is the only field
// used for matching.
type Identity struct {
	Userkey     string  `json:"userkey"`
	DisplayName string  `json:"displayName"`
	Username    string  `json:"username,omitempty"`
	AvatarURL   string  `json:"avatarUrl,omitempty"`
	Score       float64 `json:"score"`
}

// ReviewRecord is one review as delivered by the data source. A zero
// Timestamp means the upstream value could not be parsed.
type ReviewRecord struct {
	ID        string    `json:"id"`
	Author    Identity  `json:"author"`
	Subject   Identity  `json:"subject"`
	Sentiment Sentiment `json:"sentiment"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}

// ContentAssessment is the optional LLM opinion on two review comments.
type ContentAssessment struct {
	SuspiciousScore float64  `json:"suspiciousScore"`
	Reasoning       string   `json:"reasoning"`
	Patterns        []string `json:"patterns"`
}

// ReviewPair is one reciprocal exchange between the analyzed identity
// (User1) and a counterpart (User2). Review1 was received, Review2 given back.
type ReviewPair struct {
	User1             Identity           `json:"user1"`
	User2             Identity           `json:"user2"`
	Review1           ReviewRecord       `json:"review1"`
	Review2           ReviewRecord       `json:"review2"`
	TimeGap           float64            `json:"timeGap"`
	TimeGapKnown      bool               `json:"timeGapKnown"`
	IsReciprocal      bool               `json:"isReciprocal"`
	IsQuickReciprocal bool               `json:"isQuickReciprocal"`
	SuspiciousScore   float64            `json:"suspiciousScore"`
	ContentAssessment *ContentAssessment `json:"contentAssessment,omitempty"`
}

// IsPositiveExchange reports whether both sides of the pair are positive,
// the only pattern that counts toward the aggregate score.
func (p ReviewPair) IsPositiveExchange() bool {
	return p.Review1.Sentiment == SentimentPositive && p.Review2.Sentiment == SentimentPositive
}

type NetworkConnection struct {
	User             Identity `json:"user"`
	InteractionCount int      `json:"interactionCount"`
	ReciprocalCount  int      `json:"reciprocalCount"`
	AvgTimeGap       float64  `json:"avgTimeGap"`
	SuspiciousScore  float64  `json:"suspiciousScore"`
}

// ReviewEntry is a flattened view of one review for display.
type ReviewEntry struct {
	Review       ReviewRecord `json:"review"`
	Direction    Direction    `json:"direction"`
	Counterpart  Identity     `json:"counterpart"`
	IsReciprocal bool         `json:"isReciprocal"`
}

type HighRiskReviewer struct {
	User                 Identity  `json:"user"`
	R4RScore             float64   `json:"r4rScore"`
	RiskLevel            RiskLevel `json:"riskLevel"`
	ReciprocalReviews    int       `json:"reciprocalReviews"`
	TotalReviewsReceived int       `json:"totalReviewsReceived"`
}

// ScoreBreakdown documents every factor of the aggregate formula.
type ScoreBreakdown struct {
	ReciprocalCount           int     `json:"reciprocalCount"`
	ReviewsReceivedCount      int     `json:"reviewsReceivedCount"`
	ReviewsGivenCount         int     `json:"reviewsGivenCount"`
	QuickReciprocalCount      int     `json:"quickReciprocalCount"`
	UncappedBaseScore         float64 `json:"uncappedBaseScore"`
	BaseScore                 float64 `json:"baseScore"`
	BaseScoreCapped           bool    `json:"baseScoreCapped"`
	BaseScoreDescription      string  `json:"baseScoreDescription"`
	VolumeMultiplier          float64 `json:"volumeMultiplier"`
	VolumeDescription         string  `json:"volumeDescription"`
	AccountAgeDays            int     `json:"accountAgeDays"`
	ReviewsPerDay             float64 `json:"reviewsPerDay"`
	AccountAgeMultiplier      float64 `json:"accountAgeMultiplier"`
	AccountAgeDescription     string  `json:"accountAgeDescription"`
	QuickReciprocalPercentage float64 `json:"quickReciprocalPercentage"`
	TimePenalty               float64 `json:"timePenalty"`
	TimePenaltyDescription    string  `json:"timePenaltyDescription"`
	FinalScore                float64 `json:"finalScore"`
	Formula                   string  `json:"formula"`
}

// Analysis is the full, immutable result of one R4R analysis.
type Analysis struct {
	Userkey                   string              `json:"userkey"`
	User                      Identity            `json:"user"`
	TotalReviewsReceived      int                 `json:"totalReviewsReceived"`
	TotalReviewsGiven         int                 `json:"totalReviewsGiven"`
	ReciprocalReviews         int                 `json:"reciprocalReviews"`
	ReciprocalPercentage      float64             `json:"reciprocalPercentage"`
	QuickReciprocalCount      int                 `json:"quickReciprocalCount"`
	QuickReciprocalPercentage float64             `json:"quickReciprocalPercentage"`
	R4RScore                  float64             `json:"r4rScore"`
	RiskLevel                 RiskLevel           `json:"riskLevel"`
	ReviewPairs               []ReviewPair        `json:"reviewPairs"`
	AllReviews                []ReviewEntry       `json:"allReviews"`
	NetworkConnections        []NetworkConnection `json:"networkConnections"`
	FirstReviewDate           *time.Time          `json:"firstReviewDate"`
	LastReviewDate            *time.Time          `json:"lastReviewDate"`
	ReviewFrequency           float64             `json:"reviewFrequency"`
	AverageTimeBetweenReviews float64             `json:"averageTimeBetweenReviews"`
	AccountAgeDays            int                 `json:"accountAgeDays"`
	ScoreBreakdown            ScoreBreakdown      `json:"scoreBreakdown"`
	HighR4RReviewers          []HighRiskReviewer  `json:"highR4RReviewers,omitempty"`
	PartialData               bool                `json:"partialData"`
	AnalyzedAt                time.Time           `json:"analyzedAt"`
}
