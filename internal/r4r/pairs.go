package r4r

import (
	"strings"
	"unicode/utf8"
)

// QuickReciprocalMinutes is the largest gap, in minutes, at which a
// reciprocal exchange counts as quick.
const QuickReciprocalMinutes = 30

var genericPhrases = []string{
	"great", "awesome", "trusted", "reliable", "good user", "thumbs up",
	"excellent", "recommend", "nice", "cool", "good", "thanks", "ty",
}

// MatchPairs pairs every review user received with the first review user
// gave back to the same counterpart. The same given review may be matched
// by several received reviews from that counterpart.
func MatchPairs(user Identity, received, given []ReviewRecord) []ReviewPair {
	var pairs []ReviewPair
	for _, r := range received {
		authorKey := r.Author.Userkey
		if authorKey == "" || authorKey == user.Userkey {
			continue
		}
		g, ok := firstGivenTo(given, authorKey)
		if !ok {
			continue
		}
		pairs = append(pairs, NewReviewPair(user, r, g))
	}
	return pairs
}

func firstGivenTo(given []ReviewRecord, subjectKey string) (ReviewRecord, bool) {
	for _, g := range given {
		if g.Subject.Userkey == subjectKey {
			return g, true
		}
	}
	return ReviewRecord{}, false
}

// NewReviewPair builds a pair from a received review and the review given
// back, computing its time gap and suspicion score.
func NewReviewPair(user Identity, received, given ReviewRecord) ReviewPair {
	pair := ReviewPair{
		User1:        user,
		User2:        received.Author,
		Review1:      received,
		Review2:      given,
		IsReciprocal: true,
	}
	if !received.Timestamp.IsZero() && !given.Timestamp.IsZero() {
		pair.TimeGap = minutesBetween(received.Timestamp, given.Timestamp)
		pair.TimeGapKnown = true
		pair.IsQuickReciprocal = pair.TimeGap <= QuickReciprocalMinutes
	}
	pair.SuspiciousScore = ScorePair(pair)
	return pair
}

// ScorePair returns the 0-100 suspicion score of a reciprocal pair: the sum
// of its timing, sentiment and content components, clamped to 100.
func ScorePair(p ReviewPair) float64 {
	score := 0.0
	if p.TimeGapKnown {
		score += timeGapPoints(p.TimeGap)
	}
	if p.IsPositiveExchange() {
		score += 30
	}
	score += contentPoints(p.Review1.Comment, p.Review2.Comment)
	return clamp(score, 0, 100)
}

func timeGapPoints(minutes float64) float64 {
	switch {
	case minutes <= 5:
		return 50
	case minutes <= 15:
		return 35
	case minutes <= 30:
		return 25
	case minutes <= 60:
		return 10
	}
	return 0
}

// contentPoints scores comment similarity. Empty comments are common on
// the platform and score nothing.
func contentPoints(a, b string) float64 {
	c1 := normalizeComment(a)
	c2 := normalizeComment(b)
	if c1 == "" || c2 == "" {
		return 0
	}
	if c1 == c2 {
		return 40
	}

	len1 := utf8.RuneCountInString(c1)
	len2 := utf8.RuneCountInString(c2)
	generic := hasGenericPhrase(c1) && hasGenericPhrase(c2)

	switch {
	case len1 <= 25 && len2 <= 25 && generic:
		return 20
	case len1 <= 10 && len2 <= 10:
		return 15
	case generic:
		return 8
	}
	return 0
}

func normalizeComment(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func hasGenericPhrase(comment string) bool {
	for _, phrase := range genericPhrases {
		if strings.Contains(comment, phrase) {
			return true
		}
	}
	return false
}

// NeedsContentReview reports whether the pair's comments are worth sending
// to an external content scorer: both present and not already identical.
func NeedsContentReview(p ReviewPair) bool {
	c1 := normalizeComment(p.Review1.Comment)
	c2 := normalizeComment(p.Review2.Comment)
	return c1 != "" && c2 != "" && c1 != c2
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
