package r4r

import "sort"

// DisplayConnectionLimit is how many network connections an analysis keeps.
const DisplayConnectionLimit = 20

type connectionAcc struct {
	user      Identity
	pairs     int
	scoreSum  float64
	gapSum    float64
	knownGaps int
}

// SummarizeNetwork groups pairs by counterpart and returns the connections
// sorted by mean suspicion, most suspicious first. limit <= 0 keeps all.
func SummarizeNetwork(pairs []ReviewPair, limit int) []NetworkConnection {
	groups := make(map[string]*connectionAcc)
	var order []string
	for _, p := range pairs {
		key := p.User2.Userkey
		acc, ok := groups[key]
		if !ok {
			acc = &connectionAcc{user: p.User2}
			groups[key] = acc
			order = append(order, key)
		}
		acc.pairs++
		acc.scoreSum += p.SuspiciousScore
		if p.TimeGapKnown {
			acc.gapSum += p.TimeGap
			acc.knownGaps++
		}
	}

	connections := make([]NetworkConnection, 0, len(order))
	for _, key := range order {
		acc := groups[key]
		conn := NetworkConnection{
			User:             acc.user,
			InteractionCount: acc.pairs,
			ReciprocalCount:  acc.pairs,
			SuspiciousScore:  round2(acc.scoreSum / float64(acc.pairs)),
		}
		if acc.knownGaps > 0 {
			conn.AvgTimeGap = round2(acc.gapSum / float64(acc.knownGaps))
		}
		connections = append(connections, conn)
	}

	sort.SliceStable(connections, func(i, j int) bool {
		a, b := connections[i], connections[j]
		if a.SuspiciousScore != b.SuspiciousScore {
			return a.SuspiciousScore > b.SuspiciousScore
		}
		if a.InteractionCount != b.InteractionCount {
			return a.InteractionCount > b.InteractionCount
		}
		return a.User.Userkey < b.User.Userkey
	})

	if limit > 0 && len(connections) > limit {
		connections = connections[:limit]
	}
	return connections
}
