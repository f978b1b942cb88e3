package game

import "sort"

// RaiseCap is the largest total wager any seated player can still match.
// There is one pot; a raise never builds a side pot beyond this.
func RaiseCap(seats []*Player) int64 {
	limit := int64(-1)
	for _, p := range seats {
		v := p.Balance + p.ChipsOnTable
		if limit < 0 || v < limit {
			limit = v
		}
	}
	if limit < 0 {
		return 0
	}
	return limit
}

// SplitPot divides pot between the winning seat indices. Every winner gets
// pot/len(winners); the remaining odd chips go one each to winners in seat
// order starting left of the dealer. The shares always add up to pot.
func SplitPot(pot int64, winners []int, dealerPos, seatCount int) map[int]int64 {
	out := make(map[int]int64, len(winners))
	if len(winners) == 0 || pot <= 0 {
		return out
	}
	ordered := append([]int(nil), winners...)
	dist := func(idx int) int {
		if seatCount <= 0 {
			return idx
		}
		return ((idx-dealerPos-1)%seatCount + seatCount) % seatCount
	}
	sort.Slice(ordered, func(i, j int) bool { return dist(ordered[i]) < dist(ordered[j]) })

	k := int64(len(ordered))
	base, rem := pot/k, pot%k
	for i, idx := range ordered {
		share := base
		if int64(i) < rem {
			share++
		}
		out[idx] += share
	}
	return out
}
