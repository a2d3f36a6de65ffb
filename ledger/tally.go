// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import "sort"

// Standing is one candidate's position in a poll's results.
type Standing struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Votes uint64  `json:"votes"`
	Share float64 `json:"share"` // fraction of all votes, 0 when nobody voted
	Rank  int     `json:"rank"`  // 1-indexed, equal votes share a rank
}

// Tally ranks the candidates of p by votes, most first, ties in candidate order.
func Tally(p Poll) []Standing {
	total := p.TotalVotes()
	standings := make([]Standing, len(p.Candidates))
	for i, c := range p.Candidates {
		var votes uint64
		if i < len(p.VoteCounts) {
			votes = p.VoteCounts[i]
		}
		standings[i] = Standing{Index: i, Name: c.Name, Votes: votes}
		if total > 0 {
			standings[i].Share = float64(votes) / float64(total)
		}
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Votes > standings[j].Votes
	})
	for i := range standings {
		if i > 0 && standings[i].Votes == standings[i-1].Votes {
			standings[i].Rank = standings[i-1].Rank
		} else {
			standings[i].Rank = i + 1
		}
	}
	return standings
}

// Leader returns the index of the candidate with strictly the most votes.
// It reports false when nobody has voted or the top is tied.
func Leader(p Poll) (int, bool) {
	standings := Tally(p)
	if len(standings) == 0 || standings[0].Votes == 0 {
		return NotVoted, false
	}
	if len(standings) > 1 && standings[1].Votes == standings[0].Votes {
		return NotVoted, false
	}
	return standings[0].Index, true
}
