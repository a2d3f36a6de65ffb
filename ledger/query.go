// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SortOrder values accepted by Search
type SortOrder string

const (
	SortLatest     SortOrder = "latest"
	SortOldest     SortOrder = "oldest"
	SortMostVoted  SortOrder = "mostVoted"
	SortEndingSoon SortOrder = "endingSoon"
)

// ParseSortOrder maps an empty string to SortLatest and rejects unknown orders.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case "":
		return SortLatest, nil
	case SortLatest, SortOldest, SortMostVoted, SortEndingSoon:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

type SearchQuery struct {
	// Text matches prompt, description or creator, case-insensitively.
	Text       string
	Category   string
	ActiveOnly bool
	Sort       SortOrder
}

// Search filters and orders polls already fetched from a Service.
// The input slice is not modified.
func Search(polls []Poll, q SearchQuery, now time.Time) []Poll {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	category := CategoryKey(q.Category)

	out := make([]Poll, 0, len(polls))
	for _, p := range polls {
		if text != "" &&
			!strings.Contains(strings.ToLower(p.Prompt), text) &&
			!strings.Contains(strings.ToLower(p.Description), text) &&
			!strings.Contains(strings.ToLower(p.CreatedBy), text) {
			continue
		}
		if category != "" && CategoryKey(p.Category) != category {
			continue
		}
		if q.ActiveOnly && !p.IsActive(now) {
			continue
		}
		out = append(out, p)
	}

	SortPolls(out)
	switch q.Sort {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	case SortMostVoted:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].TotalVotes() > out[j].TotalVotes()
		})
	case SortEndingSoon:
		// Expired polls sink to the bottom.
		sort.SliceStable(out, func(i, j int) bool {
			ai, aj := out[i].Remaining(now), out[j].Remaining(now)
			if (ai == 0) != (aj == 0) {
				return aj == 0
			}
			return ai < aj
		})
	}
	return out
}

// Stats summarizes a set of polls at a point in time.
type Stats struct {
	TotalPolls  int    `json:"total_polls"`
	ActivePolls int    `json:"active_polls"`
	TotalVotes  uint64 `json:"total_votes"`
}

func Summarize(polls []Poll, now time.Time) Stats {
	var s Stats
	for _, p := range polls {
		s.TotalPolls++
		if p.IsActive(now) {
			s.ActivePolls++
		}
		s.TotalVotes += p.TotalVotes()
	}
	return s
}
