// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory Service.
//
// Lock order is mu, then a poll's entry mu, then votesMu. Vote and the owner
// operations release mu before taking the entry lock, so work on different
// polls only contends on the brief index lookups.
type Memory struct {
	mu         sync.RWMutex
	polls      map[string]*entry
	byCreator  map[string]map[string]struct{}
	byCategory map[string]map[string]struct{}

	votesMu sync.RWMutex
	// caller -> every vote that caller ever cast, including votes on polls
	// since deleted. Append-only.
	votes map[string][]VoteRecord
}

type entry struct {
	mu      sync.RWMutex
	poll    Poll
	voters  map[string]int
	deleted bool
}

var _ Service = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		polls:      make(map[string]*entry),
		byCreator:  make(map[string]map[string]struct{}),
		byCategory: make(map[string]map[string]struct{}),
		votes:      make(map[string][]VoteRecord),
	}
}

func (m *Memory) CreatePoll(_ context.Context, in NewPoll, caller string, now time.Time) (Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.polls[in.Prompt]; ok {
		return Poll{}, DuplicateID(in.Prompt)
	}
	p, err := BuildPoll(in, caller, now)
	if err != nil {
		return Poll{}, err
	}

	m.polls[p.ID] = &entry{poll: p, voters: make(map[string]int)}
	addToIndex(m.byCreator, p.CreatedBy, p.ID)
	addToIndex(m.byCategory, CategoryKey(p.Category), p.ID)
	return p.Clone(), nil
}

func (m *Memory) Vote(_ context.Context, pollID string, candidateIndex int, caller string, now time.Time) error {
	e := m.lookup(pollID)
	if e == nil {
		return NotFound(pollID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return NotFound(pollID)
	}
	_, voted := e.voters[caller]
	if err := CheckVote(e.poll, candidateIndex, voted, now); err != nil {
		return err
	}

	e.poll.VoteCounts[candidateIndex]++
	e.voters[caller] = candidateIndex

	m.votesMu.Lock()
	m.votes[caller] = append(m.votes[caller], VoteRecord{
		PollID:         pollID,
		Instance:       e.poll.Instance,
		CandidateIndex: candidateIndex,
		CastAt:         now,
	})
	m.votesMu.Unlock()
	return nil
}

func (m *Memory) GetPoll(_ context.Context, pollID string) (*Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.polls[pollID]
	if !ok {
		return nil, nil
	}
	p := e.snapshot()
	return &p, nil
}

func (m *Memory) AllPolls(_ context.Context) ([]Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	polls := make([]Poll, 0, len(m.polls))
	for _, e := range m.polls {
		polls = append(polls, e.snapshot())
	}
	SortPolls(polls)
	return polls, nil
}

func (m *Memory) UserPolls(_ context.Context, caller string) ([]Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(m.byCreator[caller]), nil
}

func (m *Memory) PollsByCategory(_ context.Context, category string) ([]Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(m.byCategory[CategoryKey(category)]), nil
}

func (m *Memory) HasUserVoted(ctx context.Context, pollID, caller string) (bool, error) {
	idx, err := m.UserVote(ctx, pollID, caller)
	return idx != NotVoted, err
}

func (m *Memory) UserVote(_ context.Context, pollID, caller string) (int, error) {
	e := m.lookup(pollID)
	if e == nil {
		return NotVoted, nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if idx, ok := e.voters[caller]; ok && !e.deleted {
		return idx, nil
	}
	return NotVoted, nil
}

func (m *Memory) UserVoteHistory(_ context.Context, caller string) ([]VoteRecord, error) {
	m.votesMu.RLock()
	all := append([]VoteRecord(nil), m.votes[caller]...)
	m.votesMu.RUnlock()

	live := make(map[string]uuid.UUID)
	m.mu.RLock()
	for _, rec := range all {
		if e, ok := m.polls[rec.PollID]; ok {
			live[rec.PollID] = e.poll.Instance
		}
	}
	m.mu.RUnlock()

	history := make([]VoteRecord, 0, len(all))
	for _, rec := range all {
		if inst, ok := live[rec.PollID]; ok && inst == rec.Instance {
			history = append(history, rec)
		}
	}
	SortHistory(history)
	return history, nil
}

// DeletePoll removes the poll from every index. Its vote records stay in the
// per-caller log but no longer match a live instance.
func (m *Memory) DeletePoll(_ context.Context, pollID, caller string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.polls[pollID]
	if !ok {
		return NotFound(pollID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := CheckOwner(e.poll, caller); err != nil {
		return err
	}

	e.deleted = true
	delete(m.polls, pollID)
	removeFromIndex(m.byCreator, e.poll.CreatedBy, pollID)
	removeFromIndex(m.byCategory, CategoryKey(e.poll.Category), pollID)
	return nil
}

func (m *Memory) PausePoll(_ context.Context, pollID, caller string) error {
	return m.mutate(pollID, caller, func(p *Poll) error {
		p.Paused = true
		return nil
	})
}

func (m *Memory) ResumePoll(_ context.Context, pollID, caller string) error {
	return m.mutate(pollID, caller, func(p *Poll) error {
		p.Paused = false
		return nil
	})
}

func (m *Memory) ExtendPoll(_ context.Context, pollID, caller string, additionalDays, additionalHours int) error {
	return m.mutate(pollID, caller, func(p *Poll) error {
		d, err := ExtendedDuration(p.Duration, additionalDays, additionalHours)
		if err != nil {
			return err
		}
		p.Duration = d
		return nil
	})
}

// mutate runs fn on the live poll under its entry lock after the owner check.
// fn must validate before it writes.
func (m *Memory) mutate(pollID, caller string, fn func(*Poll) error) error {
	e := m.lookup(pollID)
	if e == nil {
		return NotFound(pollID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return NotFound(pollID)
	}
	if err := CheckOwner(e.poll, caller); err != nil {
		return err
	}
	return fn(&e.poll)
}

func (m *Memory) lookup(pollID string) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.polls[pollID]
}

// collect snapshots the polls named in ids. m.mu must be held.
func (m *Memory) collect(ids map[string]struct{}) []Poll {
	polls := make([]Poll, 0, len(ids))
	for id := range ids {
		if e, ok := m.polls[id]; ok {
			polls = append(polls, e.snapshot())
		}
	}
	SortPolls(polls)
	return polls
}

func (e *entry) snapshot() Poll {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.poll.Clone()
}

func addToIndex(index map[string]map[string]struct{}, key, id string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[id] = struct{}{}
}

func removeFromIndex(index map[string]map[string]struct{}, key, id string) {
	set := index[key]
	delete(set, id)
	if len(set) == 0 {
		delete(index, key)
	}
}
