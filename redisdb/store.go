// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package redisdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/poll-ledger/ledger"
)

// Store is a ledger.Service kept in Redis.
//
// Keys, all under the configured prefix:
//
//	poll:<id>          hash, the live poll and its count:<idx> fields
//	voters:<instance>  hash, caller -> candidate index
//	history:<caller>   list, JSON vote records in cast order
//	polls              set of live poll ids
//	creator:<caller>   set of poll ids
//	category:<key>     set of poll ids, key lower-cased
//
// Poll lifecycle changes run under WATCH on the poll hash and commit with
// MULTI/EXEC. Votes commit through voteScript so voters on the same poll do
// not invalidate each other.
type Store struct {
	rdb    *redis.Client
	prefix string
}

var _ ledger.Service = (*Store)(nil)

func NewStore(rdb *redis.Client, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) pollKey(id string) string            { return s.prefix + "poll:" + id }
func (s *Store) votersKey(instance uuid.UUID) string { return s.prefix + "voters:" + instance.String() }
func (s *Store) historyKey(caller string) string     { return s.prefix + "history:" + caller }
func (s *Store) allKey() string                      { return s.prefix + "polls" }
func (s *Store) creatorKey(caller string) string     { return s.prefix + "creator:" + caller }
func (s *Store) categoryKey(category string) string {
	return s.prefix + "category:" + ledger.CategoryKey(category)
}

func (s *Store) CreatePoll(ctx context.Context, in ledger.NewPoll, caller string, now time.Time) (ledger.Poll, error) {
	var created ledger.Poll
	key := s.pollKey(in.Prompt)
	err := s.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to query poll: %w", err)
		}
		if n > 0 {
			return ledger.DuplicateID(in.Prompt)
		}

		p, err := ledger.BuildPoll(in, caller, now)
		if err != nil {
			return err
		}
		fields, err := encodePoll(p)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			pipe.SAdd(ctx, s.allKey(), p.ID)
			pipe.SAdd(ctx, s.creatorKey(p.CreatedBy), p.ID)
			pipe.SAdd(ctx, s.categoryKey(p.Category), p.ID)
			return nil
		})
		if err != nil {
			return err
		}
		created = p
		return nil
	}, key)
	if err != nil {
		return ledger.Poll{}, err
	}
	return created, nil
}

// voteScript commits a vote checked against a loaded poll. It refuses with
// "stale" when the fields that decided the check (instance, paused,
// duration_ns) changed since the load, and with "voted" when the caller is
// already in the voters hash.
//
// KEYS: poll hash, voters hash, history list
// ARGV: instance, paused, duration_ns, caller, count field, index, record
var voteScript = redis.NewScript(`
local f = redis.call('HMGET', KEYS[1], 'instance', 'paused', 'duration_ns')
if f[1] ~= ARGV[1] or f[2] ~= ARGV[2] or f[3] ~= ARGV[3] then
	return 'stale'
end
if redis.call('HSETNX', KEYS[2], ARGV[4], ARGV[6]) == 0 then
	return 'voted'
end
redis.call('HINCRBY', KEYS[1], ARGV[5], 1)
redis.call('RPUSH', KEYS[3], ARGV[7])
return 'ok'
`)

// Vote validates against a plain read of the poll and commits with
// voteScript. Concurrent votes never conflict with each other; only a
// concurrent pause, extend or delete makes the script report "stale", and
// the vote is then re-checked against the new state.
func (s *Store) Vote(ctx context.Context, pollID string, candidateIndex int, caller string, now time.Time) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		p, err := s.load(ctx, s.rdb, pollID)
		if err != nil {
			return err
		}
		if p == nil {
			return ledger.NotFound(pollID)
		}

		voters := s.votersKey(p.Instance)
		voted, err := s.rdb.HExists(ctx, voters, caller).Result()
		if err != nil {
			return fmt.Errorf("failed to query vote: %w", err)
		}
		if err := ledger.CheckVote(*p, candidateIndex, voted, now); err != nil {
			return err
		}

		record, err := json.Marshal(ledger.VoteRecord{
			PollID:         pollID,
			Instance:       p.Instance,
			CandidateIndex: candidateIndex,
			CastAt:         now,
		})
		if err != nil {
			return fmt.Errorf("failed to encode vote: %w", err)
		}

		keys := []string{s.pollKey(pollID), voters, s.historyKey(caller)}
		res, err := voteScript.Run(ctx, s.rdb, keys,
			p.Instance.String(),
			boolField(p.Paused),
			strconv.FormatInt(int64(p.Duration), 10),
			caller,
			countField(candidateIndex),
			candidateIndex,
			record,
		).Text()
		if err != nil {
			return fmt.Errorf("failed to record vote: %w", err)
		}

		switch res {
		case "ok":
			return nil
		case "voted":
			// The poll state matched the check above, so only the voter changed.
			return ledger.CheckVote(*p, candidateIndex, true, now)
		case "stale":
			continue
		default:
			return fmt.Errorf("failed to record vote: unexpected script reply %q", res)
		}
	}
}

func (s *Store) GetPoll(ctx context.Context, pollID string) (*ledger.Poll, error) {
	return s.load(ctx, s.rdb, pollID)
}

func (s *Store) AllPolls(ctx context.Context) ([]ledger.Poll, error) {
	return s.pollsIn(ctx, s.allKey())
}

func (s *Store) UserPolls(ctx context.Context, caller string) ([]ledger.Poll, error) {
	return s.pollsIn(ctx, s.creatorKey(caller))
}

func (s *Store) PollsByCategory(ctx context.Context, category string) ([]ledger.Poll, error) {
	return s.pollsIn(ctx, s.categoryKey(category))
}

func (s *Store) HasUserVoted(ctx context.Context, pollID, caller string) (bool, error) {
	idx, err := s.UserVote(ctx, pollID, caller)
	return idx != ledger.NotVoted, err
}

func (s *Store) UserVote(ctx context.Context, pollID, caller string) (int, error) {
	raw, err := s.rdb.HGet(ctx, s.pollKey(pollID), "instance").Result()
	if errors.Is(err, redis.Nil) {
		return ledger.NotVoted, nil
	}
	if err != nil {
		return ledger.NotVoted, fmt.Errorf("failed to query poll: %w", err)
	}
	instance, err := uuid.Parse(raw)
	if err != nil {
		return ledger.NotVoted, fmt.Errorf("failed to decode poll instance: %w", err)
	}

	idx, err := s.rdb.HGet(ctx, s.votersKey(instance), caller).Int()
	if errors.Is(err, redis.Nil) {
		return ledger.NotVoted, nil
	}
	if err != nil {
		return ledger.NotVoted, fmt.Errorf("failed to query vote: %w", err)
	}
	return idx, nil
}

func (s *Store) UserVoteHistory(ctx context.Context, caller string) ([]ledger.VoteRecord, error) {
	raw, err := s.rdb.LRange(ctx, s.historyKey(caller), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}

	records := make([]ledger.VoteRecord, 0, len(raw))
	instances := make(map[string]*redis.StringCmd)
	pipe := s.rdb.Pipeline()
	for _, r := range raw {
		var rec ledger.VoteRecord
		if err := json.Unmarshal([]byte(r), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode vote: %w", err)
		}
		records = append(records, rec)
		if _, ok := instances[rec.PollID]; !ok {
			instances[rec.PollID] = pipe.HGet(ctx, s.pollKey(rec.PollID), "instance")
		}
	}
	if len(instances) > 0 {
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to query polls: %w", err)
		}
	}

	history := []ledger.VoteRecord{}
	for _, rec := range records {
		if instances[rec.PollID].Val() == rec.Instance.String() {
			history = append(history, rec)
		}
	}
	ledger.SortHistory(history)
	return history, nil
}

// DeletePoll removes the poll hash and its index entries. The voters hash and
// caller histories are kept; their instance no longer matches a live poll.
func (s *Store) DeletePoll(ctx context.Context, pollID, caller string) error {
	key := s.pollKey(pollID)
	return s.watch(ctx, func(tx *redis.Tx) error {
		p, err := s.owned(ctx, tx, pollID, caller)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, s.allKey(), pollID)
			pipe.SRem(ctx, s.creatorKey(p.CreatedBy), pollID)
			pipe.SRem(ctx, s.categoryKey(p.Category), pollID)
			return nil
		})
		return err
	}, key)
}

func (s *Store) PausePoll(ctx context.Context, pollID, caller string) error {
	return s.update(ctx, pollID, caller, func(*ledger.Poll) (string, any, error) {
		return "paused", boolField(true), nil
	})
}

func (s *Store) ResumePoll(ctx context.Context, pollID, caller string) error {
	return s.update(ctx, pollID, caller, func(*ledger.Poll) (string, any, error) {
		return "paused", boolField(false), nil
	})
}

func (s *Store) ExtendPoll(ctx context.Context, pollID, caller string, additionalDays, additionalHours int) error {
	return s.update(ctx, pollID, caller, func(p *ledger.Poll) (string, any, error) {
		d, err := ledger.ExtendedDuration(p.Duration, additionalDays, additionalHours)
		if err != nil {
			return "", nil, err
		}
		return "duration_ns", int64(d), nil
	})
}

// update sets one field of an owned poll. fn computes the field and value
// from the current poll and may reject the change.
func (s *Store) update(ctx context.Context, pollID, caller string, fn func(*ledger.Poll) (string, any, error)) error {
	key := s.pollKey(pollID)
	return s.watch(ctx, func(tx *redis.Tx) error {
		p, err := s.owned(ctx, tx, pollID, caller)
		if err != nil {
			return err
		}
		field, value, err := fn(p)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, field, value)
			return nil
		})
		return err
	}, key)
}

func (s *Store) owned(ctx context.Context, tx *redis.Tx, pollID, caller string) (*ledger.Poll, error) {
	p, err := s.load(ctx, tx, pollID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ledger.NotFound(pollID)
	}
	if err := ledger.CheckOwner(*p, caller); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) load(ctx context.Context, c redis.Cmdable, pollID string) (*ledger.Poll, error) {
	fields, err := c.HGetAll(ctx, s.pollKey(pollID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query poll: %w", err)
	}
	return decodePoll(fields)
}

// pollsIn loads every poll whose id is in the set at key. Ids whose poll
// vanished between SMEMBERS and HGETALL are skipped.
func (s *Store) pollsIn(ctx context.Context, key string) ([]ledger.Poll, error) {
	ids, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query poll index: %w", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	if len(ids) > 0 {
		_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, id := range ids {
				cmds[i] = pipe.HGetAll(ctx, s.pollKey(id))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query polls: %w", err)
		}
	}

	polls := make([]ledger.Poll, 0, len(ids))
	for _, cmd := range cmds {
		p, err := decodePoll(cmd.Val())
		if err != nil {
			return nil, err
		}
		if p != nil {
			polls = append(polls, *p)
		}
	}
	ledger.SortPolls(polls)
	return polls, nil
}

// watch runs fn under WATCH keys, retrying when another client changed a
// watched key before EXEC. Votes touch the poll hash, so owner changes may
// retry while a poll is busy; ctx bounds the wait.
func (s *Store) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for {
		err := s.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("failed to commit: %w", err)
		}
	}
}
