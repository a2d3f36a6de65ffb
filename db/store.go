// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/poll-ledger/ledger"
)

// Store is a ledger.Service persisted in PostgreSQL or SQLite.
// Every mutation is one transaction: validation reads and writes commit
// together or not at all.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ ledger.Service = (*Store)(nil)

func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

const pollColumns = `p.id, p.instance, p.prompt, p.description, p.category, p.tags,
       p.created_by, p.created_at, p.duration_ns, p.paused`

const candidateColumns = `c.idx, c.name, c.slogan, c.description, c.image_url, c.votes`

func (s *Store) CreatePoll(ctx context.Context, in ledger.NewPoll, caller string, now time.Time) (ledger.Poll, error) {
	var created ledger.Poll
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx, s.q(`SELECT EXISTS(SELECT 1 FROM poll WHERE id = ?)`), in.Prompt).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to query poll: %w", err)
		}
		if exists {
			return ledger.DuplicateID(in.Prompt)
		}

		p, err := ledger.BuildPoll(in, caller, now)
		if err != nil {
			return err
		}
		tags, err := json.Marshal(p.Tags)
		if err != nil {
			return fmt.Errorf("failed to encode tags: %w", err)
		}

		_, err = tx.ExecContext(ctx, s.q(`
			INSERT INTO poll (id, instance, prompt, description, category, category_key,
			                  tags, created_by, created_at, duration_ns, paused)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`), p.ID, p.Instance, p.Prompt, p.Description, p.Category, ledger.CategoryKey(p.Category),
			string(tags), p.CreatedBy, p.CreatedAt.UnixNano(), int64(p.Duration), p.Paused)
		if isUniqueViolation(err) {
			return ledger.DuplicateID(in.Prompt)
		}
		if err != nil {
			return fmt.Errorf("failed to insert poll: %w", err)
		}

		for i, c := range p.Candidates {
			_, err = tx.ExecContext(ctx, s.q(`
				INSERT INTO candidate (poll_instance, idx, name, slogan, description, image_url, votes)
				VALUES (?, ?, ?, ?, ?, ?, 0)
			`), p.Instance, i, c.Name, c.Slogan, c.Description, c.ImageURL)
			if err != nil {
				return fmt.Errorf("failed to insert candidate: %w", err)
			}
		}

		created = p
		return nil
	})
	if err != nil {
		return ledger.Poll{}, err
	}
	return created, nil
}

func (s *Store) Vote(ctx context.Context, pollID string, candidateIndex int, caller string, now time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := s.lockPoll(ctx, tx, pollID, false)
		if err != nil {
			return err
		}
		if p == nil {
			return ledger.NotFound(pollID)
		}
		if p.Candidates, p.VoteCounts, err = s.loadCandidates(ctx, tx, p.Instance); err != nil {
			return err
		}

		var voted bool
		err = tx.QueryRowContext(ctx, s.q(`
			SELECT EXISTS(SELECT 1 FROM vote WHERE caller_id = ? AND poll_instance = ?)
		`), caller, p.Instance).Scan(&voted)
		if err != nil {
			return fmt.Errorf("failed to query vote: %w", err)
		}
		if err := ledger.CheckVote(*p, candidateIndex, voted, now); err != nil {
			return err
		}

		// The primary key settles a race the EXISTS check lost.
		_, err = tx.ExecContext(ctx, s.q(`
			INSERT INTO vote (caller_id, poll_instance, poll_id, candidate_idx, cast_at)
			VALUES (?, ?, ?, ?, ?)
		`), caller, p.Instance, pollID, candidateIndex, now.UnixNano())
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ledger.ErrAlreadyVoted, pollID)
		}
		if err != nil {
			return fmt.Errorf("failed to insert vote: %w", err)
		}

		_, err = tx.ExecContext(ctx, s.q(`
			UPDATE candidate SET votes = votes + 1 WHERE poll_instance = ? AND idx = ?
		`), p.Instance, candidateIndex)
		if err != nil {
			return fmt.Errorf("failed to count vote: %w", err)
		}
		return nil
	})
}

func (s *Store) GetPoll(ctx context.Context, pollID string) (*ledger.Poll, error) {
	polls, err := s.queryPolls(ctx, `WHERE p.id = ?`, pollID)
	if err != nil || len(polls) == 0 {
		return nil, err
	}
	return &polls[0], nil
}

func (s *Store) AllPolls(ctx context.Context) ([]ledger.Poll, error) {
	return s.queryPolls(ctx, ``)
}

func (s *Store) UserPolls(ctx context.Context, caller string) ([]ledger.Poll, error) {
	return s.queryPolls(ctx, `WHERE p.created_by = ?`, caller)
}

func (s *Store) PollsByCategory(ctx context.Context, category string) ([]ledger.Poll, error) {
	return s.queryPolls(ctx, `WHERE p.category_key = ?`, ledger.CategoryKey(category))
}

func (s *Store) HasUserVoted(ctx context.Context, pollID, caller string) (bool, error) {
	idx, err := s.UserVote(ctx, pollID, caller)
	return idx != ledger.NotVoted, err
}

func (s *Store) UserVote(ctx context.Context, pollID, caller string) (int, error) {
	var idx int
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT v.candidate_idx
		FROM vote v
		JOIN poll p ON p.instance = v.poll_instance
		WHERE p.id = ? AND v.caller_id = ?
	`), pollID, caller).Scan(&idx)
	if err == sql.ErrNoRows {
		return ledger.NotVoted, nil
	}
	if err != nil {
		return ledger.NotVoted, fmt.Errorf("failed to query vote: %w", err)
	}
	return idx, nil
}

func (s *Store) UserVoteHistory(ctx context.Context, caller string) ([]ledger.VoteRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT v.poll_id, v.poll_instance, v.candidate_idx, v.cast_at
		FROM vote v
		JOIN poll p ON p.instance = v.poll_instance
		WHERE v.caller_id = ?
		ORDER BY v.cast_at
	`), caller)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	history := []ledger.VoteRecord{}
	for rows.Next() {
		var rec ledger.VoteRecord
		var castAt int64
		if err := rows.Scan(&rec.PollID, &rec.Instance, &rec.CandidateIndex, &castAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		rec.CastAt = time.Unix(0, castAt)
		history = append(history, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read votes: %w", err)
	}
	ledger.SortHistory(history)
	return history, nil
}

// DeletePoll removes the poll and its candidates. Vote rows are kept.
func (s *Store) DeletePoll(ctx context.Context, pollID, caller string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := s.ownedPoll(ctx, tx, pollID, caller)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM candidate WHERE poll_instance = ?`), p.Instance); err != nil {
			return fmt.Errorf("failed to delete candidates: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM poll WHERE id = ?`), pollID); err != nil {
			return fmt.Errorf("failed to delete poll: %w", err)
		}
		return nil
	})
}

func (s *Store) PausePoll(ctx context.Context, pollID, caller string) error {
	return s.setPaused(ctx, pollID, caller, true)
}

func (s *Store) ResumePoll(ctx context.Context, pollID, caller string) error {
	return s.setPaused(ctx, pollID, caller, false)
}

func (s *Store) setPaused(ctx context.Context, pollID, caller string, paused bool) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.ownedPoll(ctx, tx, pollID, caller); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE poll SET paused = ? WHERE id = ?`), paused, pollID); err != nil {
			return fmt.Errorf("failed to update poll: %w", err)
		}
		return nil
	})
}

func (s *Store) ExtendPoll(ctx context.Context, pollID, caller string, additionalDays, additionalHours int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := s.ownedPoll(ctx, tx, pollID, caller)
		if err != nil {
			return err
		}
		d, err := ledger.ExtendedDuration(p.Duration, additionalDays, additionalHours)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE poll SET duration_ns = ? WHERE id = ?`), int64(d), pollID); err != nil {
			return fmt.Errorf("failed to update poll: %w", err)
		}
		return nil
	})
}

// ownedPoll locks the poll row for update and checks that caller created it.
func (s *Store) ownedPoll(ctx context.Context, tx *sql.Tx, pollID, caller string) (*ledger.Poll, error) {
	p, err := s.lockPoll(ctx, tx, pollID, true)
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

// lockPoll loads the poll row without candidates. It returns nil, nil when
// the poll does not exist.
func (s *Store) lockPoll(ctx context.Context, tx *sql.Tx, pollID string, exclusive bool) (*ledger.Poll, error) {
	var pr pollRow
	err := tx.QueryRowContext(ctx, s.q(`SELECT `+pollColumns+` FROM poll p WHERE p.id = ?`+s.dialect.lockClause(exclusive)), pollID).
		Scan(pr.dest()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query poll: %w", err)
	}
	p, err := pr.toPoll()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) loadCandidates(ctx context.Context, tx *sql.Tx, instance uuid.UUID) ([]ledger.Candidate, []uint64, error) {
	rows, err := tx.QueryContext(ctx, s.q(`
		SELECT `+candidateColumns+` FROM candidate c WHERE c.poll_instance = ? ORDER BY c.idx
	`), instance)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []ledger.Candidate
	var counts []uint64
	for rows.Next() {
		var cr candidateRow
		if err := rows.Scan(cr.dest()...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, cr.candidate)
		counts = append(counts, uint64(cr.votes))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read candidates: %w", err)
	}
	return candidates, counts, nil
}

// queryPolls reads polls and their candidates in one statement, so each
// result is a consistent snapshot.
func (s *Store) queryPolls(ctx context.Context, where string, args ...any) ([]ledger.Poll, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+pollColumns+`, `+candidateColumns+`
		FROM poll p
		JOIN candidate c ON c.poll_instance = p.instance
		`+where+`
		ORDER BY p.created_at DESC, p.id, c.idx
	`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}
	defer rows.Close()

	polls := []ledger.Poll{}
	for rows.Next() {
		var pr pollRow
		var cr candidateRow
		if err := rows.Scan(append(pr.dest(), cr.dest()...)...); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}

		if n := len(polls); n == 0 || polls[n-1].ID != pr.poll.ID {
			p, err := pr.toPoll()
			if err != nil {
				return nil, err
			}
			polls = append(polls, p)
		}
		last := &polls[len(polls)-1]
		last.Candidates = append(last.Candidates, cr.candidate)
		last.VoteCounts = append(last.VoteCounts, uint64(cr.votes))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read polls: %w", err)
	}

	ledger.SortPolls(polls)
	return polls, nil
}

// pollRow is a scan target for pollColumns.
type pollRow struct {
	poll      ledger.Poll
	tags      string
	createdAt int64
	duration  int64
}

func (r *pollRow) dest() []any {
	p := &r.poll
	return []any{&p.ID, &p.Instance, &p.Prompt, &p.Description, &p.Category, &r.tags,
		&p.CreatedBy, &r.createdAt, &r.duration, &p.Paused}
}

func (r *pollRow) toPoll() (ledger.Poll, error) {
	p := r.poll
	p.CreatedAt = time.Unix(0, r.createdAt)
	p.Duration = time.Duration(r.duration)
	if err := json.Unmarshal([]byte(r.tags), &p.Tags); err != nil {
		return ledger.Poll{}, fmt.Errorf("failed to decode tags: %w", err)
	}
	return p, nil
}

// candidateRow is a scan target for candidateColumns.
type candidateRow struct {
	idx       int
	candidate ledger.Candidate
	votes     int64
}

func (r *candidateRow) dest() []any {
	c := &r.candidate
	return []any{&r.idx, &c.Name, &c.Slogan, &c.Description, &c.ImageURL, &r.votes}
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) q(query string) string {
	return s.dialect.rebind(query)
}
