// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package redisdb

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/danielhkuo/poll-ledger/ledger"
)

// pollHash is the field layout of a poll hash. Vote counts live in the same
// hash as count:<idx> fields so one HGETALL reads a consistent poll.
type pollHash struct {
	ID          string `mapstructure:"id"`
	Instance    string `mapstructure:"instance"`
	Prompt      string `mapstructure:"prompt"`
	Description string `mapstructure:"description"`
	Category    string `mapstructure:"category"`
	Tags        string `mapstructure:"tags"`
	Candidates  string `mapstructure:"candidates"`
	CreatedBy   string `mapstructure:"created_by"`
	CreatedAt   int64  `mapstructure:"created_at"`
	DurationNs  int64  `mapstructure:"duration_ns"`
	Paused      bool   `mapstructure:"paused"`
}

func countField(idx int) string {
	return "count:" + strconv.Itoa(idx)
}

func encodePoll(p ledger.Poll) (map[string]any, error) {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	candidates, err := json.Marshal(p.Candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to encode candidates: %w", err)
	}

	fields := map[string]any{
		"id":          p.ID,
		"instance":    p.Instance.String(),
		"prompt":      p.Prompt,
		"description": p.Description,
		"category":    p.Category,
		"tags":        string(tags),
		"candidates":  string(candidates),
		"created_by":  p.CreatedBy,
		"created_at":  p.CreatedAt.UnixNano(),
		"duration_ns": int64(p.Duration),
		"paused":      boolField(p.Paused),
	}
	for i, n := range p.VoteCounts {
		fields[countField(i)] = n
	}
	return fields, nil
}

// decodePoll rebuilds a poll from HGETALL output. It returns nil, nil for an
// empty hash, which is what Redis answers for a missing key.
func decodePoll(fields map[string]string) (*ledger.Poll, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	var h pollHash
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &h,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(fields); err != nil {
		return nil, fmt.Errorf("failed to decode poll hash: %w", err)
	}

	p := ledger.Poll{
		ID:          h.ID,
		Prompt:      h.Prompt,
		Description: h.Description,
		Category:    h.Category,
		CreatedBy:   h.CreatedBy,
		CreatedAt:   time.Unix(0, h.CreatedAt),
		Duration:    time.Duration(h.DurationNs),
		Paused:      h.Paused,
	}
	if p.Instance, err = uuid.Parse(h.Instance); err != nil {
		return nil, fmt.Errorf("failed to decode poll instance: %w", err)
	}
	if err := json.Unmarshal([]byte(h.Tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(h.Candidates), &p.Candidates); err != nil {
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}

	p.VoteCounts = make([]uint64, len(p.Candidates))
	for i := range p.Candidates {
		raw, ok := fields[countField(i)]
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode vote count %d: %w", i, err)
		}
		p.VoteCounts[i] = n
	}
	return &p, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
