// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Method names a ledger operation on the call boundary. The set is closed:
// DecodeRequest rejects anything else.
type Method string

const (
	MethodCreatePoll         Method = "createPoll"
	MethodVote               Method = "vote"
	MethodGetPoll            Method = "getPoll"
	MethodGetAllPolls        Method = "getAllPolls"
	MethodGetUserPolls       Method = "getUserPolls"
	MethodGetPollsByCategory Method = "getPollsByCategory"
	MethodHasUserVoted       Method = "hasUserVoted"
	MethodGetUserVote        Method = "getUserVote"
	MethodGetUserVoteHistory Method = "getUserVoteHistory"
	MethodDeletePoll         Method = "deletePoll"
	MethodPausePoll          Method = "pausePoll"
	MethodResumePoll         Method = "resumePoll"
	MethodExtendPoll         Method = "extendPoll"
)

var ErrUnknownMethod = errors.New("unknown ledger method")

// Mutates reports whether m changes ledger state. Those calls act on behalf
// of the caller and need an authenticated identity.
func (m Method) Mutates() bool {
	switch m {
	case MethodCreatePoll, MethodVote, MethodDeletePoll, MethodPausePoll, MethodResumePoll, MethodExtendPoll:
		return true
	}
	return false
}

// Env is what the hosting environment supplies to every call.
type Env struct {
	Caller string
	Now    time.Time
}

// Request is one typed ledger call. Implementations are the *Request types
// in this file.
type Request interface {
	Method() Method
	isRequest()
}

type CreatePollRequest struct {
	Prompt        string      `json:"prompt"`
	Description   string      `json:"description"`
	Category      string      `json:"category"`
	Candidates    []Candidate `json:"candidates"`
	DurationDays  int         `json:"durationDays"`
	DurationHours int         `json:"durationHours"`
	Tags          []string    `json:"tags"`
}

type VoteRequest struct {
	PollID         string `json:"pollId"`
	CandidateIndex int    `json:"candidateIndex"`
}

type GetPollRequest struct {
	PollID string `json:"pollId"`
}

type GetAllPollsRequest struct{}

type GetUserPollsRequest struct {
	UserID string `json:"userId"`
}

type GetPollsByCategoryRequest struct {
	Category string `json:"category"`
}

type HasUserVotedRequest struct {
	PollID string `json:"pollId"`
	UserID string `json:"userId"`
}

type GetUserVoteRequest struct {
	PollID string `json:"pollId"`
	UserID string `json:"userId"`
}

type GetUserVoteHistoryRequest struct {
	UserID string `json:"userId"`
}

type DeletePollRequest struct {
	PollID string `json:"pollId"`
}

type PausePollRequest struct {
	PollID string `json:"pollId"`
}

type ResumePollRequest struct {
	PollID string `json:"pollId"`
}

type ExtendPollRequest struct {
	PollID          string `json:"pollId"`
	AdditionalDays  int    `json:"additionalDays"`
	AdditionalHours int    `json:"additionalHours"`
}

func (CreatePollRequest) Method() Method         { return MethodCreatePoll }
func (VoteRequest) Method() Method               { return MethodVote }
func (GetPollRequest) Method() Method            { return MethodGetPoll }
func (GetAllPollsRequest) Method() Method        { return MethodGetAllPolls }
func (GetUserPollsRequest) Method() Method       { return MethodGetUserPolls }
func (GetPollsByCategoryRequest) Method() Method { return MethodGetPollsByCategory }
func (HasUserVotedRequest) Method() Method       { return MethodHasUserVoted }
func (GetUserVoteRequest) Method() Method        { return MethodGetUserVote }
func (GetUserVoteHistoryRequest) Method() Method { return MethodGetUserVoteHistory }
func (DeletePollRequest) Method() Method         { return MethodDeletePoll }
func (PausePollRequest) Method() Method          { return MethodPausePoll }
func (ResumePollRequest) Method() Method         { return MethodResumePoll }
func (ExtendPollRequest) Method() Method         { return MethodExtendPoll }

func (CreatePollRequest) isRequest()         {}
func (VoteRequest) isRequest()               {}
func (GetPollRequest) isRequest()            {}
func (GetAllPollsRequest) isRequest()        {}
func (GetUserPollsRequest) isRequest()       {}
func (GetPollsByCategoryRequest) isRequest() {}
func (HasUserVotedRequest) isRequest()       {}
func (GetUserVoteRequest) isRequest()        {}
func (GetUserVoteHistoryRequest) isRequest() {}
func (DeletePollRequest) isRequest()         {}
func (PausePollRequest) isRequest()          {}
func (ResumePollRequest) isRequest()         {}
func (ExtendPollRequest) isRequest()         {}

// Response is the typed result of Execute.
type Response interface {
	isResponse()
}

// PollResponse answers createPoll and getPoll. Poll is nil when getPoll
// finds nothing.
type PollResponse struct {
	Poll *Poll `json:"poll"`
}

type PollsResponse struct {
	Polls []Poll `json:"polls"`
}

type VotedResponse struct {
	Voted bool `json:"voted"`
}

type UserVoteResponse struct {
	CandidateIndex int `json:"candidateIndex"`
}

type HistoryResponse struct {
	Records []VoteRecord `json:"records"`
}

// AckResponse answers the mutations that return nothing but success.
type AckResponse struct {
	OK bool `json:"ok"`
}

func (PollResponse) isResponse()     {}
func (PollsResponse) isResponse()    {}
func (VotedResponse) isResponse()    {}
func (UserVoteResponse) isResponse() {}
func (HistoryResponse) isResponse()  {}
func (AckResponse) isResponse()      {}

// DecodeRequest parses args into the request type for method.
// Empty args decode as the zero request.
func DecodeRequest(method string, args json.RawMessage) (Request, error) {
	var req Request
	switch Method(method) {
	case MethodCreatePoll:
		req = &CreatePollRequest{}
	case MethodVote:
		req = &VoteRequest{}
	case MethodGetPoll:
		req = &GetPollRequest{}
	case MethodGetAllPolls:
		req = &GetAllPollsRequest{}
	case MethodGetUserPolls:
		req = &GetUserPollsRequest{}
	case MethodGetPollsByCategory:
		req = &GetPollsByCategoryRequest{}
	case MethodHasUserVoted:
		req = &HasUserVotedRequest{}
	case MethodGetUserVote:
		req = &GetUserVoteRequest{}
	case MethodGetUserVoteHistory:
		req = &GetUserVoteHistoryRequest{}
	case MethodDeletePoll:
		req = &DeletePollRequest{}
	case MethodPausePoll:
		req = &PausePollRequest{}
	case MethodResumePoll:
		req = &ResumePollRequest{}
	case MethodExtendPoll:
		req = &ExtendPollRequest{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, req); err != nil {
			return nil, fmt.Errorf("failed to decode %s args: %w", method, err)
		}
	}
	return deref(req), nil
}

// deref turns the decoding pointer back into the value type Execute switches on.
func deref(req Request) Request {
	switch r := req.(type) {
	case *CreatePollRequest:
		return *r
	case *VoteRequest:
		return *r
	case *GetPollRequest:
		return *r
	case *GetAllPollsRequest:
		return *r
	case *GetUserPollsRequest:
		return *r
	case *GetPollsByCategoryRequest:
		return *r
	case *HasUserVotedRequest:
		return *r
	case *GetUserVoteRequest:
		return *r
	case *GetUserVoteHistoryRequest:
		return *r
	case *DeletePollRequest:
		return *r
	case *PausePollRequest:
		return *r
	case *ResumePollRequest:
		return *r
	case *ExtendPollRequest:
		return *r
	}
	return req
}

// Execute runs req against svc with the caller and clock from env.
func Execute(ctx context.Context, svc Service, env Env, req Request) (Response, error) {
	switch r := req.(type) {
	case CreatePollRequest:
		p, err := svc.CreatePoll(ctx, NewPoll{
			Prompt:        r.Prompt,
			Description:   r.Description,
			Category:      r.Category,
			Candidates:    r.Candidates,
			DurationDays:  r.DurationDays,
			DurationHours: r.DurationHours,
			Tags:          r.Tags,
		}, env.Caller, env.Now)
		if err != nil {
			return nil, err
		}
		return PollResponse{Poll: &p}, nil

	case VoteRequest:
		if err := svc.Vote(ctx, r.PollID, r.CandidateIndex, env.Caller, env.Now); err != nil {
			return nil, err
		}
		return AckResponse{OK: true}, nil

	case GetPollRequest:
		p, err := svc.GetPoll(ctx, r.PollID)
		if err != nil {
			return nil, err
		}
		return PollResponse{Poll: p}, nil

	case GetAllPollsRequest:
		polls, err := svc.AllPolls(ctx)
		return pollsResponse(polls, err)

	case GetUserPollsRequest:
		polls, err := svc.UserPolls(ctx, r.UserID)
		return pollsResponse(polls, err)

	case GetPollsByCategoryRequest:
		polls, err := svc.PollsByCategory(ctx, r.Category)
		return pollsResponse(polls, err)

	case HasUserVotedRequest:
		voted, err := svc.HasUserVoted(ctx, r.PollID, r.UserID)
		if err != nil {
			return nil, err
		}
		return VotedResponse{Voted: voted}, nil

	case GetUserVoteRequest:
		idx, err := svc.UserVote(ctx, r.PollID, r.UserID)
		if err != nil {
			return nil, err
		}
		return UserVoteResponse{CandidateIndex: idx}, nil

	case GetUserVoteHistoryRequest:
		records, err := svc.UserVoteHistory(ctx, r.UserID)
		if err != nil {
			return nil, err
		}
		return HistoryResponse{Records: records}, nil

	case DeletePollRequest:
		return ack(svc.DeletePoll(ctx, r.PollID, env.Caller))

	case PausePollRequest:
		return ack(svc.PausePoll(ctx, r.PollID, env.Caller))

	case ResumePollRequest:
		return ack(svc.ResumePoll(ctx, r.PollID, env.Caller))

	case ExtendPollRequest:
		return ack(svc.ExtendPoll(ctx, r.PollID, env.Caller, r.AdditionalDays, r.AdditionalHours))
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownMethod, req)
}

func pollsResponse(polls []Poll, err error) (Response, error) {
	if err != nil {
		return nil, err
	}
	return PollsResponse{Polls: polls}, nil
}

func ack(err error) (Response, error) {
	if err != nil {
		return nil, err
	}
	return AckResponse{OK: true}, nil
}
