package domain

import (
	"errors"
	"fmt"
	"time"
)

// Transport errors reported by a Channel.
var (
	ErrTimeout = errors.New("signaling channel: open timed out")
	ErrNotOpen = errors.New("signaling channel: not open")
	ErrClosed  = errors.New("signaling channel: closed")
)

// ErrCandidateBeforeRemote marks an attempt to hand a remote candidate to the
// engine before any remote description was applied. It always indicates a
// bug in the buffering logic.
var ErrCandidateBeforeRemote = errors.New("candidate applied before remote description")

// ErrPeerFailed is reported when the engine's peer connection enters the failed state.
var ErrPeerFailed = errors.New("peer connection failed")

// NegotiationOp names the negotiation step that failed.
type NegotiationOp string

const (
	OpCreateOffer NegotiationOp = "create-offer"
	OpSetLocal    NegotiationOp = "set-local"
	OpSetRemote   NegotiationOp = "set-remote"
	OpParse       NegotiationOp = "parse"
	OpRenegotiate NegotiationOp = "renegotiate"
)

// NegotiationError reports a failed offer/answer step.
type NegotiationError struct {
	Op  NegotiationOp
	Err error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("negotiation %s: %v", e.Op, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// CandidateError reports a remote candidate that could not be applied.
type CandidateError struct {
	Candidate ICECandidate
	Err       error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("candidate %q: %v", e.Candidate.Candidate, e.Err)
}

func (e *CandidateError) Unwrap() error { return e.Err }

// PayloadError reports an envelope whose JSON payload could not be decoded.
type PayloadError struct {
	Tag EnvelopeTag
	Err error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: %v", e.Tag, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// AcquisitionTimeoutError reports that a track never exposed a frame source.
type AcquisitionTimeoutError struct {
	TrackID  string
	Attempts int
	Elapsed  time.Duration
}

func (e *AcquisitionTimeoutError) Error() string {
	return fmt.Sprintf("track %s: no frame source after %d attempts (%s)", e.TrackID, e.Attempts, e.Elapsed)
}
