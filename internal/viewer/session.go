package viewer

import (
	"fmt"

	"rtcview/internal/domain"

	"github.com/google/uuid"
)

// State is the negotiation state of a Session.
type State int

const (
	StateIdle State = iota
	StateChannelConnecting
	StateOffering
	StateAwaitingAnswer
	StateConnected
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChannelConnecting:
		return "channel-connecting"
	case StateOffering:
		return "offering"
	case StateAwaitingAnswer:
		return "awaiting-answer"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session is the negotiation state owned by one Viewer. It is only read and
// written on the scheduler goroutine.
type Session struct {
	ID     string
	State  State
	Local  *domain.SessionDescription
	Remote *domain.SessionDescription
	Track  domain.Track

	// Err is the cause of the transition to StateFailed.
	Err error

	// pending holds remote candidates that arrived before Remote was applied.
	pending []domain.ICECandidate
	// outbound holds local candidates gathered before the offer was sent.
	outbound []domain.ICECandidate

	offerCreated bool
	offerSent    bool
	delivered    bool
	released     bool
}

func newSession() *Session {
	return &Session{ID: uuid.NewString(), State: StateIdle}
}

// remoteApplied reports whether a remote description has been successfully set.
func (s *Session) remoteApplied() bool {
	return s.Remote != nil
}

func (s *Session) queueRemoteCandidate(c domain.ICECandidate) {
	s.pending = append(s.pending, c)
}

func (s *Session) takePending() []domain.ICECandidate {
	p := s.pending
	s.pending = nil
	return p
}

func (s *Session) queueLocalCandidate(c domain.ICECandidate) {
	s.outbound = append(s.outbound, c)
}

func (s *Session) takeOutbound() []domain.ICECandidate {
	o := s.outbound
	s.outbound = nil
	return o
}
