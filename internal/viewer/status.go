package viewer

import (
	"fmt"
	"strings"

	"rtcview/internal/domain"
)

// SignalingState is the viewer's view of the signaling channel.
type SignalingState string

const (
	SignalingIdle       SignalingState = ""
	SignalingConnecting SignalingState = "connecting"
	SignalingOpen       SignalingState = "open"
	SignalingClosed     SignalingState = "closed"
)

// Status is a read-only snapshot of a session, published after every Tick.
type Status struct {
	SessionID         string
	State             State
	Signaling         SignalingState
	Connection        domain.ConnectionState
	ICE               domain.ICEConnectionState
	PendingCandidates int
	Receiving         bool
	// Width and Height are the frame size hint of the attached source, or
	// the configured hint before one is attached.
	Width, Height int
	Err           error
}

func (s Status) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "session=%s state=%s", shortID(s.SessionID), s.State)
	if s.Signaling != SignalingIdle {
		fmt.Fprintf(&b, " ws=%s", s.Signaling)
	}
	if s.Connection != domain.ConnectionStateUnknown {
		fmt.Fprintf(&b, " pc=%s", s.Connection)
	}
	if s.ICE != domain.ICEConnectionStateUnknown {
		fmt.Fprintf(&b, " ice=%s", s.ICE)
	}
	if s.PendingCandidates > 0 {
		fmt.Fprintf(&b, " pending=%d", s.PendingCandidates)
	}
	fmt.Fprintf(&b, " video=%t", s.Receiving)
	if s.Width > 0 && s.Height > 0 {
		fmt.Fprintf(&b, " size=%dx%d", s.Width, s.Height)
	}
	if s.Err != nil {
		fmt.Fprintf(&b, " err=%q", s.Err.Error())
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
