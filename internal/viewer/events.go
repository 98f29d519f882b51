package viewer

import "rtcview/internal/domain"

// event is something a callback observed, queued for the next Tick.
type event interface {
	isEvent()
}

type messageEvent struct {
	text string
}

type channelClosedEvent struct {
	err error
}

// localCandidateEvent carries a nil candidate when gathering completes.
type localCandidateEvent struct {
	candidate *domain.ICECandidate
}

type trackEvent struct {
	track domain.Track
}

type connStateEvent struct {
	state domain.ConnectionState
}

type iceStateEvent struct {
	state domain.ICEConnectionState
}

func (messageEvent) isEvent()        {}
func (channelClosedEvent) isEvent()  {}
func (localCandidateEvent) isEvent() {}
func (trackEvent) isEvent()          {}
func (connStateEvent) isEvent()      {}
func (iceStateEvent) isEvent()       {}
