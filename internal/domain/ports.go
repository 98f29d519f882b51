package domain

import (
	"context"
	"time"
)

// Channel is the signaling transport. It never reconnects.
type Channel interface {
	Connect(ctx context.Context, url string, timeout time.Duration) error
	Send(text string) error
	OnMessage(fn func(text string))
	OnClose(fn func(err error))
	Close() error
}

// Peer is the media engine: offer/answer and ICE primitives plus event callbacks.
// The On* callbacks may fire on any goroutine.
type Peer interface {
	CreateOffer() *Future[SessionDescription]
	SetLocalDescription(desc SessionDescription) *Future[struct{}]
	SetRemoteDescription(desc SessionDescription) *Future[struct{}]
	AddICECandidate(candidate ICECandidate) error

	// OnLocalICECandidate delivers gathered candidates; nil means gathering completed.
	OnLocalICECandidate(fn func(candidate *ICECandidate))
	OnTrack(fn func(track Track))
	OnConnectionStateChange(fn func(state ConnectionState))
	OnICEConnectionStateChange(fn func(state ICEConnectionState))
	Close() error
}

// Track is a received video track. FrameSource returns nil until frames are
// available for display.
type Track interface {
	ID() string
	FrameSource() FrameSource
	Release()
}

// Frame is one H264 access unit in Annex-B form.
type Frame struct {
	Data      []byte
	Timestamp uint32
	Keyframe  bool
}

// FrameSource delivers decoded-ready frames for display. The channel is
// closed when the track ends.
type FrameSource interface {
	Frames() <-chan Frame
	// Dimensions returns the configured target size. It is a hint, not the
	// size of the encoded stream.
	Dimensions() (width, height int)
}

// Display accepts a frame source. It is called at most once per track.
type Display interface {
	SetFrameSource(src FrameSource)
}

// ConnectionState mirrors the engine's peer connection state.
type ConnectionState string

const (
	ConnectionStateUnknown      ConnectionState = ""
	ConnectionStateNew          ConnectionState = "new"
	ConnectionStateConnecting   ConnectionState = "connecting"
	ConnectionStateConnected    ConnectionState = "connected"
	ConnectionStateDisconnected ConnectionState = "disconnected"
	ConnectionStateFailed       ConnectionState = "failed"
	ConnectionStateClosed       ConnectionState = "closed"
)

// ICEConnectionState mirrors the engine's ICE agent state.
type ICEConnectionState string

const (
	ICEConnectionStateUnknown      ICEConnectionState = ""
	ICEConnectionStateNew          ICEConnectionState = "new"
	ICEConnectionStateChecking     ICEConnectionState = "checking"
	ICEConnectionStateConnected    ICEConnectionState = "connected"
	ICEConnectionStateCompleted    ICEConnectionState = "completed"
	ICEConnectionStateDisconnected ICEConnectionState = "disconnected"
	ICEConnectionStateFailed       ICEConnectionState = "failed"
	ICEConnectionStateClosed       ICEConnectionState = "closed"
)

// ICEServer holds STUN/TURN server configuration.
type ICEServer struct {
	URL        string
	Username   string
	Credential string
}
