package webrtc

import (
	"fmt"
	"math"
	"strings"

	"rtcview/internal/domain"

	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/interceptor/pkg/nack"
	"github.com/pion/logging"
	pion "github.com/pion/webrtc/v4"
)

// Options configures a Peer.
type Options struct {
	ICEServers []domain.ICEServer

	// Width and Height are the target frame size hint passed to frame sources.
	Width, Height int

	// FrameBuffer is the number of assembled frames buffered per track.
	FrameBuffer int

	// LoggerFactory for logging, also handed to pion. If nil, uses
	// logging.NewDefaultLoggerFactory.
	LoggerFactory logging.LoggerFactory
}

// Peer wraps a receive-only Pion PeerConnection. It implements domain.Peer.
type Peer struct {
	pc   *pion.PeerConnection
	log  logging.LeveledLogger
	opts Options
}

var videoFeedback = []pion.RTCPFeedback{
	{Type: "goog-remb"},
	{Type: "nack"},
	{Type: "nack", Parameter: "pli"},
}

// NewPeer creates a PeerConnection with H264-only codec registration and a
// single recvonly video transceiver.
func NewPeer(opts Options) (*Peer, error) {
	if opts.LoggerFactory == nil {
		opts.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	if opts.FrameBuffer <= 0 {
		opts.FrameBuffer = 64
	}

	m := &pion.MediaEngine{}
	for _, codec := range []pion.RTPCodecParameters{
		{
			RTPCodecCapability: pion.RTPCodecCapability{
				MimeType:     pion.MimeTypeH264,
				ClockRate:    90000,
				SDPFmtpLine:  "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f",
				RTCPFeedback: videoFeedback,
			},
			PayloadType: 102,
		},
		{
			RTPCodecCapability: pion.RTPCodecCapability{
				MimeType:     pion.MimeTypeH264,
				ClockRate:    90000,
				SDPFmtpLine:  "level-asymmetry-allowed=1;packetization-mode=0;profile-level-id=64001f",
				RTCPFeedback: videoFeedback,
			},
			PayloadType: 121,
		},
	} {
		if err := m.RegisterCodec(codec, pion.RTPCodecTypeVideo); err != nil {
			return nil, fmt.Errorf("register H264 pt=%d: %w", codec.PayloadType, err)
		}
	}

	i := &interceptor.Registry{}
	generatorFactory, err := nack.NewGeneratorInterceptor()
	if err != nil {
		return nil, fmt.Errorf("create nack generator: %w", err)
	}
	i.Add(generatorFactory)

	pliFactory, err := intervalpli.NewReceiverInterceptor()
	if err != nil {
		return nil, fmt.Errorf("create pli interceptor: %w", err)
	}
	i.Add(pliFactory)

	s := pion.SettingEngine{LoggerFactory: opts.LoggerFactory}

	api := pion.NewAPI(
		pion.WithMediaEngine(m),
		pion.WithInterceptorRegistry(i),
		pion.WithSettingEngine(s),
	)

	var servers []pion.ICEServer
	for _, srv := range opts.ICEServers {
		servers = append(servers, pion.ICEServer{
			URLs:       []string{srv.URL},
			Username:   srv.Username,
			Credential: srv.Credential,
		})
	}

	pc, err := api.NewPeerConnection(pion.Configuration{
		ICEServers:   servers,
		BundlePolicy: pion.BundlePolicyMaxBundle,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	_, err = pc.AddTransceiverFromKind(pion.RTPCodecTypeVideo, pion.RTPTransceiverInit{
		Direction: pion.RTPTransceiverDirectionRecvonly,
	})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("add video transceiver: %w", err)
	}

	return &Peer{
		pc:   pc,
		log:  opts.LoggerFactory.NewLogger("webrtc"),
		opts: opts,
	}, nil
}

// CreateOffer creates an SDP offer.
func (p *Peer) CreateOffer() *domain.Future[domain.SessionDescription] {
	return domain.Go(func() (domain.SessionDescription, error) {
		offer, err := p.pc.CreateOffer(nil)
		if err != nil {
			return domain.SessionDescription{}, fmt.Errorf("create offer: %w", err)
		}
		return fromPion(offer)
	})
}

// SetLocalDescription applies the local SDP and starts ICE gathering.
func (p *Peer) SetLocalDescription(desc domain.SessionDescription) *domain.Future[struct{}] {
	return domain.Go(func() (struct{}, error) {
		if err := p.pc.SetLocalDescription(toPion(desc)); err != nil {
			return struct{}{}, fmt.Errorf("set local description: %w", err)
		}
		p.log.Infof("local SDP %s set", desc.Kind)
		return struct{}{}, nil
	})
}

// SetRemoteDescription applies the remote SDP. Bodies that do not parse as
// SDP are rejected before reaching the engine.
func (p *Peer) SetRemoteDescription(desc domain.SessionDescription) *domain.Future[struct{}] {
	return domain.Go(func() (struct{}, error) {
		if desc.Kind != domain.SDPKindRollback {
			codecs, err := VideoCodecs(desc.Body)
			if err != nil {
				return struct{}{}, fmt.Errorf("set remote description: %w", err)
			}
			p.log.Infof("remote %s video codecs: %s", desc.Kind, strings.Join(codecs, ", "))
			if !HasH264(codecs) {
				p.log.Warnf("remote %s does not offer H264", desc.Kind)
			}
		}

		if err := p.pc.SetRemoteDescription(toPion(desc)); err != nil {
			return struct{}{}, fmt.Errorf("set remote description: %w", err)
		}
		p.log.Infof("remote SDP %s set", desc.Kind)
		return struct{}{}, nil
	})
}

// AddICECandidate adds a remote ICE candidate. A media line index outside
// the uint16 range is rejected with a *domain.CandidateError.
func (p *Peer) AddICECandidate(candidate domain.ICECandidate) error {
	if candidate.MediaLineIndex < 0 || candidate.MediaLineIndex > math.MaxUint16 {
		return &domain.CandidateError{
			Candidate: candidate,
			Err:       fmt.Errorf("sdpMLineIndex %d out of range", candidate.MediaLineIndex),
		}
	}
	sdpMLineIndex := uint16(candidate.MediaLineIndex)
	init := pion.ICECandidateInit{
		Candidate:     candidate.Candidate,
		SDPMid:        &candidate.MediaID,
		SDPMLineIndex: &sdpMLineIndex,
	}

	if err := p.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("add ice candidate: %w", err)
	}

	p.log.Debugf("added remote ICE candidate: %s", candidate.Candidate)
	return nil
}

// OnLocalICECandidate registers the callback for locally discovered ICE
// candidates. Loopback candidates are filtered; nil marks the end of gathering.
func (p *Peer) OnLocalICECandidate(fn func(*domain.ICECandidate)) {
	p.pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			p.log.Infof("ICE gathering complete")
			fn(nil)
			return
		}

		init := c.ToJSON()
		if isLoopback(init.Candidate) {
			p.log.Debugf("filtering loopback ICE candidate")
			return
		}

		candidate := &domain.ICECandidate{Candidate: init.Candidate}
		if init.SDPMid != nil {
			candidate.MediaID = *init.SDPMid
		}
		if init.SDPMLineIndex != nil {
			candidate.MediaLineIndex = int(*init.SDPMLineIndex)
		}

		p.log.Debugf("local ICE candidate: %s", init.Candidate)
		fn(candidate)
	})
}

// OnTrack registers the callback for received video tracks. Each video track
// is read on its own goroutine; other kinds are drained.
func (p *Peer) OnTrack(fn func(domain.Track)) {
	p.pc.OnTrack(func(track *pion.TrackRemote, receiver *pion.RTPReceiver) {
		codec := track.Codec()
		p.log.Infof("got track: kind=%s codec=%s pt=%d", track.Kind(), codec.MimeType, codec.PayloadType)

		if track.Kind() != pion.RTPCodecTypeVideo {
			go func() {
				buf := make([]byte, 1500)
				for {
					if _, _, err := track.Read(buf); err != nil {
						return
					}
				}
			}()
			return
		}

		rt := newRemoteTrack(track.ID(), track, p.log, p.opts.Width, p.opts.Height, p.opts.FrameBuffer)
		go rt.run()
		fn(rt)
	})
}

// OnConnectionStateChange registers the peer connection state callback.
func (p *Peer) OnConnectionStateChange(fn func(domain.ConnectionState)) {
	p.pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		p.log.Infof("peer connection state: %s", state.String())
		fn(domain.ConnectionState(state.String()))
	})
}

// OnICEConnectionStateChange registers the ICE connection state callback.
func (p *Peer) OnICEConnectionStateChange(fn func(domain.ICEConnectionState)) {
	p.pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		p.log.Infof("ICE connection state: %s", state.String())
		fn(domain.ICEConnectionState(state.String()))
	})
}

// Close shuts down the PeerConnection.
func (p *Peer) Close() error {
	return p.pc.Close()
}

func toPion(desc domain.SessionDescription) pion.SessionDescription {
	var typ pion.SDPType
	switch desc.Kind {
	case domain.SDPKindOffer:
		typ = pion.SDPTypeOffer
	case domain.SDPKindAnswer:
		typ = pion.SDPTypeAnswer
	case domain.SDPKindProvisionalAnswer:
		typ = pion.SDPTypePranswer
	case domain.SDPKindRollback:
		typ = pion.SDPTypeRollback
	}
	return pion.SessionDescription{Type: typ, SDP: desc.Body}
}

func fromPion(desc pion.SessionDescription) (domain.SessionDescription, error) {
	kind, err := domain.ParseSDPKind(desc.Type.String())
	if err != nil {
		return domain.SessionDescription{}, err
	}
	return domain.SessionDescription{Kind: kind, Body: desc.SDP}, nil
}

func isLoopback(candidate string) bool {
	return strings.Contains(candidate, "127.0.0.1") || strings.Contains(candidate, "::1 ")
}
