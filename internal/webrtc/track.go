package webrtc

import (
	"sync"
	"sync/atomic"

	"rtcview/internal/domain"

	"github.com/pion/interceptor"
	"github.com/pion/logging"
	"github.com/pion/rtp"
)

var startCode = []byte{0x00, 0x00, 0x00, 0x01}

const (
	naluTypeIDR = 5
	naluTypeSPS = 7
)

// packetReader is the part of *webrtc.TrackRemote the track reader needs.
type packetReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// H264Source is the frame source of a RemoteTrack. It only becomes visible
// once the first keyframe has been assembled.
type H264Source struct {
	frames        chan domain.Frame
	width, height int
	dropped       atomic.Uint64
}

// Frames returns the access units in arrival order. It is closed when the track ends.
func (s *H264Source) Frames() <-chan domain.Frame { return s.frames }

// Dimensions returns the configured target size hint.
func (s *H264Source) Dimensions() (int, int) { return s.width, s.height }

// Dropped returns how many frames were discarded because the consumer fell behind.
func (s *H264Source) Dropped() uint64 { return s.dropped.Load() }

// RemoteTrack reads H264 RTP from a received track and assembles access
// units. It implements domain.Track.
type RemoteTrack struct {
	id     string
	reader packetReader
	log    logging.LeveledLogger

	depack    *H264Depacketizer
	au        []byte
	auTS      uint32
	auKey     bool
	pending   *H264Source
	published atomic.Pointer[H264Source]

	stopOnce sync.Once
	stop     chan struct{}
}

func newRemoteTrack(id string, reader packetReader, log logging.LeveledLogger, width, height, buffer int) *RemoteTrack {
	return &RemoteTrack{
		id:     id,
		reader: reader,
		log:    log,
		depack: NewH264Depacketizer(),
		pending: &H264Source{
			frames: make(chan domain.Frame, buffer),
			width:  width,
			height: height,
		},
		stop: make(chan struct{}),
	}
}

// ID returns the track identifier.
func (t *RemoteTrack) ID() string { return t.id }

// FrameSource returns nil until the first keyframe has been received.
func (t *RemoteTrack) FrameSource() domain.FrameSource {
	src := t.published.Load()
	if src == nil {
		return nil
	}
	return src
}

// Release stops frame delivery. The read goroutine exits on its next packet.
func (t *RemoteTrack) Release() {
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *RemoteTrack) run() {
	defer close(t.pending.frames)

	for {
		select {
		case <-t.stop:
			return
		default:
		}

		pkt, _, err := t.reader.ReadRTP()
		if err != nil {
			t.log.Infof("track %s ended: %v", t.id, err)
			return
		}
		t.handlePacket(pkt)
	}
}

func (t *RemoteTrack) handlePacket(pkt *rtp.Packet) {
	if len(t.au) > 0 && pkt.Timestamp != t.auTS {
		// Marker bit lost; the previous access unit is complete.
		t.flush()
	}
	t.auTS = pkt.Timestamp

	for _, nalu := range t.depack.Depacketize(pkt.SequenceNumber, pkt.Payload) {
		if len(nalu) == 0 {
			continue
		}
		switch nalu[0] & 0x1f {
		case naluTypeIDR, naluTypeSPS:
			t.auKey = true
		}
		t.au = append(t.au, startCode...)
		t.au = append(t.au, nalu...)
	}

	if pkt.Marker && len(t.au) > 0 {
		t.flush()
	}
}

func (t *RemoteTrack) flush() {
	frame := domain.Frame{Data: t.au, Timestamp: t.auTS, Keyframe: t.auKey}
	t.au = nil
	t.auKey = false

	src := t.published.Load()
	if src == nil {
		if !frame.Keyframe {
			return
		}
		src = t.pending
		t.published.Store(src)
		t.log.Infof("track %s: first keyframe, frame source available", t.id)
	}

	select {
	case src.frames <- frame:
	default:
		if n := src.dropped.Add(1); n%100 == 1 {
			t.log.Warnf("track %s: consumer behind, %d frames dropped", t.id, n)
		}
	}
}
