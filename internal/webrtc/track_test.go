package webrtc

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/logging"
	"github.com/pion/rtp"
)

// scriptedReader replays packets, then returns io.EOF.
type scriptedReader struct {
	packets []*rtp.Packet
}

func (r *scriptedReader) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	if len(r.packets) == 0 {
		return nil, nil, io.EOF
	}
	pkt := r.packets[0]
	r.packets = r.packets[1:]
	return pkt, nil, nil
}

func packet(seq uint16, ts uint32, marker bool, payload []byte) *rtp.Packet {
	return &rtp.Packet{
		Header:  rtp.Header{SequenceNumber: seq, Timestamp: ts, Marker: marker},
		Payload: payload,
	}
}

func newTestTrack(packets ...*rtp.Packet) *RemoteTrack {
	log := logging.NewDefaultLoggerFactory().NewLogger("test")
	return newRemoteTrack("video0", &scriptedReader{packets: packets}, log, 1920, 1080, 8)
}

func TestRemoteTrack_NoSourceBeforeKeyframe(t *testing.T) {
	tr := newTestTrack()

	// P slice (type 1) only.
	tr.handlePacket(packet(1, 3000, true, []byte{0x41, 0x9a}))

	if tr.FrameSource() != nil {
		t.Fatal("expected no frame source before a keyframe")
	}
}

func TestRemoteTrack_PublishesOnKeyframe(t *testing.T) {
	tr := newTestTrack()

	sps := []byte{0x67, 0x42}
	pps := []byte{0x68, 0xce}
	stap := []byte{0x18, 0x00, 0x02}
	stap = append(stap, sps...)
	stap = append(stap, 0x00, 0x02)
	stap = append(stap, pps...)

	tr.handlePacket(packet(1, 3000, false, stap))
	tr.handlePacket(packet(2, 3000, true, []byte{0x65, 0x88}))

	src := tr.FrameSource()
	if src == nil {
		t.Fatal("expected frame source after keyframe")
	}
	if w, h := src.Dimensions(); w != 1920 || h != 1080 {
		t.Errorf("expected 1920x1080 hint, got %dx%d", w, h)
	}

	frame := <-src.Frames()
	if !frame.Keyframe {
		t.Error("expected keyframe flag")
	}
	want := bytes.Join([][]byte{nil, sps, pps, {0x65, 0x88}}, startCode)
	if !bytes.Equal(frame.Data, want) {
		t.Errorf("expected %x, got %x", want, frame.Data)
	}
}

func TestRemoteTrack_FlushesOnTimestampChange(t *testing.T) {
	tr := newTestTrack()

	// Keyframe without a marker bit, followed by the next frame.
	tr.handlePacket(packet(1, 3000, false, []byte{0x65, 0x01}))
	tr.handlePacket(packet(2, 6000, true, []byte{0x41, 0x02}))

	src := tr.FrameSource()
	if src == nil {
		t.Fatal("expected frame source")
	}
	first, second := <-src.Frames(), <-src.Frames()
	if first.Timestamp != 3000 || !first.Keyframe {
		t.Errorf("unexpected first frame %+v", first)
	}
	if second.Timestamp != 6000 || second.Keyframe {
		t.Errorf("unexpected second frame %+v", second)
	}
}

func TestRemoteTrack_RunClosesFramesAtEOF(t *testing.T) {
	tr := newTestTrack(
		packet(1, 3000, true, []byte{0x65, 0x01}),
		packet(2, 6000, true, []byte{0x41, 0x02}),
	)

	done := make(chan struct{})
	go func() {
		tr.run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return at EOF")
	}

	var n int
	for range tr.FrameSource().Frames() {
		n++
	}
	if n != 2 {
		t.Errorf("expected 2 frames, got %d", n)
	}
}

func TestRemoteTrack_DropsWhenConsumerBehind(t *testing.T) {
	tr := newTestTrack()
	for i := 0; i < 10; i++ {
		tr.handlePacket(packet(uint16(i), uint32(i*3000), true, []byte{0x65, byte(i)}))
	}

	src := tr.FrameSource().(*H264Source)
	if got := src.Dropped(); got != 2 {
		t.Errorf("expected 2 dropped frames with a buffer of 8, got %d", got)
	}
}
