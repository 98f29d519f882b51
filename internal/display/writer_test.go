package display

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"rtcview/internal/domain"
)

type chanSource struct {
	frames chan domain.Frame
}

func (s *chanSource) Frames() <-chan domain.Frame { return s.frames }
func (s *chanSource) Dimensions() (int, int)      { return 640, 480 }

// syncBuffer is a bytes.Buffer safe for the copy goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWriter_CopiesFramesInOrder(t *testing.T) {
	out := &syncBuffer{}
	w := NewWriter(out, nil)

	src := &chanSource{frames: make(chan domain.Frame, 3)}
	src.frames <- domain.Frame{Data: []byte("a")}
	src.frames <- domain.Frame{Data: []byte("b")}
	src.frames <- domain.Frame{Data: []byte("c")}
	close(src.frames)

	w.SetFrameSource(src)

	deadline := time.After(2 * time.Second)
	for w.Frames() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected 3 frames, got %d", w.Frames())
		case <-time.After(5 * time.Millisecond):
		}
	}
	w.Close()

	if got := out.String(); got != "abc" {
		t.Errorf("expected %q, got %q", "abc", got)
	}
}

func TestWriter_AcceptsOnlyFirstSource(t *testing.T) {
	out := &syncBuffer{}
	w := NewWriter(out, nil)
	defer w.Close()

	first := &chanSource{frames: make(chan domain.Frame, 1)}
	second := &chanSource{frames: make(chan domain.Frame, 1)}
	second.frames <- domain.Frame{Data: []byte("second")}

	w.SetFrameSource(first)
	w.SetFrameSource(second)

	if !w.Receiving() {
		t.Error("expected writer to be receiving")
	}
	time.Sleep(20 * time.Millisecond)
	if out.String() != "" {
		t.Errorf("expected nothing from the second source, got %q", out.String())
	}
}

func TestWriter_CloseWithoutSource(t *testing.T) {
	w := NewWriter(&syncBuffer{}, nil)
	w.Close()
	w.Close()
	if w.Receiving() {
		t.Error("expected not receiving")
	}
}
