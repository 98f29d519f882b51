// Package display holds the consumers that frame sources are handed to.
package display

import (
	"io"
	"sync"
	"sync/atomic"

	"rtcview/internal/domain"

	"github.com/pion/logging"
)

// Writer copies an H264 Annex-B stream to an io.Writer. The raw stream can be
// piped to ffplay or ffmpeg. It implements domain.Display.
type Writer struct {
	out io.Writer
	log logging.LeveledLogger

	attached  atomic.Bool
	receiving atomic.Bool
	frames    atomic.Uint64

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewWriter creates a display that writes to out.
func NewWriter(out io.Writer, lf logging.LoggerFactory) *Writer {
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	return &Writer{
		out:  out,
		log:  lf.NewLogger("display"),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// SetFrameSource starts copying src. Only the first source is accepted.
func (w *Writer) SetFrameSource(src domain.FrameSource) {
	if src == nil {
		return
	}
	if !w.attached.CompareAndSwap(false, true) {
		w.log.Warnf("frame source already attached, ignoring")
		return
	}

	width, height := src.Dimensions()
	w.log.Infof("frame source attached (target %dx%d)", width, height)
	w.receiving.Store(true)

	go w.copy(src)
}

func (w *Writer) copy(src domain.FrameSource) {
	defer close(w.done)
	defer w.receiving.Store(false)

	frames := src.Frames()
	for {
		select {
		case <-w.stop:
			return
		case frame, ok := <-frames:
			if !ok {
				w.log.Infof("frame source ended after %d frames", w.frames.Load())
				return
			}
			if _, err := w.out.Write(frame.Data); err != nil {
				w.log.Errorf("write frame: %v", err)
				return
			}
			w.frames.Add(1)
		}
	}
}

// Receiving reports whether frames are currently being copied.
func (w *Writer) Receiving() bool { return w.receiving.Load() }

// Frames returns how many frames were written.
func (w *Writer) Frames() uint64 { return w.frames.Load() }

// Close stops copying and waits for the copy goroutine to exit.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		close(w.stop)
		if w.attached.Load() {
			<-w.done
		}
	})
}
