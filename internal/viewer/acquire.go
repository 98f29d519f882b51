package viewer

import (
	"time"

	"rtcview/internal/domain"
)

// acquisition polls a track for its frame source at a fixed cadence with a
// bounded number of attempts. Attempt k falls due at started + k*interval.
// A tick that arrives late consumes every attempt that fell due since the
// previous one, so the budget is spent by started + (maxAttempts-1)*interval
// however coarse the ticks are.
type acquisition struct {
	track       domain.Track
	interval    time.Duration
	maxAttempts int

	started  time.Time
	attempts int
	finished bool
}

func newAcquisition(track domain.Track, now time.Time, interval time.Duration, maxAttempts int) *acquisition {
	return &acquisition{
		track:       track,
		interval:    interval,
		maxAttempts: maxAttempts,
		started:     now,
	}
}

// due returns how many attempts have fallen due by now.
func (a *acquisition) due(now time.Time) int {
	if now.Before(a.started) {
		return 0
	}
	n := int(now.Sub(a.started)/a.interval) + 1
	if n > a.maxAttempts {
		n = a.maxAttempts
	}
	return n
}

// step runs the attempts that are due at now, if any, with a single poll.
// It returns the frame source once found, or an
// *domain.AcquisitionTimeoutError when the last attempt fails.
func (a *acquisition) step(now time.Time) (domain.FrameSource, error) {
	if a.finished {
		return nil, nil
	}
	due := a.due(now)
	if due <= a.attempts {
		return nil, nil
	}

	a.attempts = due
	if src := a.track.FrameSource(); src != nil {
		a.finished = true
		return src, nil
	}

	if a.attempts >= a.maxAttempts {
		a.finished = true
		return nil, &domain.AcquisitionTimeoutError{
			TrackID:  a.track.ID(),
			Attempts: a.attempts,
			Elapsed:  now.Sub(a.started),
		}
	}
	return nil, nil
}

// detect is the per-tick check between attempts. It does not consume an attempt.
func (a *acquisition) detect() domain.FrameSource {
	if a.finished {
		return nil
	}
	return a.track.FrameSource()
}

func (a *acquisition) stop() {
	a.finished = true
}
