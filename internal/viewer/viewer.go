// Package viewer drives one receive-only WebRTC session: it opens the
// signaling channel, sends the offer, applies the answer and ICE candidates,
// and hands the received track's frame source to the display.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"rtcview/internal/domain"

	"github.com/pion/logging"
)

// Options configures a Viewer.
type Options struct {
	URL            string
	ConnectTimeout time.Duration
	RetryInterval  time.Duration
	MaxAttempts    int
	TickInterval   time.Duration
	// Width and Height are the frame size hint reported until a source is attached.
	Width, Height int
	// EventBuffer is the capacity of the inbound event queue.
	EventBuffer   int
	LoggerFactory logging.LoggerFactory
}

func (o *Options) setDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 100 * time.Millisecond
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 100
	}
	if o.TickInterval <= 0 {
		o.TickInterval = 16 * time.Millisecond
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 256
	}
	if o.LoggerFactory == nil {
		o.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
}

// Viewer owns a Session and mutates it only from Tick. Channel and peer
// callbacks enqueue events; Tick drains them in arrival order.
type Viewer struct {
	opts    Options
	channel domain.Channel
	peer    domain.Peer
	display domain.Display
	log     logging.LeveledLogger

	session *Session
	acq     *acquisition

	events   chan event
	detached atomic.Bool
	stopped  chan struct{}

	connectF      *domain.Future[struct{}]
	connectCancel context.CancelFunc
	offerF        *domain.Future[domain.SessionDescription]
	localF        *domain.Future[struct{}]
	remoteF       *domain.Future[struct{}]
	remoteDesc    domain.SessionDescription

	signaling     SignalingState
	connState     domain.ConnectionState
	iceState      domain.ICEConnectionState
	width, height int

	errs   chan error
	status atomic.Pointer[Status]
}

// New wires a Viewer to its collaborators and registers the callbacks.
// Nothing happens until Start or Run is called.
func New(channel domain.Channel, peer domain.Peer, display domain.Display, opts Options) *Viewer {
	opts.setDefaults()

	v := &Viewer{
		opts:    opts,
		channel: channel,
		peer:    peer,
		display: display,
		log:     opts.LoggerFactory.NewLogger("viewer"),
		session: newSession(),
		events:  make(chan event, opts.EventBuffer),
		stopped: make(chan struct{}),
		errs:    make(chan error, 32),
		width:   opts.Width,
		height:  opts.Height,
	}

	channel.OnMessage(func(text string) { v.enqueue(messageEvent{text: text}) })
	channel.OnClose(func(err error) { v.enqueue(channelClosedEvent{err: err}) })
	peer.OnLocalICECandidate(func(c *domain.ICECandidate) { v.enqueue(localCandidateEvent{candidate: c}) })
	peer.OnTrack(func(t domain.Track) { v.enqueue(trackEvent{track: t}) })
	peer.OnConnectionStateChange(func(s domain.ConnectionState) { v.enqueue(connStateEvent{state: s}) })
	peer.OnICEConnectionStateChange(func(s domain.ICEConnectionState) { v.enqueue(iceStateEvent{state: s}) })

	v.publishStatus()
	return v
}

// Errors returns the stream of reported errors. Reports are dropped when
// nobody reads and the buffer is full.
func (v *Viewer) Errors() <-chan error { return v.errs }

// Status returns the latest published snapshot. It is safe to call from any goroutine.
func (v *Viewer) Status() Status { return *v.status.Load() }

// Start begins opening the signaling channel. It must be called from the
// goroutine that calls Tick.
func (v *Viewer) Start(ctx context.Context) error {
	if v.session.State != StateIdle {
		return fmt.Errorf("start: session is %s", v.session.State)
	}

	v.setState(StateChannelConnecting)
	v.signaling = SignalingConnecting
	v.log.Infof("session %s: connecting to %s", v.session.ID, v.opts.URL)

	cctx, cancel := context.WithCancel(ctx)
	v.connectCancel = cancel
	v.connectF = domain.Go(func() (struct{}, error) {
		return struct{}{}, v.channel.Connect(cctx, v.opts.URL, v.opts.ConnectTimeout)
	})
	v.publishStatus()
	return nil
}

// Run starts the session and ticks it until ctx is done or the session
// fails. It returns nil after a teardown and the failure cause otherwise.
func (v *Viewer) Run(ctx context.Context) error {
	if err := v.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(v.tickPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			v.Teardown()
			return nil
		case now := <-ticker.C:
			v.Tick(now)
			switch v.session.State {
			case StateFailed:
				return v.session.Err
			case StateClosed:
				return nil
			}
		}
	}
}

// tickPeriod is TickInterval, shortened to RetryInterval so that a slow
// tick cannot stretch the acquisition budget.
func (v *Viewer) tickPeriod() time.Duration {
	return min(v.opts.TickInterval, v.opts.RetryInterval)
}

// Tick advances the session by one step: queued events first, then
// resolved futures, then the acquisition loop.
func (v *Viewer) Tick(now time.Time) {
	v.drainEvents(now)
	v.pollFutures()
	v.stepAcquisition(now)
	v.publishStatus()
}

// Teardown stops acquisition, detaches inbound handling, closes the channel
// and releases the track. It is idempotent.
func (v *Viewer) Teardown() {
	v.release()
	if v.session.State != StateClosed {
		v.setState(StateClosed)
	}
	v.publishStatus()
}

func (v *Viewer) enqueue(ev event) {
	if v.detached.Load() {
		return
	}
	select {
	case v.events <- ev:
	case <-v.stopped:
	}
}

func (v *Viewer) drainEvents(now time.Time) {
	// events enqueued while draining wait for the next tick
	for n := len(v.events); n > 0; n-- {
		ev := <-v.events
		if v.session.released {
			continue
		}
		v.handle(ev, now)
	}
}

func (v *Viewer) handle(ev event, now time.Time) {
	switch ev := ev.(type) {
	case messageEvent:
		v.handleMessage(ev.text)
	case channelClosedEvent:
		v.signaling = SignalingClosed
		v.transportError(ev.err)
	case localCandidateEvent:
		v.handleLocalCandidate(ev.candidate)
	case trackEvent:
		v.handleTrack(ev.track, now)
	case connStateEvent:
		v.connState = ev.state
		v.log.Debugf("connection state: %s", ev.state)
		if ev.state == domain.ConnectionStateFailed {
			v.fail(domain.ErrPeerFailed)
		}
	case iceStateEvent:
		v.iceState = ev.state
		v.log.Debugf("ICE connection state: %s", ev.state)
	}
}

func (v *Viewer) handleMessage(text string) {
	env, err := domain.DecodeEnvelope(text)
	switch {
	case errors.Is(err, domain.ErrUnknownTag):
		v.log.Warnf("ignoring message: %v", err)
		return
	case err != nil:
		v.report(err)
		return
	}

	switch env.Tag {
	case domain.TagSDP:
		v.handleRemoteDescription(*env.Description)
	case domain.TagICE:
		v.handleRemoteCandidate(*env.Candidate)
	}
}

func (v *Viewer) handleRemoteDescription(desc domain.SessionDescription) {
	// a provisional answer may be followed by the final one
	followsProvisional := v.session.remoteApplied() &&
		v.session.Remote.Kind == domain.SDPKindProvisionalAnswer &&
		(desc.Kind == domain.SDPKindAnswer || desc.Kind == domain.SDPKindProvisionalAnswer)

	if v.remoteF != nil || (v.session.remoteApplied() && !followsProvisional) {
		v.report(&domain.NegotiationError{
			Op:  domain.OpRenegotiate,
			Err: fmt.Errorf("remote %s after remote description was set", desc.Kind),
		})
		return
	}

	v.log.Infof("received remote %s", desc.Kind)
	v.remoteDesc = desc
	v.remoteF = v.peer.SetRemoteDescription(desc)
}

func (v *Viewer) handleRemoteCandidate(c domain.ICECandidate) {
	if !v.session.remoteApplied() {
		v.log.Debugf("queueing remote candidate until remote description is set")
		v.session.queueRemoteCandidate(c)
		return
	}
	v.applyCandidate(c)
}

func (v *Viewer) applyCandidate(c domain.ICECandidate) {
	if !v.session.remoteApplied() {
		v.fail(&domain.CandidateError{Candidate: c, Err: domain.ErrCandidateBeforeRemote})
		return
	}
	if err := v.peer.AddICECandidate(c); err != nil {
		var candErr *domain.CandidateError
		if !errors.As(err, &candErr) {
			err = &domain.CandidateError{Candidate: c, Err: err}
		}
		v.report(err)
	}
}

func (v *Viewer) handleLocalCandidate(c *domain.ICECandidate) {
	if c == nil {
		v.log.Debugf("ICE gathering complete")
		return
	}
	if !v.session.offerSent {
		v.session.queueLocalCandidate(*c)
		return
	}
	v.sendCandidate(*c)
}

func (v *Viewer) sendCandidate(c domain.ICECandidate) {
	text, err := domain.EncodeCandidate(c)
	if err != nil {
		v.report(err)
		return
	}
	if err := v.channel.Send(text); err != nil {
		v.transportError(err)
	}
}

func (v *Viewer) handleTrack(track domain.Track, now time.Time) {
	if v.session.Track != nil {
		v.report(fmt.Errorf("ignoring extra track %s, already receiving %s", track.ID(), v.session.Track.ID()))
		track.Release()
		return
	}

	v.log.Infof("received track %s, waiting for frames", track.ID())
	v.session.Track = track
	v.acq = newAcquisition(track, now, v.opts.RetryInterval, v.opts.MaxAttempts)
}

// pollFutures observes resolved engine and channel operations. Each step of
// the offer chain starts the next one, so an already resolved future is
// picked up in the same tick.
func (v *Viewer) pollFutures() {
	if f := v.connectF; f != nil && f.Ready() {
		v.connectF = nil
		if _, err := f.Result(); err != nil {
			v.fail(err)
			return
		}
		v.signaling = SignalingOpen
		v.log.Infof("signaling channel open, creating offer")
		v.setState(StateOffering)
		v.session.offerCreated = true
		v.offerF = v.peer.CreateOffer()
	}

	if f := v.offerF; f != nil && f.Ready() {
		v.offerF = nil
		desc, err := f.Result()
		if err != nil {
			v.fail(&domain.NegotiationError{Op: domain.OpCreateOffer, Err: err})
			return
		}
		v.session.Local = &desc
		v.localF = v.peer.SetLocalDescription(desc)
	}

	if f := v.localF; f != nil && f.Ready() {
		v.localF = nil
		if _, err := f.Result(); err != nil {
			v.fail(&domain.NegotiationError{Op: domain.OpSetLocal, Err: err})
			return
		}
		if !v.sendOffer() {
			return
		}
	}

	if f := v.remoteF; f != nil && f.Ready() {
		v.remoteF = nil
		if _, err := f.Result(); err != nil {
			v.fail(&domain.NegotiationError{Op: domain.OpSetRemote, Err: err})
			return
		}
		desc := v.remoteDesc
		v.session.Remote = &desc

		for _, c := range v.session.takePending() {
			v.applyCandidate(c)
			if v.session.released {
				return
			}
		}

		if desc.Kind == domain.SDPKindAnswer && v.session.State == StateAwaitingAnswer {
			v.log.Infof("remote answer applied, session connected")
			v.setState(StateConnected)
		}
	}
}

func (v *Viewer) sendOffer() bool {
	text, err := domain.EncodeDescription(*v.session.Local)
	if err != nil {
		v.fail(err)
		return false
	}
	if err := v.channel.Send(text); err != nil {
		v.fail(err)
		return false
	}

	v.session.offerSent = true
	v.setState(StateAwaitingAnswer)
	v.log.Infof("offer sent, awaiting answer")

	for _, c := range v.session.takeOutbound() {
		v.sendCandidate(c)
		if v.session.released {
			return false
		}
	}
	return true
}

func (v *Viewer) stepAcquisition(now time.Time) {
	if v.acq == nil || v.session.delivered {
		return
	}

	src, err := v.acq.step(now)
	if err != nil {
		v.report(err)
		return
	}
	if src == nil {
		src = v.acq.detect()
	}
	if src != nil {
		v.deliver(src)
	}
}

func (v *Viewer) deliver(src domain.FrameSource) {
	if v.session.delivered {
		return
	}
	v.session.delivered = true
	v.acq.stop()

	w, h := src.Dimensions()
	v.width, v.height = w, h
	v.log.Infof("frame source ready (%dx%d), attaching display", w, h)
	v.display.SetFrameSource(src)
}

// transportError aborts the session before it is connected. Afterwards
// media no longer depends on the channel, so the error is only reported.
func (v *Viewer) transportError(err error) {
	if v.session.State < StateConnected {
		v.fail(err)
		return
	}
	v.report(err)
}

func (v *Viewer) fail(err error) {
	if v.session.State == StateFailed || v.session.State == StateClosed {
		v.report(err)
		return
	}
	v.session.Err = err
	v.report(err)
	v.release()
	v.setState(StateFailed)
}

func (v *Viewer) release() {
	s := v.session
	if s.released {
		return
	}
	s.released = true

	if v.acq != nil {
		v.acq.stop()
	}
	v.detached.Store(true)
	close(v.stopped)
	if v.connectCancel != nil {
		v.connectCancel()
	}

	v.connectF, v.offerF, v.localF, v.remoteF = nil, nil, nil, nil
	s.pending = nil
	s.outbound = nil

	v.signaling = SignalingClosed
	if err := v.channel.Close(); err != nil {
		v.log.Warnf("close signaling channel: %v", err)
	}
	if s.Track != nil {
		s.Track.Release()
		s.Track = nil
	}
}

func (v *Viewer) report(err error) {
	v.log.Errorf("%v", err)
	select {
	case v.errs <- err:
	default:
		v.log.Debugf("error queue full, dropping report")
	}
}

func (v *Viewer) setState(s State) {
	if v.session.State == s {
		return
	}
	v.log.Debugf("session %s: %s -> %s", v.session.ID, v.session.State, s)
	v.session.State = s
}

func (v *Viewer) publishStatus() {
	s := v.session
	v.status.Store(&Status{
		SessionID:         s.ID,
		State:             s.State,
		Signaling:         v.signaling,
		Connection:        v.connState,
		ICE:               v.iceState,
		PendingCandidates: len(s.pending),
		Receiving:         s.delivered && !s.released,
		Width:             v.width,
		Height:            v.height,
		Err:               s.Err,
	})
}
