package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/callo451/deskwise-remote/internal/adapters/rtc"
	"github.com/callo451/deskwise-remote/internal/core"
	"github.com/callo451/deskwise-remote/internal/domain"
)

type ControllerState string

const (
	StateIdle     ControllerState = "idle"
	StateChecking ControllerState = "checking"
	StateStarting ControllerState = "starting"
	StateReady    ControllerState = "ready"
	StateEnding   ControllerState = "ending"
)

// endTimeout bounds the fire-and-forget end call; local teardown never
// waits on it.
const endTimeout = 10 * time.Second

var ErrSessionInProgress = errors.New("a session is already in progress")

type (
	LinkFactory      func(domain.RemoteSession) (core.MediaLink, error)
	TransportFactory func(domain.RemoteSession) core.SignalTransport
	// PumpFactory builds the loop that feeds inbound signals to the
	// controller. The production pump is the api.Poller.
	PumpFactory func(t core.SignalTransport, onSignal func(domain.SignalMessage), onFatal func(error)) SignalPump
)

// SignalPump delivers inbound signal messages until its context ends.
type SignalPump interface {
	Run(ctx context.Context)
}

// TrackSink receives the inbound media track, e.g. the viewport.
type TrackSink func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)

// SessionController owns the session lifecycle: acquire-or-replace,
// create, negotiate, and unconditional cleanup. At any moment it holds
// zero or one live session.
type SessionController struct {
	api          core.SessionAPI
	newLink      LinkFactory
	newTransport TransportFactory
	newPump      PumpFactory
	trackSink    TrackSink

	mu        sync.Mutex
	state     ControllerState
	sess      domain.RemoteSession
	link      core.MediaLink
	cancel    context.CancelFunc
	connState core.ConnState
	lastErr   string
	assetID   domain.AssetID

	onConnState func(core.ConnState)
}

func NewSessionController(api core.SessionAPI, newLink LinkFactory,
	newTransport TransportFactory, newPump PumpFactory, trackSink TrackSink) *SessionController {
	return &SessionController{
		api:          api,
		newLink:      newLink,
		newTransport: newTransport,
		newPump:      newPump,
		trackSink:    trackSink,
		state:        StateIdle,
		connState:    core.ConnNew,
	}
}

// OnConnState registers an observer for aggregate connection state.
func (c *SessionController) OnConnState(fn func(core.ConnState)) {
	c.mu.Lock()
	c.onConnState = fn
	c.mu.Unlock()
}

// Snapshot is a read-only view of controller state for the UI layer.
type Snapshot struct {
	State     ControllerState
	SessionID domain.SessionID
	AssetID   domain.AssetID
	ConnState core.ConnState
	Err       string
}

func (c *SessionController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:     c.state,
		SessionID: c.sess.ID,
		AssetID:   c.assetID,
		ConnState: c.connState,
		Err:       c.lastErr,
	}
}

// Link returns the live media link, or nil outside Ready.
func (c *SessionController) Link() core.MediaLink {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.link
}

// Open drives Idle → Checking → Starting → Ready for the asset. A stale
// active session is ended first, best-effort: the new create supersedes
// it server-side even if the end call fails.
func (c *SessionController) Open(ctx context.Context, assetID domain.AssetID) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrSessionInProgress
	}
	c.state = StateChecking
	c.assetID = assetID
	c.lastErr = ""
	c.mu.Unlock()

	stale, err := c.api.List(ctx, assetID, domain.StatusActive)
	if err != nil {
		return c.fail(fmt.Errorf("check existing sessions: %w", err))
	}
	for _, s := range stale {
		if err := c.api.End(ctx, s.ID, s.Token); err != nil {
			log.Warn().Err(err).Str("module", "app.controller").Str("sid", string(s.ID)).Msg("failed to end stale session")
		} else {
			log.Info().Str("module", "app.controller").Str("sid", string(s.ID)).Msg("ended stale session")
		}
	}

	c.setState(StateStarting)

	sess, err := c.api.Create(ctx, assetID)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return c.fail(fmt.Errorf("an active session still exists for this asset, retry: %w", err))
		}
		return c.fail(err)
	}

	link, err := c.newLink(sess)
	if err != nil {
		return c.fail(fmt.Errorf("peer connection: %w", err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	transport := c.newTransport(sess)

	link.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		payload := domain.CandidatePayload{
			Candidate:     ci.Candidate,
			SDPMid:        ci.SDPMid,
			SDPMLineIndex: ci.SDPMLineIndex,
		}
		if err := transport.Publish(runCtx, domain.SignalCandidate, payload); err != nil {
			log.Warn().Err(err).Str("module", "app.controller").Msg("publish local candidate")
		}
	})
	link.OnConnState(c.handleConnState)
	if c.trackSink != nil {
		link.OnTrack(func(tctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
			c.trackSink(tctx, track, receiver)
		})
	}

	if err := link.Start(runCtx); err != nil {
		cancel()
		link.Close()
		return c.fail(fmt.Errorf("start peer connection: %w", err))
	}

	offer, err := link.CreateAndSetOffer()
	if err != nil {
		cancel()
		link.Close()
		return c.fail(fmt.Errorf("create offer: %w", err))
	}
	if err := transport.Publish(ctx, domain.SignalOffer, domain.SDPPayload{SDP: offer.SDP}); err != nil {
		cancel()
		link.Close()
		return c.fail(err)
	}

	pump := c.newPump(transport, func(m domain.SignalMessage) { c.dispatch(link, m) }, c.onPollFatal)
	go pump.Run(runCtx)

	c.mu.Lock()
	c.sess = sess
	c.link = link
	c.cancel = cancel
	c.state = StateReady
	c.mu.Unlock()
	log.Info().Str("module", "app.controller").Str("sid", string(sess.ID)).Str("asset", string(assetID)).Msg("session ready")
	return nil
}

// Close tears the session down: stop the pump, close the channel and
// peer connection, then fire-and-forget the registry end — in that
// order, never waiting on the network. Safe to call in any state and
// more than once.
func (c *SessionController) Close() {
	c.mu.Lock()
	if c.state == StateIdle || c.state == StateEnding {
		c.mu.Unlock()
		return
	}
	c.state = StateEnding
	cancel := c.cancel
	link := c.link
	sess := c.sess
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if link != nil {
		link.Close()
	}
	if sess.ID != "" {
		go func() {
			ctx, done := context.WithTimeout(context.Background(), endTimeout)
			defer done()
			if err := c.api.End(ctx, sess.ID, sess.Token); err != nil {
				log.Warn().Err(err).Str("module", "app.controller").Str("sid", string(sess.ID)).Msg("end session call failed")
			}
		}()
	}

	c.reset()
	log.Info().Str("module", "app.controller").Str("sid", string(sess.ID)).Msg("session closed")
}

// Retry restarts the whole Checking → Starting sequence from scratch; a
// second check-and-end pass clears whatever stale state caused the
// failure. It never renegotiates in place.
func (c *SessionController) Retry(ctx context.Context) error {
	c.Close()
	c.mu.Lock()
	asset := c.assetID
	c.mu.Unlock()
	if asset == "" {
		return errors.New("no asset to retry")
	}
	return c.Open(ctx, asset)
}

func (c *SessionController) dispatch(link core.MediaLink, msg domain.SignalMessage) {
	switch msg.Type {
	case domain.SignalAnswer:
		var p domain.SDPPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			log.Error().Err(err).Str("module", "app.controller").Msg("bad answer payload")
			return
		}
		err := link.ApplyAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: p.SDP})
		if errors.Is(err, rtc.ErrUnexpectedAnswer) {
			return
		}
		if err != nil {
			log.Error().Err(err).Str("module", "app.controller").Msg("apply answer")
		}
	case domain.SignalCandidate:
		var p domain.CandidatePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			log.Error().Err(err).Str("module", "app.controller").Msg("bad candidate payload")
			return
		}
		ci := webrtc.ICECandidateInit{Candidate: p.Candidate, SDPMid: p.SDPMid, SDPMLineIndex: p.SDPMLineIndex}
		if err := link.AddICECandidate(ci); err != nil {
			log.Error().Err(err).Str("module", "app.controller").Msg("add remote candidate")
		}
	default:
		log.Warn().Str("module", "app.controller").Str("type", string(msg.Type)).Msg("unknown signal")
	}
}

func (c *SessionController) handleConnState(st core.ConnState) {
	c.mu.Lock()
	c.connState = st
	fn := c.onConnState
	ending := c.state == StateEnding || c.state == StateIdle
	c.mu.Unlock()
	if fn != nil {
		fn(st)
	}
	if ending {
		return
	}
	// disconnected gets the same manual Try Again path as failed: partial
	// renegotiation correctness is not guaranteed by the answer guard.
	if st == core.ConnFailed || st == core.ConnDisconnected {
		c.failAsync(fmt.Errorf("connection %s", st))
	}
}

func (c *SessionController) onPollFatal(err error) {
	if errors.Is(err, domain.ErrUnauthorized) {
		err = fmt.Errorf("session credentials rejected: %w", err)
	}
	c.failAsync(err)
}

// failAsync is for errors arriving outside the Open call path (poll
// loop, connection state callbacks). Cleanup is unconditional.
func (c *SessionController) failAsync(err error) {
	c.mu.Lock()
	if c.state == StateEnding || c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	link := c.link
	sess := c.sess
	c.state = StateEnding
	c.mu.Unlock()

	log.Error().Err(err).Str("module", "app.controller").Str("sid", string(sess.ID)).Msg("session failed")

	if cancel != nil {
		cancel()
	}
	if link != nil {
		link.Close()
	}
	if sess.ID != "" {
		go func() {
			ctx, done := context.WithTimeout(context.Background(), endTimeout)
			defer done()
			_ = c.api.End(ctx, sess.ID, sess.Token)
		}()
	}

	c.reset()
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
}

// fail handles errors on the Open path before the session is live.
func (c *SessionController) fail(err error) error {
	log.Error().Err(err).Str("module", "app.controller").Msg("session start failed")
	c.reset()
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
	return err
}

// reset clears all local session state so reopening starts a clean
// Checking pass instead of reusing stale identifiers.
func (c *SessionController) reset() {
	c.mu.Lock()
	c.sess = domain.RemoteSession{}
	c.link = nil
	c.cancel = nil
	c.connState = core.ConnNew
	c.lastErr = ""
	c.state = StateIdle
	c.mu.Unlock()
}

func (c *SessionController) setState(st ControllerState) {
	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
}
