package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/callo451/deskwise-remote/internal/core"
	"github.com/callo451/deskwise-remote/internal/domain"
)

// InputChannelLabel names the ordered, reliable data channel carrying
// operator input and control events.
const InputChannelLabel = "input"

// ErrUnexpectedAnswer: an answer arrived while the local signaling state
// was not have-local-offer. It must be ignored, not applied, so a racing
// reconnect never corrupts an unrelated negotiation.
var ErrUnexpectedAnswer = errors.New("answer received without a pending local offer")

// OperatorConnection owns one WebRTC peer connection on the operator
// side. The operator is always the offering party: it receives video and
// sends input, never the reverse.
type OperatorConnection struct {
	pc    *webrtc.PeerConnection
	sid   domain.SessionID
	input *webrtc.DataChannel

	cancel context.CancelFunc

	mu        sync.RWMutex
	state     core.ConnState
	pending   []webrtc.ICECandidateInit
	answered  bool
	closed    bool
	onICE     func(webrtc.ICECandidateInit)
	onTrack   func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
	onState   func(core.ConnState)
	onChannel func()
}

func NewOperatorConnection(sess domain.RemoteSession) (*OperatorConnection, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: toPionICE(sess.ICEServers),
	})
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	// The recvonly transceiver must exist before CreateOffer, or the SDP
	// carries no video media section and the connection never gets a frame.
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("add video transceiver: %w", err)
	}

	// Created before the offer so the channel rides in the initial SDP.
	ordered := true
	dc, err := pc.CreateDataChannel(InputChannelLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("create input channel: %w", err)
	}

	return &OperatorConnection{pc: pc, sid: sess.ID, input: dc, state: core.ConnNew}, nil
}

func (c *OperatorConnection) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		c.mu.RLock()
		fn := c.onICE
		c.mu.RUnlock()
		if fn != nil {
			fn(cand.ToJSON())
		}
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		st := mapState(s)
		log.Info().Str("module", "rtc").Str("sid", string(c.sid)).Str("peer_connection_state", s.String()).Msg("peer state")
		c.mu.Lock()
		c.state = st
		fn := c.onState
		c.mu.Unlock()
		if fn != nil {
			fn(st)
		}
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("sid", string(c.sid)).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("remote track received")
		c.mu.RLock()
		fn := c.onTrack
		c.mu.RUnlock()
		if fn != nil {
			fn(ctx, track, receiver)
		}
	})

	c.input.OnOpen(func() {
		log.Info().Str("module", "rtc").Str("sid", string(c.sid)).Msg("input channel open")
		c.mu.RLock()
		fn := c.onChannel
		c.mu.RUnlock()
		if fn != nil {
			fn()
		}
	})

	return nil
}

// CreateAndSetOffer generates the local offer for trickle ICE: it returns
// right away rather than waiting for candidate gathering, candidates
// follow through OnICECandidate.
func (c *OperatorConnection) CreateAndSetOffer() (*webrtc.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return &offer, nil
}

func (c *OperatorConnection) ApplyAnswer(answer webrtc.SessionDescription) error {
	if c.pc.SignalingState() != webrtc.SignalingStateHaveLocalOffer {
		log.Warn().Str("module", "rtc").Str("sid", string(c.sid)).
			Str("signaling_state", c.pc.SignalingState().String()).Msg("ignoring out-of-order answer")
		return ErrUnexpectedAnswer
	}
	if err := c.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	c.mu.Lock()
	c.answered = true
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, ci := range pending {
		if err := c.pc.AddICECandidate(ci); err != nil {
			log.Warn().Err(err).Str("module", "rtc").Str("sid", string(c.sid)).Msg("buffered candidate rejected")
		}
	}
	return nil
}

// AddICECandidate applies a remote candidate. Trickled candidates can
// outrun the answer; until the remote description lands they are buffered
// and flushed in receipt order.
func (c *OperatorConnection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	c.mu.Lock()
	if !c.answered {
		c.pending = append(c.pending, ci)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.pc.AddICECandidate(ci)
}

func (c *OperatorConnection) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.mu.Lock()
	c.onICE = fn
	c.mu.Unlock()
}

func (c *OperatorConnection) OnTrack(fn func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	c.mu.Lock()
	c.onTrack = fn
	c.mu.Unlock()
}

func (c *OperatorConnection) OnConnState(fn func(core.ConnState)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// OnInputOpen sets a callback for the input channel reaching open; the UI
// keeps input affordances disabled until then.
func (c *OperatorConnection) OnInputOpen(fn func()) {
	c.mu.Lock()
	c.onChannel = fn
	c.mu.Unlock()
}

func (c *OperatorConnection) State() core.ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *OperatorConnection) SendControl(msg domain.ControlMessage) error {
	if c.input == nil || c.input.ReadyState() != webrtc.DataChannelStateOpen {
		return core.ErrChannelNotOpen
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", msg.Control(), err)
	}
	return c.input.SendText(string(b))
}

func (c *OperatorConnection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	if err := c.input.Close(); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("sid", string(c.sid)).Msg("input channel close error")
	}
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("sid", string(c.sid)).Msg("close error")
	} else {
		log.Info().Str("module", "rtc").Str("sid", string(c.sid)).Msg("closed")
	}
}

func mapState(s webrtc.PeerConnectionState) core.ConnState {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return core.ConnConnecting
	case webrtc.PeerConnectionStateConnected:
		return core.ConnConnected
	case webrtc.PeerConnectionStateDisconnected:
		return core.ConnDisconnected
	case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
		return core.ConnFailed
	default:
		return core.ConnNew
	}
}

func toPionICE(servers []domain.ICEServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		ice := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			ice.Credential = s.Credential
		}
		out = append(out, ice)
	}
	return out
}
