package core

import (
	"context"

	"github.com/callo451/deskwise-remote/internal/domain"
	"github.com/pion/webrtc/v4"
)

// MediaLink is the operator side of one WebRTC connection: negotiation,
// the inbound video track and the outbound input channel.
type MediaLink interface {
	// Start configures internal callbacks and binds the connection lifetime to ctx.
	Start(ctx context.Context) error
	// Close stops all underlying resources. Safe to call more than once.
	Close()
	// CreateAndSetOffer generates the local offer and sets it as local
	// description. The caller publishes it out of band.
	CreateAndSetOffer() (*webrtc.SessionDescription, error)
	// ApplyAnswer sets the remote description. It is a guarded no-op
	// unless the local signaling state is exactly have-local-offer.
	ApplyAnswer(webrtc.SessionDescription) error
	// AddICECandidate applies a remote ICE candidate in receipt order;
	// candidates arriving before the answer are buffered, not rejected.
	AddICECandidate(webrtc.ICECandidateInit) error
	// OnICECandidate sets a callback for newly gathered local candidates.
	OnICECandidate(func(webrtc.ICECandidateInit))
	// OnTrack sets a callback invoked when the remote video track arrives.
	OnTrack(func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver))
	// OnConnState sets a callback for aggregate state transitions.
	OnConnState(func(ConnState))
	// State returns the last observed aggregate state.
	State() ConnState
	// SendControl forwards one input/control record over the data channel.
	// Returns ErrChannelNotOpen (and sends nothing) unless the channel is
	// open; there is no queueing.
	SendControl(msg domain.ControlMessage) error
}
