package rtc

import (
	"context"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callo451/deskwise-remote/internal/core"
	"github.com/callo451/deskwise-remote/internal/domain"
)

type stubLink struct {
	sent []domain.ControlMessage
	err  error
}

func (s *stubLink) Start(context.Context) error                            { return nil }
func (s *stubLink) Close()                                                 {}
func (s *stubLink) CreateAndSetOffer() (*webrtc.SessionDescription, error) { return nil, nil }
func (s *stubLink) ApplyAnswer(webrtc.SessionDescription) error            { return nil }
func (s *stubLink) AddICECandidate(webrtc.ICECandidateInit) error          { return nil }
func (s *stubLink) OnICECandidate(func(webrtc.ICECandidateInit))           {}
func (s *stubLink) OnTrack(func(context.Context, *webrtc.TrackRemote, *webrtc.RTPReceiver)) {
}
func (s *stubLink) OnConnState(func(core.ConnState)) {}
func (s *stubLink) State() core.ConnState            { return core.ConnConnected }

func (s *stubLink) SendControl(msg domain.ControlMessage) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func TestMouseMoveNormalizesToReferenceResolution(t *testing.T) {
	link := &stubLink{}
	f := NewForwarder(func() core.MediaLink { return link }, 960, 540)

	require.NoError(t, f.MouseMove(480, 270))

	require.Len(t, link.sent, 1)
	ev, ok := link.sent[0].(domain.MouseEvent)
	require.True(t, ok)
	assert.Equal(t, domain.MouseMove, ev.EventType)
	assert.Equal(t, domain.RefWidth/2, ev.X)
	assert.Equal(t, domain.RefHeight/2, ev.Y)
}

func TestViewResizeChangesNormalization(t *testing.T) {
	link := &stubLink{}
	f := NewForwarder(func() core.MediaLink { return link }, 960, 540)
	f.SetViewSize(domain.RefWidth, domain.RefHeight)

	require.NoError(t, f.MouseButton(100, 200, 0, true))

	ev := link.sent[0].(domain.MouseEvent)
	assert.Equal(t, 100, ev.X)
	assert.Equal(t, 200, ev.Y)
	assert.True(t, ev.Down)
}

func TestScrollCarriesDeltas(t *testing.T) {
	link := &stubLink{}
	f := NewForwarder(func() core.MediaLink { return link }, 960, 540)

	require.NoError(t, f.MouseScroll(0, -120))

	ev := link.sent[0].(domain.MouseEvent)
	assert.Equal(t, domain.MouseScroll, ev.EventType)
	assert.Equal(t, -120, ev.DeltaY)
}

func TestForwardWithoutLinkIsDropped(t *testing.T) {
	f := NewForwarder(func() core.MediaLink { return nil }, 960, 540)

	assert.ErrorIs(t, f.Key("a", true), core.ErrChannelNotOpen)
}
