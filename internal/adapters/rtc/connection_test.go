package rtc

import (
	"context"
	"strings"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callo451/deskwise-remote/internal/core"
	"github.com/callo451/deskwise-remote/internal/domain"
)

func testSession() domain.RemoteSession {
	return domain.RemoteSession{ID: "sess-1", AssetID: "asset-1", Token: "tok", Status: domain.StatusActive}
}

func TestOfferAdvertisesVideoAndInputChannel(t *testing.T) {
	conn, err := NewOperatorConnection(testSession())
	require.NoError(t, err)
	defer conn.Close()

	offer, err := conn.CreateAndSetOffer()
	require.NoError(t, err)

	// Without the recvonly transceiver there is no m=video section and
	// the agent would never send a frame; without the pre-created data
	// channel there is no m=application section.
	assert.True(t, strings.Contains(offer.SDP, "m=video"), "offer must carry a video media section")
	assert.True(t, strings.Contains(offer.SDP, "m=application"), "offer must carry the data channel")
	assert.True(t, strings.Contains(offer.SDP, "a=recvonly"), "video must be receive-only")
}

func TestAnswerWithoutPendingOfferIsIgnored(t *testing.T) {
	conn, err := NewOperatorConnection(testSession())
	require.NoError(t, err)
	defer conn.Close()

	err = conn.ApplyAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0\r\n"})
	assert.ErrorIs(t, err, ErrUnexpectedAnswer)
}

func TestOfferAnswerExchange(t *testing.T) {
	conn, err := NewOperatorConnection(testSession())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Start(context.Background()))

	offer, err := conn.CreateAndSetOffer()
	require.NoError(t, err)

	// Candidates trickling in ahead of the answer are buffered, not
	// rejected.
	mid := "0"
	idx := uint16(0)
	early := webrtc.ICECandidateInit{
		Candidate:     "candidate:3993899773 1 udp 2113937151 127.0.0.1 54400 typ host generation 0",
		SDPMid:        &mid,
		SDPMLineIndex: &idx,
	}
	require.NoError(t, conn.AddICECandidate(early))

	answerer, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	defer answerer.Close()

	require.NoError(t, answerer.SetRemoteDescription(*offer))
	answer, err := answerer.CreateAnswer(nil)
	require.NoError(t, err)
	require.NoError(t, answerer.SetLocalDescription(answer))

	require.NoError(t, conn.ApplyAnswer(answer))

	// A duplicate answer after the first applied is an ignored no-op.
	assert.ErrorIs(t, conn.ApplyAnswer(answer), ErrUnexpectedAnswer)

	// Late candidates now apply directly.
	late := webrtc.ICECandidateInit{
		Candidate:     "candidate:3993899774 1 udp 2113937150 127.0.0.1 54401 typ host generation 0",
		SDPMid:        &mid,
		SDPMLineIndex: &idx,
	}
	assert.NoError(t, conn.AddICECandidate(late))
}

func TestSendControlBeforeChannelOpenIsDropped(t *testing.T) {
	conn, err := NewOperatorConnection(testSession())
	require.NoError(t, err)
	defer conn.Close()

	err = conn.SendControl(domain.NewMonitorSelect(domain.AllMonitors))
	assert.ErrorIs(t, err, core.ErrChannelNotOpen)
}

func TestCloseIsIdempotent(t *testing.T) {
	conn, err := NewOperatorConnection(testSession())
	require.NoError(t, err)

	conn.Close()
	conn.Close()
}

func TestICEServerConversion(t *testing.T) {
	servers := toPionICE([]domain.ICEServer{
		{URLs: []string{"stun:stun.example.com:3478"}},
		{URLs: []string{"turn:turn.example.com:3478"}, Username: "u", Credential: "c"},
	})

	require.Len(t, servers, 2)
	assert.Nil(t, servers[0].Credential)
	assert.Equal(t, "u", servers[1].Username)
	assert.Equal(t, "c", servers[1].Credential)
}
