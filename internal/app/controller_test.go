package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callo451/deskwise-remote/internal/adapters/rtc"
	"github.com/callo451/deskwise-remote/internal/core"
	"github.com/callo451/deskwise-remote/internal/domain"
)

type fakeAPI struct {
	mu        sync.Mutex
	active    []domain.RemoteSession
	listErr   error
	createErr error
	endErr    error
	created   int
	ended     []domain.SessionID
}

func (f *fakeAPI) List(_ context.Context, assetID domain.AssetID, status domain.SessionStatus) ([]domain.RemoteSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.RemoteSession
	for _, s := range f.active {
		if s.AssetID == assetID && s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeAPI) Create(_ context.Context, assetID domain.AssetID) (domain.RemoteSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.RemoteSession{}, f.createErr
	}
	f.created++
	return domain.RemoteSession{
		ID:      "new-session",
		AssetID: assetID,
		Token:   "new-token",
		Status:  domain.StatusActive,
	}, nil
}

func (f *fakeAPI) End(_ context.Context, id domain.SessionID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, id)
	return f.endErr
}

func (f *fakeAPI) endedIDs() []domain.SessionID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SessionID(nil), f.ended...)
}

type fakeLink struct {
	mu         sync.Mutex
	started    bool
	closed     bool
	applyErr   error
	sendErr    error
	applied    []webrtc.SessionDescription
	candidates []webrtc.ICECandidateInit
	sent       []domain.ControlMessage
	state      core.ConnState
	onState    func(core.ConnState)
}

func (f *fakeLink) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeLink) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeLink) CreateAndSetOffer() (*webrtc.SessionDescription, error) {
	return &webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0\r\n"}, nil
}

func (f *fakeLink) ApplyAnswer(sd webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, sd)
	return nil
}

func (f *fakeLink) AddICECandidate(ci webrtc.ICECandidateInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates = append(f.candidates, ci)
	return nil
}

func (f *fakeLink) OnICECandidate(func(webrtc.ICECandidateInit)) {}
func (f *fakeLink) OnTrack(func(context.Context, *webrtc.TrackRemote, *webrtc.RTPReceiver)) {
}

func (f *fakeLink) OnConnState(fn func(core.ConnState)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onState = fn
}

func (f *fakeLink) State() core.ConnState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeLink) SendControl(msg domain.ControlMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeLink) fireConnState(st core.ConnState) {
	f.mu.Lock()
	fn := f.onState
	f.state = st
	f.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

type fakeTransport struct {
	mu        sync.Mutex
	published []domain.SignalMessage
}

func (f *fakeTransport) Publish(_ context.Context, typ domain.SignalType, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, domain.SignalMessage{Type: typ, Data: raw})
	return nil
}

func (f *fakeTransport) FetchSince(context.Context, int64) ([]domain.SignalMessage, error) {
	return nil, nil
}

func (f *fakeTransport) publishedTypes() []domain.SignalType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SignalType, 0, len(f.published))
	for _, m := range f.published {
		out = append(out, m.Type)
	}
	return out
}

// blockingPump parks until the controller cancels its context; tests
// inject signals through the captured callbacks instead.
type blockingPump struct{}

func (blockingPump) Run(ctx context.Context) { <-ctx.Done() }

type controllerHarness struct {
	api       *fakeAPI
	link      *fakeLink
	transport *fakeTransport
	ctrl      *SessionController

	mu       sync.Mutex
	onSignal func(domain.SignalMessage)
	onFatal  func(error)
}

func newHarness(api *fakeAPI) *controllerHarness {
	h := &controllerHarness{api: api, link: &fakeLink{}, transport: &fakeTransport{}}
	h.ctrl = NewSessionController(
		api,
		func(domain.RemoteSession) (core.MediaLink, error) { return h.link, nil },
		func(domain.RemoteSession) core.SignalTransport { return h.transport },
		func(_ core.SignalTransport, onSignal func(domain.SignalMessage), onFatal func(error)) SignalPump {
			h.mu.Lock()
			h.onSignal, h.onFatal = onSignal, onFatal
			h.mu.Unlock()
			return blockingPump{}
		},
		nil,
	)
	return h
}

func (h *controllerHarness) signal(m domain.SignalMessage) {
	h.mu.Lock()
	fn := h.onSignal
	h.mu.Unlock()
	fn(m)
}

func (h *controllerHarness) pollFatal(err error) {
	h.mu.Lock()
	fn := h.onFatal
	h.mu.Unlock()
	fn(err)
}

func TestOpenReachesReadyAndPublishesOffer(t *testing.T) {
	h := newHarness(&fakeAPI{})

	require.NoError(t, h.ctrl.Open(context.Background(), "asset-1"))
	defer h.ctrl.Close()

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, domain.SessionID("new-session"), snap.SessionID)
	assert.True(t, h.link.started)
	require.NotEmpty(t, h.transport.publishedTypes())
	assert.Equal(t, domain.SignalOffer, h.transport.publishedTypes()[0])
}

func TestOpenEndsStaleSessionFirst(t *testing.T) {
	api := &fakeAPI{active: []domain.RemoteSession{
		{ID: "stale", AssetID: "asset-1", Token: "stale-token", Status: domain.StatusActive},
	}}
	h := newHarness(api)

	require.NoError(t, h.ctrl.Open(context.Background(), "asset-1"))
	defer h.ctrl.Close()

	assert.Equal(t, []domain.SessionID{"stale"}, api.endedIDs())
	assert.Equal(t, 1, api.created)
}

func TestStaleEndFailureDoesNotAbortStart(t *testing.T) {
	api := &fakeAPI{
		active: []domain.RemoteSession{{ID: "stale", AssetID: "asset-1", Status: domain.StatusActive}},
		endErr: errors.New("registry timeout"),
	}
	h := newHarness(api)

	require.NoError(t, h.ctrl.Open(context.Background(), "asset-1"))
	defer h.ctrl.Close()

	assert.Equal(t, StateReady, h.ctrl.Snapshot().State)
}

func TestOpenConflictSurfacesRetryableError(t *testing.T) {
	api := &fakeAPI{createErr: domain.ErrConflict}
	h := newHarness(api)

	err := h.ctrl.Open(context.Background(), "asset-1")
	require.ErrorIs(t, err, domain.ErrConflict)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.NotEmpty(t, snap.Err)
}

func TestOpenRejectedWhileSessionInProgress(t *testing.T) {
	h := newHarness(&fakeAPI{})

	require.NoError(t, h.ctrl.Open(context.Background(), "asset-1"))
	defer h.ctrl.Close()

	assert.ErrorIs(t, h.ctrl.Open(context.Background(), "asset-2"), ErrSessionInProgress)
}

func TestRetryRunsCheckingFromScratch(t *testing.T) {
	api := &fakeAPI{createErr: domain.ErrConflict}
	h := newHarness(api)

	require.Error(t, h.ctrl.Open(context.Background(), "asset-1"))

	api.mu.Lock()
	api.createErr = nil
	api.mu.Unlock()

	require.NoError(t, h.ctrl.Retry(context.Background()))
	defer h.ctrl.Close()
	assert.Equal(t, StateReady, h.ctrl.Snapshot().State)
}

func TestCloseTearsDownAndEndsSession(t *testing.T) {
	h := newHarness(&fakeAPI{})
	require.NoError(t, h.ctrl.Open(context.Background(), "asset-1"))

	h.ctrl.Close()

	assert.True(t, h.link.closed)
	assert.Equal(t, StateIdle, h.ctrl.Snapshot().State)
	require.Eventually(t, func() bool {
		for _, id := range h.api.endedIDs() {
			if id == "new-session" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestCloseNeverPanicsEvenWhenEndFails(t *testing.T) {
	api := &fakeAPI{endErr: errors.New("network down")}
	h := newHarness(api)
	require.NoError(t, h.ctrl.Open(context.Background(), "asset-1"))

	h.ctrl.Close()
	h.ctrl.Close()

	assert.True(t, h.link.closed)
	assert.Equal(t, StateIdle, h.ctrl.Snapshot().State)
}

func TestAnswerDispatchAppliesSDP(t *testing.T) {
	h := newHarness(&fakeAPI{})
	require.NoError(t, h.ctrl.Open(context.Background(), "asset-1"))
	defer h.ctrl.Close()

	data, _ := json.Marshal(domain.SDPPayload{SDP: "v=0\r\nanswer"})
	h.signal(domain.SignalMessage{Type: domain.SignalAnswer, Data: data, Timestamp: 1})

	require.Len(t, h.link.applied, 1)
	assert.Equal(t, webrtc.SDPTypeAnswer, h.link.applied[0].Type)
	assert.Equal(t, "v=0\r\nanswer", h.link.applied[0].SDP)
}

func TestOutOfOrderAnswerIsIgnored(t *testing.T) {
	h := newHarness(&fakeAPI{})
	require.NoError(t, h.ctrl.Open(context.Background(), "asset-1"))
	defer h.ctrl.Close()

	h.link.mu.Lock()
	h.link.applyErr = rtc.ErrUnexpectedAnswer
	h.link.mu.Unlock()

	data, _ := json.Marshal(domain.SDPPayload{SDP: "late answer"})
	h.signal(domain.SignalMessage{Type: domain.SignalAnswer, Data: data, Timestamp: 2})

	// Ignored, not fatal: the session stays up.
	assert.Equal(t, StateReady, h.ctrl.Snapshot().State)
	assert.Empty(t, h.link.applied)
}

func TestCandidatesBeforeAnswerKeepReceiptOrder(t *testing.T) {
	h := newHarness(&fakeAPI{})
	require.NoError(t, h.ctrl.Open(context.Background(), "asset-1"))
	defer h.ctrl.Close()

	for i, cand := range []string{"candidate:1", "candidate:2"} {
		data, _ := json.Marshal(domain.CandidatePayload{Candidate: cand})
		h.signal(domain.SignalMessage{Type: domain.SignalCandidate, Data: data, Timestamp: int64(i + 1)})
	}
	data, _ := json.Marshal(domain.SDPPayload{SDP: "answer"})
	h.signal(domain.SignalMessage{Type: domain.SignalAnswer, Data: data, Timestamp: 3})

	require.Len(t, h.link.candidates, 2)
	assert.Equal(t, "candidate:1", h.link.candidates[0].Candidate)
	assert.Equal(t, "candidate:2", h.link.candidates[1].Candidate)
	assert.Len(t, h.link.applied, 1)
}

func TestPollUnauthorizedIsFatal(t *testing.T) {
	h := newHarness(&fakeAPI{})
	require.NoError(t, h.ctrl.Open(context.Background(), "asset-1"))

	h.pollFatal(domain.ErrUnauthorized)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Contains(t, snap.Err, "credentials")
	assert.True(t, h.link.closed)
}

func TestConnFailureTearsDownWithError(t *testing.T) {
	h := newHarness(&fakeAPI{})
	require.NoError(t, h.ctrl.Open(context.Background(), "asset-1"))

	h.link.fireConnState(core.ConnFailed)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.NotEmpty(t, snap.Err)
	assert.True(t, h.link.closed)
}

func TestDisconnectedUsesManualRetryPath(t *testing.T) {
	h := newHarness(&fakeAPI{})
	require.NoError(t, h.ctrl.Open(context.Background(), "asset-1"))

	h.link.fireConnState(core.ConnDisconnected)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.NotEmpty(t, snap.Err)
}
