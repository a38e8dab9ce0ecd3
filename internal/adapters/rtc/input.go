package rtc

import (
	"sync"

	"github.com/callo451/deskwise-remote/internal/core"
	"github.com/callo451/deskwise-remote/internal/domain"
)

// Forwarder maps viewport-space operator input onto the control protocol.
// Pointer coordinates are normalized to the agent's reference resolution
// before sending. Sends while the channel is not open are dropped by the
// link, never queued.
type Forwarder struct {
	link func() core.MediaLink

	mu    sync.RWMutex
	viewW int
	viewH int
}

// NewForwarder takes a getter so the forwarder follows the live link
// across a session restart.
func NewForwarder(link func() core.MediaLink, viewW, viewH int) *Forwarder {
	return &Forwarder{link: link, viewW: viewW, viewH: viewH}
}

// SetViewSize updates the viewport dimensions used for normalization.
func (f *Forwarder) SetViewSize(w, h int) {
	f.mu.Lock()
	f.viewW, f.viewH = w, h
	f.mu.Unlock()
}

func (f *Forwarder) MouseMove(x, y int) error {
	nx, ny := f.normalize(x, y)
	return f.send(domain.MouseEvent{
		Type:      domain.ControlMouse,
		EventType: domain.MouseMove,
		X:         nx,
		Y:         ny,
	})
}

func (f *Forwarder) MouseButton(x, y, button int, down bool) error {
	nx, ny := f.normalize(x, y)
	return f.send(domain.MouseEvent{
		Type:      domain.ControlMouse,
		EventType: domain.MouseButton,
		X:         nx,
		Y:         ny,
		Button:    button,
		Down:      down,
	})
}

func (f *Forwarder) MouseScroll(deltaX, deltaY int) error {
	return f.send(domain.MouseEvent{
		Type:      domain.ControlMouse,
		EventType: domain.MouseScroll,
		DeltaX:    deltaX,
		DeltaY:    deltaY,
	})
}

func (f *Forwarder) Key(key string, down bool) error {
	return f.send(domain.NewKeyEvent(key, down))
}

func (f *Forwarder) normalize(x, y int) (int, int) {
	f.mu.RLock()
	w, h := f.viewW, f.viewH
	f.mu.RUnlock()
	return domain.NormalizePoint(x, y, w, h)
}

func (f *Forwarder) send(msg domain.ControlMessage) error {
	l := f.link()
	if l == nil {
		return core.ErrChannelNotOpen
	}
	return l.SendControl(msg)
}
