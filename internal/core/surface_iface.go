package core

import (
	"context"
	"errors"
)

// ErrChannelNotOpen is returned by MediaLink.SendControl when the input
// channel is not open; the message is dropped, never queued.
var ErrChannelNotOpen = errors.New("input channel not open")

// Notifier surfaces ephemeral, auto-dismissing feedback for control
// surface actions. Implementations must never block.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// FrameSource is the read side of the viewport used by the control surface.
type FrameSource interface {
	// LastKeyframe returns the most recent keyframe, if any arrived yet.
	LastKeyframe() (VideoFrame, bool)
	// FrameRate is the frames-per-second over a short rolling window.
	FrameRate() float64
}

// Clipboard reads the operator's local clipboard. Read failures are
// expected (missing permission, no selection) and reported, not fatal.
type Clipboard interface {
	Read(ctx context.Context) (string, error)
}

// Fullscreen delegates to the platform fullscreen surface housing the
// viewport. Exits can be triggered externally (e.g. Escape); the owner
// reconciles its toggle via ControlSurface.HandleExternalExit.
type Fullscreen interface {
	Enter() error
	Exit() error
}
