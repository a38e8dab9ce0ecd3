package core

// ConnState is the aggregate peer-connection state. Owned by the media
// link; read by the controller and control surface to gate affordances.
type ConnState string

const (
	ConnNew          ConnState = "new"
	ConnConnecting   ConnState = "connecting"
	ConnConnected    ConnState = "connected"
	ConnDisconnected ConnState = "disconnected"
	ConnFailed       ConnState = "failed"
)

// QualityMetrics is a periodic sample of connection quality.
type QualityMetrics struct {
	FramesPerSecond float64
	RTTMillis       float64
	BitrateKbps     float64
}

// VideoFrame is one decoded-transport video frame (still encoded at the
// codec level). Width/Height are only set for keyframes.
type VideoFrame struct {
	Data     []byte
	Keyframe bool
	Width    int
	Height   int
}
