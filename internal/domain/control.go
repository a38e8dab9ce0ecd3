package domain

// Reference resolution used to normalize pointer coordinates when the
// agent has not negotiated a display resolution.
const (
	RefWidth  = 1920
	RefHeight = 1080
)

// AllMonitors selects every display on the agent side.
const AllMonitors = -1

type ControlType string

const (
	ControlMouse     ControlType = "mouse"
	ControlKeyboard  ControlType = "keyboard"
	ControlMonitor   ControlType = "monitor"
	ControlClipboard ControlType = "clipboard"
)

// ControlMessage is any record sent over the input data channel. Each
// concrete message carries its own discriminator in the Type field.
type ControlMessage interface {
	Control() ControlType
}

type MouseEventType string

const (
	MouseMove   MouseEventType = "move"
	MouseButton MouseEventType = "button"
	MouseScroll MouseEventType = "scroll"
)

type MouseEvent struct {
	Type      ControlType    `json:"type"`
	EventType MouseEventType `json:"eventType"`
	X         int            `json:"x,omitempty"`
	Y         int            `json:"y,omitempty"`
	Button    int            `json:"button,omitempty"`
	Down      bool           `json:"down,omitempty"`
	DeltaX    int            `json:"deltaX,omitempty"`
	DeltaY    int            `json:"deltaY,omitempty"`
}

func (MouseEvent) Control() ControlType { return ControlMouse }

type KeyEvent struct {
	Type ControlType `json:"type"`
	Key  string      `json:"key"`
	Down bool        `json:"down"`
}

func (KeyEvent) Control() ControlType { return ControlKeyboard }

func NewKeyEvent(key string, down bool) KeyEvent {
	return KeyEvent{Type: ControlKeyboard, Key: key, Down: down}
}

// MonitorSelect switches the agent capture target. AllMonitors (-1)
// captures every display, 0..n-1 a specific one.
type MonitorSelect struct {
	Type         ControlType `json:"type"`
	MonitorIndex int         `json:"monitorIndex"`
}

func (MonitorSelect) Control() ControlType { return ControlMonitor }

func NewMonitorSelect(index int) MonitorSelect {
	return MonitorSelect{Type: ControlMonitor, MonitorIndex: index}
}

// ClipboardPush forwards operator clipboard text to the agent.
// One-directional and best-effort.
type ClipboardPush struct {
	Type ControlType `json:"type"`
	Text string      `json:"text"`
}

func (ClipboardPush) Control() ControlType { return ControlClipboard }

func NewClipboardPush(text string) ClipboardPush {
	return ClipboardPush{Type: ControlClipboard, Text: text}
}

// NormalizePoint maps a viewport-space coordinate onto the reference
// resolution the agent injects against.
func NormalizePoint(x, y, viewW, viewH int) (int, int) {
	if viewW <= 0 || viewH <= 0 {
		return 0, 0
	}
	nx := x * RefWidth / viewW
	ny := y * RefHeight / viewH
	if nx < 0 {
		nx = 0
	} else if nx > RefWidth {
		nx = RefWidth
	}
	if ny < 0 {
		ny = 0
	} else if ny > RefHeight {
		ny = RefHeight
	}
	return nx, ny
}
