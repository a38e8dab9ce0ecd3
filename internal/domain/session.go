// Package domain contains entity without logic, just meta-data
package domain

type (
	SessionID string
	AssetID   string
)

type SessionStatus string

const (
	StatusPending SessionStatus = "pending"
	StatusActive  SessionStatus = "active"
	StatusEnded   SessionStatus = "ended"
)

// ICEServer is one STUN/TURN descriptor issued at session creation.
// The list is immutable for the lifetime of the session.
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// RemoteSession binds an operator to one managed asset. The token is the
// only credential for subsequent signalling calls.
type RemoteSession struct {
	ID         SessionID     `json:"sessionId"`
	AssetID    AssetID       `json:"assetId"`
	Token      string        `json:"token"`
	ICEServers []ICEServer   `json:"iceServers"`
	Status     SessionStatus `json:"status"`
}
