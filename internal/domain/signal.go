package domain

import "encoding/json"

type Role string

const (
	RoleOperator Role = "operator"
	RoleAgent    Role = "agent"
)

type SignalType string

const (
	SignalOffer     SignalType = "offer"
	SignalAnswer    SignalType = "answer"
	SignalCandidate SignalType = "ice-candidate"
)

// SignalMessage is one entry in the append-only signalling log. Messages
// are immutable; Timestamp is server-assigned and strictly increasing
// within a session, and doubles as the polling cursor.
type SignalMessage struct {
	SessionID SessionID       `json:"sessionId,omitempty"`
	Type      SignalType      `json:"type"`
	Data      json.RawMessage `json:"data"`
	Sender    Role            `json:"sender,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// SDPPayload is the Data of offer and answer messages.
type SDPPayload struct {
	SDP string `json:"sdp"`
}

// CandidatePayload is the Data of ice-candidate messages.
type CandidatePayload struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}
