package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/callo451/deskwise-remote/internal/domain"
)

// SignalLog is the append-only signalling store. Timestamps are assigned
// on append and strictly increase within a session; consumers poll with
// a forward-only cursor.
type SignalLog struct {
	mu   sync.RWMutex
	logs map[domain.SessionID][]domain.SignalMessage
	last map[domain.SessionID]int64
}

func NewSignalLog() *SignalLog {
	return &SignalLog{
		logs: make(map[domain.SessionID][]domain.SignalMessage),
		last: make(map[domain.SessionID]int64),
	}
}

// Append stores the message with a server-assigned timestamp and returns
// the stored copy. Stored messages are never mutated.
func (l *SignalLog) Append(msg domain.SignalMessage) domain.SignalMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().UnixMicro()
	if prev := l.last[msg.SessionID]; ts <= prev {
		ts = prev + 1
	}
	msg.Timestamp = ts
	l.last[msg.SessionID] = ts
	l.logs[msg.SessionID] = append(l.logs[msg.SessionID], msg)
	log.Debug().Str("module", "app.signallog").Str("sid", string(msg.SessionID)).
		Str("type", string(msg.Type)).Str("sender", string(msg.Sender)).Int64("ts", ts).Msg("appended signal")
	return msg
}

// Since returns messages addressed to role (i.e. authored by the other
// side) with Timestamp > since, in append order.
func (l *SignalLog) Since(id domain.SessionID, since int64, role domain.Role) []domain.SignalMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.SignalMessage
	for _, m := range l.logs[id] {
		if m.Timestamp <= since {
			continue
		}
		if role != "" && m.Sender == role {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Drop garbage-collects the log for an ended session.
func (l *SignalLog) Drop(id domain.SessionID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.logs, id)
	delete(l.last, id)
}
