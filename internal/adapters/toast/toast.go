// Package toast is an ephemeral notification sink: entries expire on
// their own and posting never blocks the caller.
package toast

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

type Toast struct {
	Level   Level
	Message string
	At      time.Time
}

type Center struct {
	mu    sync.Mutex
	items []Toast
	ttl   time.Duration
}

func NewCenter(ttl time.Duration) *Center {
	return &Center{ttl: ttl}
}

func (c *Center) Info(msg string) {
	c.push(Toast{Level: LevelInfo, Message: msg, At: time.Now()})
	log.Info().Str("module", "toast").Msg(msg)
}

func (c *Center) Error(msg string) {
	c.push(Toast{Level: LevelError, Message: msg, At: time.Now()})
	log.Warn().Str("module", "toast").Msg(msg)
}

func (c *Center) push(t Toast) {
	c.mu.Lock()
	c.items = append(c.items, t)
	c.mu.Unlock()
}

// Active returns not-yet-expired toasts, oldest first, and discards the
// rest.
func (c *Center) Active() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-c.ttl)
	keep := c.items[:0]
	for _, t := range c.items {
		if t.At.After(cutoff) {
			keep = append(keep, t)
		}
	}
	c.items = keep
	out := make([]Toast, len(keep))
	copy(out, keep)
	return out
}
