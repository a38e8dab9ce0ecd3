package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/callo451/deskwise-remote/internal/core"
	"github.com/callo451/deskwise-remote/internal/domain"
)

// Poller drives the fixed-interval signalling poll. It dispatches
// messages in server order and only ever advances its cursor. Transient
// tick failures are logged and retried on the next tick; only failures
// persisting across consecutive ticks — or a token rejection — surface
// through onFatal and stop the loop.
type Poller struct {
	transport core.SignalTransport
	interval  time.Duration
	threshold int
	cursor    int64

	onSignal func(domain.SignalMessage)
	onFatal  func(error)
}

func NewPoller(t core.SignalTransport, interval time.Duration, threshold int,
	onSignal func(domain.SignalMessage), onFatal func(error)) *Poller {
	if threshold < 1 {
		threshold = 1
	}
	return &Poller{
		transport: t,
		interval:  interval,
		threshold: threshold,
		onSignal:  onSignal,
		onFatal:   onFatal,
	}
}

// Seed sets the initial cursor to the latest timestamp already observed,
// so a restarted loop never re-processes old messages.
func (p *Poller) Seed(cursor int64) {
	if cursor > p.cursor {
		p.cursor = cursor
	}
}

// Run blocks until ctx is cancelled or a fatal poll error occurs.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	failures := 0
	for {
		if done := p.tick(ctx, &failures); done {
			return
		}
		select {
		case <-ctx.Done():
			log.Info().Str("module", "adapters.api").Msg("poll loop ctx done")
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) tick(ctx context.Context, failures *int) bool {
	msgs, err := p.transport.FetchSince(ctx, p.cursor)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrSessionNotFound) {
			p.onFatal(err)
			return true
		}
		*failures++
		log.Warn().Err(err).Str("module", "adapters.api").Int("consecutive", *failures).Msg("poll tick failed")
		if *failures >= p.threshold {
			p.onFatal(fmt.Errorf("signal polling failed %d consecutive ticks: %w", *failures, err))
			return true
		}
		return false
	}

	*failures = 0
	for _, m := range msgs {
		if m.Timestamp > p.cursor {
			p.cursor = m.Timestamp
		}
		p.onSignal(m)
	}
	return false
}
