package rtc

import (
	"context"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/callo451/deskwise-remote/internal/core"
)

// Sampler periodically reads peer-connection stats and publishes quality
// metrics. It only reports; reacting to poor quality is a UI decision.
type Sampler struct {
	conn      *OperatorConnection
	interval  time.Duration
	frameRate func() float64
	onSample  func(core.QualityMetrics)

	prevBytes uint64
	prevAt    time.Time
}

func NewSampler(conn *OperatorConnection, interval time.Duration,
	frameRate func() float64, onSample func(core.QualityMetrics)) *Sampler {
	return &Sampler{
		conn:      conn,
		interval:  interval,
		frameRate: frameRate,
		onSample:  onSample,
	}
}

// Run blocks until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "rtc").Msg("stats sampler ctx done")
			return
		case <-ticker.C:
			s.onSample(s.sample())
		}
	}
}

func (s *Sampler) sample() core.QualityMetrics {
	m := core.QualityMetrics{}
	if s.frameRate != nil {
		m.FramesPerSecond = s.frameRate()
	}

	var bytesReceived uint64
	for _, stat := range s.conn.pc.GetStats() {
		switch st := stat.(type) {
		case webrtc.ICECandidatePairStats:
			if st.State == webrtc.StatsICECandidatePairStateSucceeded && st.CurrentRoundTripTime > 0 {
				m.RTTMillis = st.CurrentRoundTripTime * 1000
			}
		case webrtc.TransportStats:
			bytesReceived += st.BytesReceived
		}
	}

	now := time.Now()
	if !s.prevAt.IsZero() && bytesReceived >= s.prevBytes {
		elapsed := now.Sub(s.prevAt).Seconds()
		if elapsed > 0 {
			m.BitrateKbps = float64(bytesReceived-s.prevBytes) * 8 / 1000 / elapsed
		}
	}
	s.prevBytes = bytesReceived
	s.prevAt = now
	return m
}
