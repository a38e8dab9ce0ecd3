// Package view is the operator's rendering surface: it consumes the
// inbound video track, keeps the most recent keyframe for the control
// surface and measures the incoming frame rate.
package view

import (
	"context"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/samplebuilder"
	"github.com/rs/zerolog/log"

	"github.com/callo451/deskwise-remote/internal/core"
)

const fpsWindow = 5 * time.Second

type Viewport struct {
	mu       sync.RWMutex
	lastKey  core.VideoFrame
	haveKey  bool
	times    []time.Time
	attached bool
	state    core.ConnState
	recorder *Recorder
}

func New() *Viewport {
	return &Viewport{state: core.ConnNew}
}

// SetRecorder tees incoming RTP into a session recording. Must be set
// before the track attaches.
func (v *Viewport) SetRecorder(r *Recorder) {
	v.mu.Lock()
	v.recorder = r
	v.mu.Unlock()
}

// SetConnState feeds the connection state driving the overlay.
func (v *Viewport) SetConnState(st core.ConnState) {
	v.mu.Lock()
	v.state = st
	v.mu.Unlock()
}

// Overlay reports the status text to render over the video surface, if
// any. Track arrival and channel readiness are independent, so the
// overlay stays up until both the connection reports connected and a
// frame actually arrived.
func (v *Viewport) Overlay() (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.state != core.ConnConnected {
		return "negotiating", true
	}
	if !v.attached {
		return "waiting for video", true
	}
	return "", false
}

// Attach consumes the remote track until ctx is cancelled or the track
// ends. Intended as the MediaLink OnTrack callback.
func (v *Viewport) Attach(ctx context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	if track.Kind() != webrtc.RTPCodecTypeVideo {
		return
	}
	v.mu.Lock()
	v.attached = true
	v.mu.Unlock()
	go v.consume(ctx, track)
}

func (v *Viewport) consume(ctx context.Context, track *webrtc.TrackRemote) {
	builder := samplebuilder.New(64, &codecs.VP8Packet{}, track.Codec().ClockRate)
	for {
		if ctx.Err() != nil {
			return
		}
		pkt, _, err := track.ReadRTP()
		if err != nil {
			log.Info().Err(err).Str("module", "view").Msg("track read ended")
			v.mu.Lock()
			v.attached = false
			v.mu.Unlock()
			return
		}
		v.record(pkt)
		builder.Push(pkt)
		for {
			sample := builder.Pop()
			if sample == nil {
				break
			}
			v.onFrame(sample.Data)
		}
	}
}

func (v *Viewport) record(pkt *rtp.Packet) {
	v.mu.RLock()
	rec := v.recorder
	v.mu.RUnlock()
	if rec == nil {
		return
	}
	if err := rec.WriteRTP(pkt); err != nil {
		log.Warn().Err(err).Str("module", "view").Msg("recording write failed")
	}
}

func (v *Viewport) onFrame(data []byte) {
	if len(data) == 0 {
		return
	}
	now := time.Now()

	v.mu.Lock()
	defer v.mu.Unlock()

	v.times = append(v.times, now)
	cutoff := now.Add(-fpsWindow)
	for len(v.times) > 0 && v.times[0].Before(cutoff) {
		v.times = v.times[1:]
	}

	// VP8 frame tag: P bit clear means keyframe.
	if data[0]&0x01 != 0 {
		return
	}
	frame := core.VideoFrame{Data: append([]byte(nil), data...), Keyframe: true}
	frame.Width, frame.Height = vp8Dimensions(data)
	v.lastKey = frame
	v.haveKey = true
}

func (v *Viewport) LastKeyframe() (core.VideoFrame, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastKey, v.haveKey
}

func (v *Viewport) FrameRate() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(v.times) < 2 {
		return 0
	}
	span := v.times[len(v.times)-1].Sub(v.times[0]).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(len(v.times)-1) / span
}

// vp8Dimensions parses width/height from a VP8 keyframe header.
func vp8Dimensions(data []byte) (int, int) {
	if len(data) < 10 || data[3] != 0x9d || data[4] != 0x01 || data[5] != 0x2a {
		return 0, 0
	}
	w := int(uint16(data[6])|uint16(data[7])<<8) & 0x3fff
	h := int(uint16(data[8])|uint16(data[9])<<8) & 0x3fff
	return w, h
}
