package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/callo451/deskwise-remote/internal/adapters/view"
	"github.com/callo451/deskwise-remote/internal/core"
	"github.com/callo451/deskwise-remote/internal/domain"
)

var ErrNoFrame = errors.New("no video frame available")

// ControlSurface is the set of operator affordances layered on an
// established connection. Actions are local (screenshot, fullscreen) or
// one data-channel message (monitor switch, clipboard push); every
// failure surfaces as a toast and nothing here ever blocks the UI.
type ControlSurface struct {
	link          func() core.MediaLink
	frames        core.FrameSource
	fullscreen    core.Fullscreen
	clipboard     core.Clipboard
	notifier      core.Notifier
	screenshotDir string

	mu           sync.Mutex
	monitor      int
	fullscreenOn bool
}

func NewControlSurface(link func() core.MediaLink, frames core.FrameSource,
	fullscreen core.Fullscreen, clipboard core.Clipboard,
	notifier core.Notifier, screenshotDir string) *ControlSurface {
	return &ControlSurface{
		link:          link,
		frames:        frames,
		fullscreen:    fullscreen,
		clipboard:     clipboard,
		notifier:      notifier,
		screenshotDir: screenshotDir,
		monitor:       domain.AllMonitors,
	}
}

// Screenshot writes the viewport's current keyframe as a one-frame IVF
// file and returns its path. Purely local; no network involvement.
func (s *ControlSurface) Screenshot() (string, error) {
	frame, ok := s.frames.LastKeyframe()
	if !ok {
		s.notifier.Error("no video frame to capture")
		return "", ErrNoFrame
	}

	path := filepath.Join(s.screenshotDir, fmt.Sprintf("screenshot-%d.ivf", time.Now().Unix()))
	f, err := os.Create(path)
	if err != nil {
		s.notifier.Error("could not save screenshot")
		return "", fmt.Errorf("create screenshot file: %w", err)
	}
	if err := view.WriteIVFSnapshot(f, frame); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		s.notifier.Error("could not save screenshot")
		return "", err
	}
	if err := f.Close(); err != nil {
		s.notifier.Error("could not save screenshot")
		return "", err
	}

	log.Info().Str("module", "app.surface").Str("path", path).Msg("screenshot saved")
	s.notifier.Info("screenshot saved")
	return path, nil
}

// SelectMonitor sends the switch and optimistically updates the local
// indicator; it does not wait for agent acknowledgment.
func (s *ControlSurface) SelectMonitor(index int) error {
	if index < domain.AllMonitors {
		return fmt.Errorf("invalid monitor index %d", index)
	}

	l := s.link()
	if l == nil {
		s.notifier.Error("remote control not available")
		return core.ErrChannelNotOpen
	}
	if err := l.SendControl(domain.NewMonitorSelect(index)); err != nil {
		if errors.Is(err, core.ErrChannelNotOpen) {
			s.notifier.Error("remote control not available")
		} else {
			s.notifier.Error("monitor switch failed")
		}
		return err
	}

	s.mu.Lock()
	s.monitor = index
	s.mu.Unlock()
	if index == domain.AllMonitors {
		s.notifier.Info("showing all monitors")
	} else {
		s.notifier.Info(fmt.Sprintf("switched to monitor %d", index+1))
	}
	return nil
}

func (s *ControlSurface) SelectedMonitor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitor
}

// ToggleFullscreen delegates to the platform surface housing the viewport.
func (s *ControlSurface) ToggleFullscreen() error {
	s.mu.Lock()
	on := s.fullscreenOn
	s.mu.Unlock()

	var err error
	if on {
		err = s.fullscreen.Exit()
	} else {
		err = s.fullscreen.Enter()
	}
	if err != nil {
		s.notifier.Error("fullscreen toggle failed")
		return err
	}

	s.mu.Lock()
	s.fullscreenOn = !on
	s.mu.Unlock()
	return nil
}

// HandleExternalExit reconciles the toggle after an externally triggered
// exit (e.g. the Escape key).
func (s *ControlSurface) HandleExternalExit() {
	s.mu.Lock()
	s.fullscreenOn = false
	s.mu.Unlock()
}

func (s *ControlSurface) FullscreenOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullscreenOn
}

// SyncClipboard reads the local clipboard and forwards it to the agent.
// One-directional and best-effort, gated on platform read permission.
func (s *ControlSurface) SyncClipboard(ctx context.Context) error {
	text, err := s.clipboard.Read(ctx)
	if err != nil {
		s.notifier.Error("clipboard read not available")
		return fmt.Errorf("read clipboard: %w", err)
	}

	l := s.link()
	if l == nil {
		s.notifier.Error("remote control not available")
		return core.ErrChannelNotOpen
	}
	if err := l.SendControl(domain.NewClipboardPush(text)); err != nil {
		if errors.Is(err, core.ErrChannelNotOpen) {
			s.notifier.Error("remote control not available")
		} else {
			s.notifier.Error("clipboard sync failed")
		}
		return err
	}
	s.notifier.Info("clipboard sent")
	return nil
}
