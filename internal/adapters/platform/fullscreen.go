package platform

import "github.com/rs/zerolog/log"

// NopFullscreen stands in for the embedding surface's fullscreen API when
// the viewport is rendered externally (headless operator). Both calls
// succeed so the toggle state machine stays exercised.
type NopFullscreen struct{}

func (NopFullscreen) Enter() error {
	log.Info().Str("module", "platform").Msg("fullscreen enter")
	return nil
}

func (NopFullscreen) Exit() error {
	log.Info().Str("module", "platform").Msg("fullscreen exit")
	return nil
}
