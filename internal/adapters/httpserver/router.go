package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/callo451/deskwise-remote/internal/app"
	"github.com/callo451/deskwise-remote/internal/config"
	"github.com/callo451/deskwise-remote/internal/domain"
)

// SetupRouter binds the session and signalling surface consumed by the
// operator client and the asset agent.
func SetupRouter(cfg *config.Config, reg *app.SessionRegistry, sigs *app.SignalLog) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	sessions := NewSessionController(reg, sigs)
	signals := NewSignalController(reg, sigs)

	r.GET("/sessions", sessions.List)
	r.POST("/sessions", sessions.Create)
	r.DELETE("/sessions/:sessionID", sessions.End)

	r.POST("/signalling", signals.Append)
	r.GET("/signalling", signals.Poll)

	log.Info().Str("module", "adapters.httpserver").Msg("router setup")
	return r
}

// statusFor maps the domain error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
