package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/callo451/deskwise-remote/internal/app"
	"github.com/callo451/deskwise-remote/internal/domain"
)

type SessionController struct {
	reg  *app.SessionRegistry
	sigs *app.SignalLog
}

func NewSessionController(reg *app.SessionRegistry, sigs *app.SignalLog) *SessionController {
	return &SessionController{reg: reg, sigs: sigs}
}

// List returns sessions matching the assetId/status filter. Tokens are
// redacted: listing exists to detect stale sessions, not to adopt them.
func (c *SessionController) List(ctx *gin.Context) {
	assetID := domain.AssetID(ctx.Query("assetId"))
	status := domain.SessionStatus(ctx.Query("status"))

	sessions := c.reg.List(assetID, status)
	for i := range sessions {
		sessions[i].Token = ""
	}
	ctx.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (c *SessionController) Create(ctx *gin.Context) {
	type createRequest struct {
		AssetID string `json:"assetId" binding:"required"`
	}
	var req createRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid assetId"})
		return
	}

	sess, err := c.reg.Create(domain.AssetID(req.AssetID))
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"session": sess})
}

// End transitions the session to ended and drops its signal log.
// Idempotent: ending an unknown or already-ended session returns 200, so
// a teardown racing an explicit end never reports failure. A bearer
// token, when supplied, must match; operator-plane auth beyond that is
// outside this subsystem.
func (c *SessionController) End(ctx *gin.Context) {
	id := domain.SessionID(ctx.Param("sessionID"))

	if token := bearerToken(ctx); token != "" {
		if sess, ok := c.reg.Get(id); ok && sess.Token != token {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrUnauthorized.Error()})
			return
		}
	}

	c.reg.End(id)
	c.sigs.Drop(id)
	log.Info().Str("module", "adapters.httpserver").Str("sid", string(id)).Msg("session end requested")
	ctx.JSON(http.StatusOK, gin.H{"status": string(domain.StatusEnded)})
}

func bearerToken(ctx *gin.Context) string {
	h := ctx.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
