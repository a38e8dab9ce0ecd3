package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/callo451/deskwise-remote/internal/app"
	"github.com/callo451/deskwise-remote/internal/domain"
)

type SignalController struct {
	reg  *app.SessionRegistry
	sigs *app.SignalLog
}

func NewSignalController(reg *app.SessionRegistry, sigs *app.SignalLog) *SignalController {
	return &SignalController{reg: reg, sigs: sigs}
}

// Append stores one signalling message. The session token rides in the
// body; a mismatch is Unauthorized, never a silent drop.
func (c *SignalController) Append(ctx *gin.Context) {
	type appendRequest struct {
		SessionID string          `json:"sessionId" binding:"required"`
		Token     string          `json:"token" binding:"required"`
		Type      string          `json:"type" binding:"required"`
		Data      json.RawMessage `json:"data" binding:"required"`
		Sender    string          `json:"sender" binding:"required"`
	}
	var req appendRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid signal payload"})
		return
	}
	if req.Sender != string(domain.RoleOperator) && req.Sender != string(domain.RoleAgent) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "unknown sender role"})
		return
	}

	sid := domain.SessionID(req.SessionID)
	if err := c.reg.Authorize(sid, req.Token); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	stored := c.sigs.Append(domain.SignalMessage{
		SessionID: sid,
		Type:      domain.SignalType(req.Type),
		Data:      req.Data,
		Sender:    domain.Role(req.Sender),
	})
	ctx.JSON(http.StatusCreated, gin.H{"timestamp": stored.Timestamp})
}

// Poll returns messages addressed to role with timestamp > since, in
// server order. The cursor only ever moves forward on the client side.
func (c *SignalController) Poll(ctx *gin.Context) {
	sid := domain.SessionID(ctx.Query("sessionId"))
	role := domain.Role(ctx.Query("role"))
	if sid == "" || (role != domain.RoleOperator && role != domain.RoleAgent) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "sessionId and role are required"})
		return
	}

	since := int64(0)
	if raw := ctx.Query("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid since cursor"})
			return
		}
		since = v
	}

	if err := c.reg.Authorize(sid, ctx.Query("token")); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	msgs := c.sigs.Since(sid, since, role)
	out := make([]domain.SignalMessage, 0, len(msgs))
	for _, m := range msgs {
		// Only the fields the poll contract names; session and sender are
		// implied by the query.
		out = append(out, domain.SignalMessage{Type: m.Type, Data: m.Data, Timestamp: m.Timestamp})
	}
	if len(msgs) > 0 {
		log.Debug().Str("module", "adapters.httpserver").Str("sid", string(sid)).Int("count", len(msgs)).Msg("signals polled")
	}
	ctx.JSON(http.StatusOK, gin.H{"messages": out})
}
