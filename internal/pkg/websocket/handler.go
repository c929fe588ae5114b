package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/app/realtime"
	"github.com/yigit/scribelink/internal/middleware"
)

// BridgeFactory builds a fresh bridge for one connection.
type BridgeFactory func() *realtime.Bridge

// Handler for WebSocket connections
type Handler struct {
	hub       *Hub
	newBridge BridgeFactory
	logger    zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, newBridge BridgeFactory, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:       hub,
		newBridge: newBridge,
		logger:    logger,
	}
}

// HandleConnection upgrades the request and starts pushing the caller's
// match request list whenever it changes. Must run behind JWTAuth.
func (h *Handler) HandleConnection(c *gin.Context) {
	session, ok := middleware.GetSession(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("userID", session.UserID.String()).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := newClient(h.hub, conn, session, h.newBridge(), h.logger)
	if !h.hub.Register(client) {
		client.close()
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	if err := client.start(); err != nil {
		h.logger.Warn().Err(err).Str("sessionID", session.SessionID).Msg("Realtime bridge did not start")
		h.hub.remove(client)
		return
	}

	h.logger.Info().
		Str("sessionID", session.SessionID).
		Str("userID", session.UserID.String()).
		Str("remoteAddr", conn.RemoteAddr().String()).
		Msg("WebSocket connection established")
}
