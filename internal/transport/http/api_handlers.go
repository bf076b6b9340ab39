package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse reports relay counters.
type HealthResponse struct {
	Status      string `json:"status"`
	ActiveRooms int    `json:"activeRooms"`
	Sessions    int    `json:"sessions"`
}

// HealthHandler serves the introspection endpoint.
type HealthHandler struct {
	hub Hub
	log *zerolog.Logger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(hub Hub, logger *zerolog.Logger) *HealthHandler {
	return &HealthHandler{hub: hub, log: logger}
}

// Health reports active rooms and tracked sessions.
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	st, err := h.hub.Stats(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "relay unavailable"})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:      "ok",
		ActiveRooms: st.ActiveRooms,
		Sessions:    st.Sessions,
	})
}
