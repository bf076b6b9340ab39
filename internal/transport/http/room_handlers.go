package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/drawrelay-server/internal/core"
	"github.com/vovakirdan/drawrelay-server/internal/proto"
	"github.com/vovakirdan/drawrelay-server/internal/store"
)

const (
	msgNewRoom      = "New room created"
	msgExistingRoom = "Joined existing room"
)

// RoomHandlers provides HTTP handlers for room endpoints.
type RoomHandlers struct {
	hub   Hub
	rooms RoomReader
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub Hub, rooms RoomReader, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub:   hub,
		rooms: rooms,
		log:   logger,
	}
}

// JoinRoomRequest represents the join-or-create request body.
type JoinRoomRequest struct {
	RoomID string `json:"roomId"`
}

// JoinRoomResponse describes the room a client is about to enter.
type JoinRoomResponse struct {
	RoomID      string                 `json:"roomId"`
	DrawingData []proto.DrawingCommand `json:"drawingData"`
	ActiveUsers int                    `json:"activeUsers"`
	IsNew       bool                   `json:"isNew"`
	Message     string                 `json:"message"`
}

// RoomResponse represents room metadata.
type RoomResponse struct {
	RoomID       string                 `json:"roomId"`
	DrawingData  []proto.DrawingCommand `json:"drawingData"`
	ActiveUsers  int                    `json:"activeUsers"`
	CreatedAt    time.Time              `json:"createdAt"`
	LastActivity time.Time              `json:"lastActivity"`
}

func invalidRoom(c *gin.Context, err error) {
	ce := core.AsCoreError(err)
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: ce.Message, Code: ce.Code})
}

// JoinRoom looks a room up, creating its record when missing.
// POST /api/rooms/join
func (h *RoomHandlers) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid join request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	roomID, err := core.ValidateRoomID(req.RoomID)
	if err != nil {
		invalidRoom(c, err)
		return
	}

	ctx := c.Request.Context()
	commands, activeUsers, _, err := h.currentLog(ctx, roomID)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomID).Msg("failed to read room state")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "relay unavailable", Code: core.ErrCodeJoinFailed})
		return
	}

	if err := h.hub.TouchRoom(ctx, roomID); err != nil {
		h.log.Warn().Err(err).Str("room", roomID).Msg("failed to record room activity")
	}

	isNew := len(commands) == 0
	message := msgExistingRoom
	if isNew {
		message = msgNewRoom
	}

	h.log.Debug().Str("room", roomID).Bool("new", isNew).Int("commands", len(commands)).Msg("room join requested")
	c.JSON(http.StatusOK, JoinRoomResponse{
		RoomID:      roomID,
		DrawingData: toProtoCommands(commands),
		ActiveUsers: activeUsers,
		IsNew:       isNew,
		Message:     message,
	})
}

// GetRoom returns the persisted room record, with live state when the room
// is held in memory.
// GET /api/rooms/:roomId
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	roomID, err := core.ValidateRoomID(c.Param("roomId"))
	if err != nil {
		invalidRoom(c, err)
		return
	}

	ctx := c.Request.Context()
	rec, err := h.rooms.LoadRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found", Code: core.ErrCodeNotFound})
			return
		}
		h.log.Error().Err(err).Str("room", roomID).Msg("failed to get room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: core.ErrCodeInternal})
		return
	}

	commands, activeUsers, live, err := h.currentLog(ctx, roomID)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomID).Msg("failed to read room state")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "relay unavailable", Code: core.ErrCodeInternal})
		return
	}

	resp := RoomResponse{
		RoomID:       rec.ID,
		DrawingData:  toProtoCommands(commands),
		ActiveUsers:  rec.ActiveUsers,
		CreatedAt:    rec.CreatedAt,
		LastActivity: rec.LastActivity,
	}
	if live {
		resp.ActiveUsers = activeUsers
	}
	c.JSON(http.StatusOK, resp)
}

// currentLog prefers the relay's in-memory log and falls back to the
// persisted one. A failed read degrades to an empty log.
func (h *RoomHandlers) currentLog(ctx context.Context, roomID string) ([]core.DrawingCommand, int, bool, error) {
	state, live, err := h.hub.RoomState(ctx, roomID)
	if err != nil {
		return nil, 0, false, err
	}
	if live {
		return state.Commands, state.ActiveUsers, true, nil
	}

	commands, err := h.rooms.LoadLog(ctx, roomID)
	if err != nil {
		h.log.Warn().Err(err).Str("room", roomID).Msg("failed to read persisted log")
		return nil, 0, false, nil
	}
	return commands, 0, false, nil
}
