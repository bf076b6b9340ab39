package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/drawrelay-server/internal/config"
	"github.com/vovakirdan/drawrelay-server/internal/core"
	"github.com/vovakirdan/drawrelay-server/internal/store"
)

// Hub is the part of the relay the transport talks to.
type Hub interface {
	RegisterClient(c *core.Client)
	UnregisterClient(c *core.Client)
	Stats(ctx context.Context) (core.Stats, error)
	RoomState(ctx context.Context, roomID string) (core.RoomState, bool, error)
	TouchRoom(ctx context.Context, roomID string) error
}

// RoomReader reads persisted room state in order with the hub's queued writes.
type RoomReader interface {
	LoadLog(ctx context.Context, roomID string) ([]core.DrawingCommand, error)
	LoadRoom(ctx context.Context, roomID string) (*store.Room, error)
}

// NewServer builds an HTTP server with REST and WebSocket routes.
func NewServer(hub Hub, rooms RoomReader, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.AllowedOrigins))

	health := NewHealthHandler(hub, logger)
	router.GET("/health", health.Health)

	wsHandler := NewWSHandler(hub, WSOptions{
		ClientBuffer:    cfg.ClientBuffer,
		MaxMessageBytes: cfg.MaxMessageBytes,
		EventsPerSecond: cfg.EventsPerSecond,
		EventBurst:      cfg.EventBurst,
		AllowedOrigins:  cfg.AllowedOrigins,
	}, logger)
	router.GET("/ws", gin.WrapH(wsHandler))

	roomHandlers := NewRoomHandlers(hub, rooms, logger)
	api := router.Group("/api")
	{
		api.POST("/rooms/join", roomHandlers.JoinRoom)
		api.GET("/rooms/:roomId", roomHandlers.GetRoom)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
