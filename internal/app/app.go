package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/drawrelay-server/internal/config"
	"github.com/vovakirdan/drawrelay-server/internal/core"
	applog "github.com/vovakirdan/drawrelay-server/internal/log"
	"github.com/vovakirdan/drawrelay-server/internal/persist"
	"github.com/vovakirdan/drawrelay-server/internal/store"
	"github.com/vovakirdan/drawrelay-server/internal/store/memory"
	redisstore "github.com/vovakirdan/drawrelay-server/internal/store/redis"
	"github.com/vovakirdan/drawrelay-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/drawrelay-server/internal/transport/http"
)

// App wires together core, persistence and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	mirror          *persist.Dispatcher
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := openStore(cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	mirror := persist.New(st, persist.Config{
		QueueSize: cfg.PersistQueueSize,
		Timeout:   cfg.PersistTimeout,
	}, applog.Component(logger, "persist"))

	hub := core.NewHub(core.HubConfig{GracePeriod: cfg.RoomGracePeriod}, mirror, applog.Component(logger, "hub"))
	server := transporthttp.NewServer(hub, mirror, cfg, applog.Component(logger, "http"))

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		mirror:          mirror,
		store:           st,
		log:             logger,
	}, nil
}

func openStore(cfg config.StoreConfig, logger *zerolog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("db_path", cfg.SQLitePath).Msg("sqlite store initialized")
		return st, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		st, err := redisstore.New(redisstore.Config{Client: client, KeyPrefix: cfg.RedisPrefix})
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		logger.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("redis store initialized")
		return st, nil
	case config.StoreMemory:
		logger.Warn().Msg("memory store selected; drawings will not survive a restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	// Both outlive the HTTP server; the mirror outlives the hub so final writes get flushed.
	mirrorCtx, stopMirror := context.WithCancel(context.Background())
	go a.mirror.Run(mirrorCtx)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go a.hub.Run(hubCtx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("starting drawrelay server")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	var err error
	select {
	case err = <-serverErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if shutdownErr := a.server.Shutdown(shutdownCtx); shutdownErr != nil {
			err = shutdownErr
		} else {
			err = <-serverErr
		}
	}

	stopHub()
	stopMirror()
	<-a.mirror.Done()
	a.cleanup()
	return err
}

// cleanup closes the store.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
