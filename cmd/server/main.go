// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/minesweep/internal/auth"
	"github.com/jason-s-yu/minesweep/internal/cache"
	"github.com/jason-s-yu/minesweep/internal/config"
	"github.com/jason-s-yu/minesweep/internal/database"
	"github.com/jason-s-yu/minesweep/internal/handlers"
	"github.com/jason-s-yu/minesweep/internal/middleware"
	"github.com/jason-s-yu/minesweep/internal/service"
	"github.com/jason-s-yu/minesweep/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	if err := auth.Init(); err != nil {
		logger.Fatalf("auth: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		st   store.Store
		opts []service.Option
	)
	switch cfg.Store {
	case config.StoreMemory:
		st = store.NewMemoryStore()
		logger.Warn("using in-memory store; sessions will not survive a restart")
	default:
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		st = store.NewRedisStore(rdb, store.DefaultPrefix)
		opts = append(opts, service.WithActionLog(cache.NewActionLog(rdb, cfg.QueueName)))
		logger.Infof("Connected to Redis at %s", cfg.RedisAddr)
	}

	if cfg.DatabaseURL != "" {
		pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer pool.Close()
		opts = append(opts, service.WithArchive(database.NewArchive(pool)))
		logger.Info("Archiving finished games to Postgres")
	}

	svc := service.New(st, logger, opts...)

	reaper, err := service.NewReaper(svc, service.ReapPolicy{
		LobbyIdleTTL:  cfg.LobbyIdleTTL,
		GameMaxAge:    cfg.GameMaxAge,
		FinishedGrace: cfg.FinishedGrace,
	}, cfg.ReapInterval, logger)
	if err != nil {
		logger.Fatalf("reaper: %v", err)
	}
	reaper.Start()

	gs := handlers.NewGameServer(svc, logger)
	logged := middleware.LogMiddleware(logger)
	mux := http.NewServeMux()

	// user endpoints
	mux.Handle("POST /user/guest", logged(handlers.GuestHandler(gs)))

	// lobby endpoints
	mux.Handle("POST /lobby/create", logged(handlers.CreateLobbyHandler(gs)))
	mux.Handle("GET /lobby/list", logged(handlers.ListLobbiesHandler(gs)))
	mux.Handle("POST /lobby/join", logged(handlers.JoinLobbyHandler(gs)))
	mux.Handle("POST /lobby/leave", logged(handlers.LeaveLobbyHandler(gs)))
	mux.Handle("POST /lobby/start", logged(handlers.StartGameHandler(gs)))

	// game endpoints
	mux.Handle("GET /game/state", logged(handlers.GameStateHandler(gs)))
	mux.Handle("POST /game/move", logged(handlers.MoveHandler(gs)))
	mux.Handle("POST /game/leave", logged(handlers.LeaveGameHandler(gs)))
	mux.Handle("POST /game/spectate", logged(handlers.SpectateHandler(gs)))
	mux.Handle("GET /difficulties", logged(http.HandlerFunc(handlers.DifficultiesHandler)))

	// game feed
	mux.Handle("GET /game/ws/", logged(handlers.GameWSHandler(gs)))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}
	go func() {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
	if err := reaper.Stop(); err != nil {
		logger.WithError(err).Warn("reaper shutdown")
	}
}
