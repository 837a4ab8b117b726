package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/quickserve/driver-tracking/internal/api"
	"github.com/quickserve/driver-tracking/internal/core/service"
	"github.com/quickserve/driver-tracking/internal/infrastructure/backend"
	mongodb "github.com/quickserve/driver-tracking/internal/infrastructure/db/mongo"
	redisdb "github.com/quickserve/driver-tracking/internal/infrastructure/db/redis"
	"github.com/quickserve/driver-tracking/internal/infrastructure/mapbridge"
	"github.com/quickserve/driver-tracking/internal/infrastructure/queue"
	"github.com/quickserve/driver-tracking/internal/pkg/config"
	"github.com/quickserve/driver-tracking/pkg/logger"
)

// main is the application composition root. It wires concrete adapters
// (Mongo, Redis, the platform backend, the map-bridge hub) behind ports and
// starts the HTTP server.
//
// @title        Driver Tracking API
// @version      1.0
// @description  Live delivery-route building, driver location tracking and swipe-to-deliver confirmation.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Service: "driver-tracking",
		Pretty:  cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	// Platform backend adapters.
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, log)
	orders := backend.NewOrderGateway(client)
	directions := backend.NewDirectionsProvider(client)

	// Persistence adapters.
	positions := redisdb.NewPositionCache(rdb)
	dedup := redisdb.NewCompletionDedup(rdb)
	completions := mongodb.NewCompletionRepository(db)
	snapshots := mongodb.NewRouteSnapshotRepository(db)
	authRepo := mongodb.NewAuthRepository(db)

	// Map bridge: websocket hub doubling as map sink and speaker.
	hub := mapbridge.NewHub(log)

	// Core services.
	resolver := service.NewGeocodeResolver(directions, log)
	announcer := service.NewProximityAnnouncer(hub, log)
	engine := service.NewRouteEngine(orders, directions, resolver, positions, snapshots, hub, announcer, cfg.Language, log)
	hub.SetTapHandler(engine.FocusStop)

	stream := service.NewLocationStream(orders, positions, hub, cfg.Tracking.MinInterval, cfg.Tracking.MinDistanceM, log)
	stream.Subscribe(announcer.OnLocation)
	defer stream.Close()

	confirmer := service.NewDeliveryConfirmer(orders, dedup, completions, engine, func(orderID int) {
		// A completed stop makes any in-flight announcement stale.
		hub.Stop()
	}, log)

	authService := service.NewAuthService(authRepo, cfg.JWTSecret, 0)

	dispatcher := queue.NewDispatcher(cfg.Tracking.Workers, stream, log)
	dispatcher.Start(ctx)

	e := api.NewRouter(api.Dependencies{
		Mongo:       db,
		Redis:       rdb,
		JWTSecret:   cfg.JWTSecret,
		Log:         log,
		Auth:        authService,
		Routes:      engine,
		Completions: completions,
		Gestures:    confirmer,
		Locations:   dispatcher,
		MapSocket:   hub.ServeWS,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	log.Info().Str("port", cfg.Port).Msg("server listening")
	if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
