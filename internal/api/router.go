package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/quickserve/driver-tracking/docs"
	"github.com/quickserve/driver-tracking/internal/api/handler"
	"github.com/quickserve/driver-tracking/internal/api/middleware"
	"github.com/quickserve/driver-tracking/internal/core/domain"
	"github.com/quickserve/driver-tracking/internal/core/ports"
)

// Dependencies carries everything the router needs wired in. The composition
// root (cmd/server) builds the services; the router only binds them to routes.
type Dependencies struct {
	Mongo     *mongo.Database
	Redis     *redis.Client
	JWTSecret string
	Log       zerolog.Logger

	Auth        ports.AuthService
	Routes      ports.RouteService
	Completions ports.CompletionRepository
	Gestures    handler.GestureService
	Locations   handler.LocationDispatcher

	// MapSocket serves the map-bridge websocket (GET /ws/map).
	MapSocket echo.HandlerFunc
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("tracking"))

	authHandler := handler.NewAuthHandler(deps.Auth)
	routeHandler := handler.NewRouteHandler(deps.Routes, deps.Completions)
	locationHandler := handler.NewLocationHandler(deps.Locations)
	deliveryHandler := handler.NewDeliveryHandler(deps.Gestures)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Authenticated API ---
	v1 := e.Group("/v1", middleware.Auth(deps.JWTSecret))

	driverOnly := middleware.RBAC(domain.RoleDriver)
	anyRole := middleware.RBAC(domain.RoleAdmin, domain.RoleDispatcher, domain.RoleDriver)

	v1.POST("/drivers/location", locationHandler.Receive, driverOnly)
	v1.GET("/drivers/:id/route", routeHandler.GetRoute, anyRole)
	v1.POST("/drivers/:id/route/refresh-etas", routeHandler.RefreshETAs, anyRole)
	v1.GET("/drivers/:id/completions", routeHandler.ListCompletions, anyRole)
	v1.POST("/deliveries/:orderId/gesture", deliveryHandler.Gesture, driverOnly)

	// --- Map bridge socket (no auth: the map view authenticates out of band) ---
	if deps.MapSocket != nil {
		e.GET("/ws/map", deps.MapSocket)
	}

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Operational surfaces ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
