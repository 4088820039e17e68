package router // package router registers the HTTP routes of the engine

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-reservation-engine/internal/broadcast"
	"github.com/iliyamo/seat-reservation-engine/internal/config"
	"github.com/iliyamo/seat-reservation-engine/internal/handler"
	"github.com/iliyamo/seat-reservation-engine/internal/middleware"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Seats   *handler.SeatHandler
	Catalog *handler.CatalogHandler
	Webhook *handler.WebhookHandler
	Tests   *handler.TestHandler
	Hub     *broadcast.Hub
	Health  echo.HandlerFunc
}

// Options carries the middleware settings.
type Options struct {
	JWTSecret string
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client // nil disables rate limiting and caching
	Log       logrus.FieldLogger
}

// Register wires every route on e.
func Register(e *echo.Echo, h Handlers, opt Options) {
	e.Use(middleware.RequestLogger(opt.Log))

	e.GET("/healthz", h.Health)

	// The payment provider signs its callbacks; no JWT here.
	e.POST("/webhooks/payment", h.Webhook.Payment)

	// Public read side.  Only the event listing is cached; seat snapshots
	// change with every hold.
	e.GET("/v1/events", h.Catalog.ListEvents, middleware.NewRedisCache(opt.Cache, opt.Redis))
	e.GET("/v1/events/:id/seats", h.Catalog.EventSeats)
	e.GET("/v1/events/:id/ws", handler.EventStream(h.Hub))
	e.GET("/v1/seats/lock/:seatId/ttl", h.Seats.HoldTTL)

	auth := e.Group("/v1", middleware.JWTAuth(opt.JWTSecret))
	auth.POST("/seats/lock", h.Seats.Lock, middleware.NewTokenBucket(opt.RateLimit, opt.Redis, opt.Log))
	auth.POST("/seats/book", h.Seats.Book)
	auth.GET("/bookings/me", h.Catalog.MyBookings)

	// Concurrency test harness; isolated tables, no auth.
	t := e.Group("/v1/test")
	t.POST("/start", h.Tests.Start)
	t.GET("/:id/status", h.Tests.Status)
	t.GET("/:id/report", h.Tests.Report)
	t.GET("/:id/ws", h.Tests.Stream)
}
