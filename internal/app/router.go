package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler    *handler.RideHandler
	DriverHandler  *handler.DriverHandler
	FareHandler    *handler.FareHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check stays outside auth so load balancers can reach it.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes. Everything under /v1 requires a verified token;
	// idempotency keys are scoped per caller, so the middleware runs
	// after auth.
	v1 := router.Group("/v1")
	v1.Use(middleware.Auth(deps.JWTSecret))
	v1.Use(middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst))
	v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	{
		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.RequestRide)
			rides.GET("/open", deps.RideHandler.OpenRequests)
			rides.GET("/active", deps.RideHandler.ActiveRide)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.POST("/:id/accept", deps.RideHandler.AcceptRide)
			rides.POST("/:id/status", deps.RideHandler.AdvanceStatus)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("/location", deps.DriverHandler.Heartbeat)
			drivers.POST("/online", deps.DriverHandler.SetOnline)
			drivers.GET("/nearby", deps.DriverHandler.Nearby)
		}

		// Fare and promotion routes.
		fares := v1.Group("/fares")
		{
			fares.POST("/quote", deps.FareHandler.Quote)
		}
		promotions := v1.Group("/promotions")
		{
			promotions.POST("/validate", deps.FareHandler.ValidatePromotion)
		}
	}

	return router
}
