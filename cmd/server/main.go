package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/app"
	"dispatch/internal/config"
	"dispatch/internal/events"
	"dispatch/internal/handler"
	internalRedis "dispatch/internal/redis"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/routing"
	"dispatch/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Ride events go to Kafka when brokers are configured; otherwise
	// they are logged locally so the event stream is still visible in
	// development.
	var publisher events.Publisher
	if cfg.Kafka.Brokers != "" {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Printf("Publishing ride events to Kafka topic %s", cfg.Kafka.Topic)
	} else {
		publisher = events.NewLogPublisher()
	}

	// Routing oracle is optional; without it quotes require a
	// caller-supplied distance.
	var oracle routing.Oracle
	if cfg.Maps.APIKey != "" {
		oracle, err = routing.NewGoogleOracle(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("failed to initialize routing oracle: %v", err)
		}
		log.Println("Routing oracle enabled")
	}

	// Wire dependencies.
	server := wireServer(db, redisClient, nrApp, publisher, oracle, cfg)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	publisher events.Publisher,
	oracle routing.Oracle,
	cfg *config.Config,
) *http.Server {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	referenceCache := internalRedis.NewReferenceCache(redisClient)

	// Initialize repositories.
	rideRepo := postgres.NewRideRepository(db)
	availabilityRepo := postgres.NewAvailabilityRepository(db)
	zoneRepo := postgres.NewZoneRepository(db)
	routeRepo := postgres.NewFixedRouteRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db)
	promoRepo := postgres.NewPromotionRepository(db)

	// Initialize services.
	fareService := service.NewFareService(settingsRepo, zoneRepo, routeRepo, referenceCache, oracle)
	promoService := service.NewPromotionService(promoRepo)
	rideService := service.NewRideService(rideRepo, availabilityRepo, publisher)
	feedService := service.NewFeedService(rideRepo, availabilityRepo)
	driverService := service.NewDriverService(availabilityRepo, rideRepo, locationStore)

	// Initialize handlers.
	rideHandler := handler.NewRideHandler(rideService, feedService)
	driverHandler := handler.NewDriverHandler(driverService)
	fareHandler := handler.NewFareHandler(fareService, promoService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		RideHandler:    rideHandler,
		DriverHandler:  driverHandler,
		FareHandler:    fareHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		JWTSecret:      cfg.Auth.JWTSecret,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
