package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rental-portal/internal/cascade"
	"rental-portal/internal/config"
	"rental-portal/internal/database"
	"rental-portal/internal/deletionlog"
	"rental-portal/internal/handlers"
	"rental-portal/internal/logger"
	"rental-portal/internal/metrics"
	"rental-portal/internal/ratelimit"
	"rental-portal/internal/scheduler"
	"rental-portal/internal/scrub"
	"rental-portal/internal/search"
	"rental-portal/internal/sweep"
	"rental-portal/internal/token"
)

func main() {
	// Load configuration
	configPath := getEnv("CONFIG_PATH", "/app/config/config.yaml")
	appConfig, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
	}

	logger.Init(appConfig.Logging.Level)
	logger.Info().Str("path", configPath).Str("database", appConfig.Database.Type).Msg("configuration loaded")

	// The token secret is required before anything can be erased.
	tokens, err := token.New(appConfig.Privacy.TokenSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid privacy configuration")
	}

	scrubber, err := scrub.New(scrub.Policy{
		Replacement:  appConfig.Privacy.Scrub.Replacement,
		EmailPattern: appConfig.Privacy.Scrub.EmailPattern,
		PhonePattern: appConfig.Privacy.Scrub.PhonePattern,
		Extra:        appConfig.Privacy.Scrub.ExtraPatterns,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid scrub policy")
	}

	loc := time.Local
	if appConfig.Timezone != "" {
		if loc, err = time.LoadLocation(appConfig.Timezone); err != nil {
			logger.Fatal().Err(err).Str("timezone", appConfig.Timezone).Msg("invalid timezone")
		}
	}

	// Initialize database
	gormDB, err := database.NewGormDB(appConfig.Database, logger.Gorm(appConfig.Logging.Level))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer gormDB.Close()

	if err := gormDB.InitSchema(); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize schema")
	}
	db := gormDB.DB()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	opts := []cascade.Option{
		cascade.WithMetrics(appMetrics),
		cascade.WithScrubber(scrubber),
		cascade.WithTokenContext(appConfig.Privacy.TokenContext),
	}

	// Initialize Meilisearch using config
	if ms := appConfig.Search.Meilisearch; ms.Enabled {
		searchClient := search.NewSearchClient(ms.Host, ms.APIKey, ms.Index)
		if err := searchClient.InitIndex(); err != nil {
			logger.Warn().Err(err).Msg("failed to initialize search index")
		} else if _, err := search.ReindexListed(context.Background(), db, searchClient); err != nil {
			logger.Warn().Err(err).Msg("failed to refresh search index")
		}
		opts = append(opts, cascade.WithIndexer(search.NewCircuitBreaker(searchClient, 3, time.Minute)))
	}

	store := deletionlog.NewStore(db)
	orchestrator := cascade.New(db, store, tokens, opts...)

	sweepService := sweep.NewService(db, orchestrator, appMetrics)
	appScheduler := scheduler.NewScheduler(sweepService, appConfig.Privacy.Sweep, loc)
	if err := appScheduler.Start(); err != nil {
		logger.Warn().Err(err).Msg("failed to start scheduler")
	}
	defer appScheduler.Stop()

	rateLimiter := ratelimit.NewRateLimiter(
		appConfig.RateLimit.RequestsPerMinute,
		appConfig.RateLimit.Burst,
		appConfig.RateLimit.Enabled,
	)
	if appConfig.Server.TrustActorHeader {
		rateLimiter.WithKeyFunc(ratelimit.ActorHeaderOrIP)
	}
	logger.Info().
		Int("requests_per_minute", appConfig.RateLimit.RequestsPerMinute).
		Int("burst", appConfig.RateLimit.Burst).
		Bool("enabled", appConfig.RateLimit.Enabled).
		Msg("rate limiter initialized")

	// Setup Gin router
	gin.SetMode(appConfig.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinLogger())

	if len(appConfig.Server.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     appConfig.Server.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Type", "X-Actor-ID"},
			AllowCredentials: true,
		}))
	}

	r.GET("/health", healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	r.GET("/api/ratelimit/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, rateLimiter.GetStats())
	})

	adminHandler := handlers.NewAdminHandler(db, store, orchestrator, appScheduler).
		TrustActorHeader(appConfig.Server.TrustActorHeader)
	adminHandler.RegisterRoutes(r, rateLimiter.Middleware())
	logger.Info().Msg("admin API routes registered at /api/admin/*")

	srv := &http.Server{
		Addr:              appConfig.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
