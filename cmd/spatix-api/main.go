package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spatix/spatix/internal/catalog"
	"github.com/spatix/spatix/internal/config"
	"github.com/spatix/spatix/internal/metrics"
	"github.com/spatix/spatix/internal/middleware"
	"github.com/spatix/spatix/internal/normalize"
	"github.com/spatix/spatix/pkg/geospatial"
)

func main() {
	_ = godotenv.Load()

	// Initialize logger
	logger, err := buildLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to database
	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	// Optional redis cache
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		logger.Info("Dataset cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// Initialize Catalog Module
	catalogRepo := catalog.NewPostgresRepository(db)
	if err := catalogRepo.Migrate(context.Background()); err != nil {
		logger.Fatal("Failed to migrate schema", zap.Error(err))
	}
	catalogService := catalog.NewService(catalogRepo, catalog.NewDataCache(redisClient), logger)
	catalogHandler := catalog.NewHandler(catalogService, logger)

	// Initialize Normalization Module
	normalizeService := normalize.NewService(
		geospatial.NewGEOSRepairer(),
		normalize.NewMercatorReprojector(),
		logger,
	)
	normalizeHandler := normalize.NewHandler(normalizeService, logger)

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	limiter := middleware.NewSlidingWindow(cfg.Limits.RequestsPerMinute, time.Minute)

	api := router.Group("/api")
	api.Use(middleware.RateLimit(limiter))
	{
		normalizeHandler.RegisterRoutes(api)
		catalogHandler.RegisterRoutes(api)
	}

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Keep the index gauge fresh
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 1m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := catalogService.Stats(ctx); err != nil {
			logger.Warn("Stats refresh failed", zap.Error(err))
		}
	}); err != nil {
		logger.Fatal("Failed to schedule stats refresh", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Start Server
	srv := &http.Server{
		Addr:    cfg.Server.GetServerAddr(),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", cfg.Server.GetServerAddr()))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

func buildLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
