package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"waterquality/internal/config"
	"waterquality/internal/handlers"
	"waterquality/internal/logging"
	"waterquality/internal/metrics"
	"waterquality/internal/middleware"
	"waterquality/internal/repository"
	"waterquality/internal/service"
	"waterquality/internal/worker"
	"waterquality/pkg/database"
	"waterquality/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.App.LogLevel, cfg.App.Debug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("water quality service starting",
		zap.String("storage", cfg.DB.Driver),
		zap.Bool("redis", cfg.Redis.Enabled))

	metrics.Init()

	var measurementRepo repository.MeasurementRepository
	switch cfg.DB.Driver {
	case config.StorageDriverMemory:
		measurementRepo = repository.NewMemoryMeasurementRepository()
		logger.Warn("using in-memory storage, data is lost on restart")
	default:
		db, err := database.Connect(database.Config{URL: cfg.DB.URL, Debug: cfg.App.Debug}, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}()

		if err := database.Migrate(db, logger); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}
		measurementRepo = repository.NewMeasurementRepository(db)
	}

	cacheRepo := repository.NewNoopCacheRepository()
	var cacheStats handlers.StatsProvider
	if cfg.Redis.Enabled {
		redisClient, err := redis.Connect(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()

		cacheRepo = repository.NewCacheRepository(redisClient)
		cacheStats = func(ctx context.Context) (map[string]string, error) {
			return redis.GetStats(ctx, redisClient)
		}
	}

	measurementService := service.NewMeasurementService(measurementRepo, cacheRepo, logger, service.MeasurementConfig{
		CacheTTL: cfg.Redis.CacheTTL,
	})
	exportService := service.NewExportService(measurementRepo, cfg.Export.OutputDir, logger)

	scheduler := worker.NewScheduler(logger)
	if cfg.Export.WorkerEnabled {
		scheduler.AddWorker(worker.NewExportWorker(exportService, cfg.Export.Format, cfg.Export.WorkerInterval, logger))
		logger.Info("export worker enabled", zap.Duration("interval", cfg.Export.WorkerInterval))
	}
	scheduler.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = scheduler.Stop(ctx)
	}()

	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(logger), middleware.Metrics())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.App.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if !cfg.App.Debug {
		r.Use(middleware.RateLimit(cfg.RateLimit.PerIP, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger))
		logger.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
			zap.Bool("per_ip", cfg.RateLimit.PerIP))
	}

	handlers.RegisterRoutes(r, handlers.Handlers{
		Measurements: handlers.NewMeasurementHandler(measurementService, logger),
		Export:       handlers.NewExportHandler(exportService, cfg.Export.Format, logger),
		System:       handlers.NewSystemHandler(measurementService, cacheRepo, cacheStats, cfg.DB.Driver, logger),
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server exited")
}
