package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/yeremiapane/qrmenu/caching"
	"github.com/yeremiapane/qrmenu/config"
	"github.com/yeremiapane/qrmenu/database"
	"github.com/yeremiapane/qrmenu/jobs"
	"github.com/yeremiapane/qrmenu/metrics"
	"github.com/yeremiapane/qrmenu/realtime"
	"github.com/yeremiapane/qrmenu/router"
	"github.com/yeremiapane/qrmenu/services"
	"github.com/yeremiapane/qrmenu/utils"
)

func main() {
	utils.InitLogger()

	// Load .env
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Println("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	utils.SetLogLevel(cfg.LogLevel)
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.TTL)
	if cfg.JWT.Secret == "" {
		utils.ErrorLogger.Println("JWT_SECRET is not set, using the development secret outside release mode")
	}
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize DB
	db, err := config.InitDB(cfg.DB)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}

	metrics.Register()
	hub := realtime.NewHub(cfg.CORSOrigins)

	var publisher realtime.Publisher = hub
	cache := caching.NewMemoryCacheService()
	if cfg.Redis.Enabled() {
		client := caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer client.Close()

		cache = caching.NewRedisCacheService(client)
		broker := realtime.NewRedisBroker(client, hub)
		go broker.Run(ctx)
		publisher = broker
		utils.InfoLogger.Println("Realtime updates fan out through Redis")
	}

	var storage services.ImageStorage
	if cfg.Minio.Enabled() {
		storage, err = services.NewMinioImageStorage(ctx, cfg.Minio)
		if err != nil {
			utils.ErrorLogger.Printf("Image storage unavailable: %v", err)
			storage = nil
		}
	} else {
		utils.InfoLogger.Println("MINIO_ENDPOINT not set, product image uploads are disabled")
	}

	svc := router.NewServices(db, cfg, cache, publisher, storage)

	scheduler, err := jobs.NewScheduler(svc.Tables, svc.Subscriptions, cfg.SessionMaxAge)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to set up background jobs: %v", err)
	}
	scheduler.Start()

	r := router.SetupRouter(router.Deps{DB: db, Config: cfg, Services: svc, Hub: hub})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Printf("HTTP shutdown: %v", err)
	}
	if err := scheduler.Stop(); err != nil {
		utils.ErrorLogger.Printf("Scheduler shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
