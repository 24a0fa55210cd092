package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/chachabrian/foodbridge-backend/internal/config"
	"github.com/chachabrian/foodbridge-backend/internal/database"
	"github.com/chachabrian/foodbridge-backend/internal/handlers"
	"github.com/chachabrian/foodbridge-backend/internal/services"
	"github.com/chachabrian/foodbridge-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := utils.InitLogger(cfg.LogPath, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.RunMigrations(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize Redis
	var store *services.Store
	if cfg.RedisURL != "" {
		store, err = services.InitRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
	} else {
		logger.Warn("REDIS_URL not set, running without cache, locks or token revocation")
	}

	// Initialize Firebase (optional - will log warning if not configured)
	push, err := services.InitFirebase(ctx, cfg.FirebaseServiceAccountPath, logger)
	if err != nil {
		logger.Warn("Firebase initialization warning", zap.Error(err))
	}

	// Initialize Storage (S3 or local fallback)
	storage, err := services.InitStorage(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	var uploadDir string
	if local, ok := storage.(*services.LocalStorage); ok {
		uploadDir = local.Dir()
	}

	// Initialize WebSocket hub
	hub := services.NewHub(cfg.FrontendOrigins, logger)
	go hub.Run(ctx)

	notifier := services.NewNotifier(db, hub, store, push, logger)
	go notifier.Relay(ctx)

	svc := services.New(services.Options{
		DB:       db,
		Store:    store,
		Notifier: notifier,
		Storage:  storage,
		Config:   cfg,
		Log:      logger,
	})

	if n, err := svc.DeliveryBoys.RebuildIndex(ctx); err != nil {
		logger.Warn("Failed to rebuild delivery boy index, nearby lookups use the database", zap.Error(err))
	} else if n > 0 {
		logger.Info("Delivery boy index rebuilt", zap.Int("deliveryBoys", n))
	}

	r, err := handlers.NewRouter(handlers.Dependencies{
		Config:    cfg,
		DB:        db,
		Store:     store,
		Hub:       hub,
		Services:  svc,
		Log:       logger,
		UploadDir: uploadDir,
	})
	if err != nil {
		logger.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("app", cfg.AppName), zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to start server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := store.Close(); err != nil {
		logger.Warn("Failed to close Redis client", zap.Error(err))
	}
	if err := database.Close(db); err != nil {
		logger.Warn("Failed to close database", zap.Error(err))
	}

	logger.Info("Server exited")
}
