package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mapguess-server/internal/bootstrap"
	"mapguess-server/internal/config"
	"mapguess-server/internal/handler"
	"mapguess-server/internal/service"
	"mapguess-server/shared/interfaces"
	"mapguess-server/shared/logger"
	"mapguess-server/shared/messaging"
	sharedMiddleware "mapguess-server/shared/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
		Service:  "mapguess-server",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = appLogger.Sync() }()
	zap.ReplaceGlobals(appLogger)

	appLogger.Info("Starting mapguess server...", cfg.LogFields()...)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Хранилище пазлов ---
	blobs, closeBlobs, err := bootstrap.BlobStore(rootCtx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize blob store", zap.Error(err))
	}
	defer closeBlobs()

	// --- Сессии игроков ---
	sessionRepo, closeSessions, err := bootstrap.SessionRepository(rootCtx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize session storage", zap.Error(err))
	}
	defer closeSessions()

	// --- Провайдеры ---
	embedder, judge, synonyms, err := bootstrap.Providers(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize providers", zap.Error(err))
	}

	// --- Сервисы ---
	puzzleStore := service.NewPuzzleStore(blobs, cfg.PuzzlePrefix)
	resolver := service.NewPuzzleResolver(puzzleStore, cfg.PuzzleCacheTTL, time.Now, appLogger)

	var invalidationPublisher interfaces.CacheInvalidationPublisher
	var mqConn *amqp091.Connection
	if cfg.RabbitMQURL != "" {
		mqConn, err = connectRabbitMQ(rootCtx, cfg.RabbitMQURL, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConn.Close()

		publisher, err := messaging.NewRabbitMQCacheInvalidationPublisher(mqConn, cfg.InstanceID, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to create cache invalidation publisher", zap.Error(err))
		}
		defer publisher.Close()
		invalidationPublisher = publisher

		consumer, err := messaging.NewCacheInvalidationConsumer(mqConn, resolver, cfg.InstanceID, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to create cache invalidation consumer", zap.Error(err))
		}
		if err := consumer.Start(rootCtx); err != nil {
			appLogger.Fatal("Failed to start cache invalidation consumer", zap.Error(err))
		}
		defer consumer.Stop()
	} else {
		appLogger.Info("RABBITMQ_URL not set, cross-replica cache invalidation disabled")
	}

	indexManager := service.NewPuzzleIndexManager(puzzleStore, resolver, invalidationPublisher, appLogger)
	evaluator := service.NewSimilarityEvaluator(embedder, judge, appLogger)
	tracker := service.NewGameSessionTracker(resolver, evaluator, sessionRepo, time.Now, appLogger)
	authoring := service.NewPuzzleAuthoringService(puzzleStore, indexManager, embedder, synonyms, time.Now, appLogger)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}
	handler.RegisterValidators()

	puzzleHandler := handler.NewPuzzleHandler(tracker, resolver, indexManager, authoring, handler.Options{
		DebugResetEnabled: cfg.DebugResetEnabled,
		AdminAPIEnabled:   cfg.AdminAPIEnabled,
		AdminPassword:     cfg.AdminPassword,
	}, appLogger)
	playerIdentity := sharedMiddleware.PlayerIdentity(sharedMiddleware.PlayerCookieConfig{
		Secure: cfg.CookieSecure,
	})
	router := newRouter(cfg.CORSAllowedOrigins, appLogger, func(r *gin.Engine) {
		puzzleHandler.RegisterRoutes(r, playerIdentity)
	})

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ProviderTimeout*time.Duration(cfg.ProviderMaxRetries) + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	appLogger.Info("Shutdown signal received, shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exiting")
}

func connectRabbitMQ(ctx context.Context, url string, logger *zap.Logger) (*amqp091.Connection, error) {
	var conn *amqp091.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp091.Dial(url)
		if err == nil {
			logger.Info("Connected to RabbitMQ", zap.Int("attempt", i+1))
			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, err
}
