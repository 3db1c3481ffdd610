// Package bootstrap собирает инфраструктурные зависимости по конфигурации.
// Используется сервером и утилитой puzzlectl.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"mapguess-server/internal/clients"
	"mapguess-server/internal/config"
	"mapguess-server/internal/database"
	"mapguess-server/internal/storage"
	sharedDatabase "mapguess-server/shared/database"
	"mapguess-server/shared/interfaces"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BlobStore создает бэкенд хранилища пазлов по BLOB_BACKEND.
func BlobStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (interfaces.BlobStore, func(), error) {
	switch cfg.BlobBackend {
	case config.BlobBackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping failed: %w", err)
		}
		logger.Info("Connected to Redis blob store", zap.String("keyPrefix", cfg.RedisKeyPrefix))
		return storage.NewRedisBlobStore(client, cfg.RedisKeyPrefix, logger), func() { _ = client.Close() }, nil
	case config.BlobBackendGCS:
		store, err := storage.NewGCSBlobStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using GCS blob store", zap.String("bucket", cfg.GCSBucket))
		return store, func() { _ = store.Close() }, nil
	default:
		logger.Warn("Using in-memory blob store, puzzles will not survive a restart")
		return storage.NewMemoryBlobStore(), func() {}, nil
	}
}

// SessionRepository подключает PostgreSQL и применяет миграции.
// Без DATABASE_URL сессии хранятся в памяти процесса.
func SessionRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (interfaces.GameSessionRepository, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, game sessions are kept in memory")
		return sharedDatabase.NewMemoryGameSessionRepository(), func() {}, nil
	}

	pool, err := Postgres(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := database.ApplyMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return sharedDatabase.NewPgGameSessionRepository(pool, logger), pool.Close, nil
}

// Postgres подключается к DATABASE_URL с повторами.
func Postgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	return database.Connect(ctx, database.Options{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MaxConnIdleTime: cfg.DBIdleTimeout,
		MaxRetries:      cfg.DBMaxRetries,
	}, logger)
}

// Providers создает эмбеддер, LLM-судью и генератор синонимов.
// Судья и синонимы требуют ключ OpenAI; без него они отключены.
func Providers(cfg *config.Config, logger *zap.Logger) (interfaces.Embedder, interfaces.Judge, interfaces.SynonymGenerator, error) {
	limits := clients.Limits{
		Retry: clients.RetryPolicy{
			MaxAttempts:     cfg.ProviderMaxRetries,
			InitialInterval: clients.DefaultRetryPolicy().InitialInterval,
			MaxInterval:     clients.DefaultRetryPolicy().MaxInterval,
			Multiplier:      clients.DefaultRetryPolicy().Multiplier,
		},
		RequestsPerSecond: cfg.ProviderRPS,
		Burst:             int(cfg.ProviderRPS) + 1,
		Timeout:           cfg.ProviderTimeout,
	}

	var embedder interfaces.Embedder
	switch cfg.EmbeddingProvider {
	case config.EmbeddingProviderOllama:
		ollama, err := clients.NewOllamaEmbedder(clients.OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.EmbeddingModel,
			Limits:  limits,
		}, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		embedder = ollama
	default:
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("OPENAI_API_KEY not set, embedding requests will fail")
		}
		embedder = clients.NewOpenAIEmbedder(clients.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.EmbeddingModel,
			Limits:  limits,
		}, logger)
	}

	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, LLM judge and synonym generation disabled")
		return embedder, nil, nil, nil
	}

	judge := clients.NewOpenAIJudge(clients.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.JudgeModel,
		Limits:  limits,
	}, logger)

	synonymLimits := limits
	synonymLimits.Retry = clients.SynonymRetryPolicy()
	synonyms := clients.NewOpenAISynonymGenerator(clients.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.SynonymModel,
		Limits:  synonymLimits,
	}, logger)

	return embedder, judge, synonyms, nil
}
