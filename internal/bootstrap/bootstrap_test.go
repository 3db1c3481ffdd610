package bootstrap

import (
	"context"
	"testing"
	"time"

	"mapguess-server/internal/clients"
	"mapguess-server/internal/config"
	"mapguess-server/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func baseConfig() *config.Config {
	return &config.Config{
		BlobBackend:        config.BlobBackendMemory,
		EmbeddingProvider:  config.EmbeddingProviderOpenAI,
		OllamaURL:          "http://localhost:11434",
		ProviderTimeout:    time.Second,
		ProviderMaxRetries: 2,
	}
}

func TestBlobStoreMemory(t *testing.T) {
	store, closeFn, err := BlobStore(context.Background(), baseConfig(), zap.NewNop())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &storage.MemoryBlobStore{}, store)
}

func TestBlobStoreRedisInvalidURL(t *testing.T) {
	cfg := baseConfig()
	cfg.BlobBackend = config.BlobBackendRedis
	cfg.RedisURL = "not a url"
	_, _, err := BlobStore(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestSessionRepositoryWithoutDatabase(t *testing.T) {
	repo, closeFn, err := SessionRepository(context.Background(), baseConfig(), zap.NewNop())
	require.NoError(t, err)
	defer closeFn()
	require.NotNil(t, repo)
}

func TestPostgresRequiresURL(t *testing.T) {
	_, err := Postgres(context.Background(), baseConfig(), zap.NewNop())
	require.Error(t, err)
}

func TestProviders(t *testing.T) {
	t.Run("Без ключа OpenAI судья и синонимы отключены", func(t *testing.T) {
		embedder, judge, synonyms, err := Providers(baseConfig(), zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &clients.OpenAIEmbedder{}, embedder)
		assert.Nil(t, judge)
		assert.Nil(t, synonyms)
	})

	t.Run("С ключом доступны все провайдеры", func(t *testing.T) {
		cfg := baseConfig()
		cfg.OpenAIAPIKey = "sk-test"
		_, judge, synonyms, err := Providers(cfg, zap.NewNop())
		require.NoError(t, err)
		assert.NotNil(t, judge)
		assert.NotNil(t, synonyms)
	})

	t.Run("Ollama", func(t *testing.T) {
		cfg := baseConfig()
		cfg.EmbeddingProvider = config.EmbeddingProviderOllama
		embedder, _, _, err := Providers(cfg, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &clients.OllamaEmbedder{}, embedder)
	})
}
