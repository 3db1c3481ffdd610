package config

import (
	"testing"
	"time"

	"mapguess-server/shared/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	prev := utils.SecretsDir
	utils.SecretsDir = t.TempDir()
	t.Cleanup(func() { utils.SecretsDir = prev })

	t.Setenv("BLOB_BACKEND", "Redis")
	t.Setenv("PUZZLE_CACHE_TTL", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DEBUG_RESET_ENABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BlobBackendRedis, cfg.BlobBackend)
	assert.Equal(t, 90*time.Second, cfg.PuzzleCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.True(t, cfg.DebugResetEnabled)
	assert.False(t, cfg.AdminAPIEnabled)
	assert.Equal(t, "8000", cfg.Port)
	assert.NotEmpty(t, cfg.InstanceID)
}

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		return Config{
			BlobBackend:        BlobBackendMemory,
			EmbeddingProvider:  EmbeddingProviderOpenAI,
			PuzzleCacheTTL:     time.Minute,
			ProviderMaxRetries: 3,
		}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.BlobBackend = "s3"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.BlobBackend = BlobBackendGCS
	assert.Error(t, cfg.Validate(), "для gcs нужен бакет")

	cfg = base()
	cfg.EmbeddingProvider = "cohere"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.ProviderMaxRetries = 0
	assert.Error(t, cfg.Validate())
}
