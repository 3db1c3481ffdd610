package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mapguess-server/shared/utils"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Бэкенды блоб-хранилища.
const (
	BlobBackendMemory = "memory"
	BlobBackendRedis  = "redis"
	BlobBackendGCS    = "gcs"
)

// Провайдеры эмбеддингов.
const (
	EmbeddingProviderOpenAI = "openai"
	EmbeddingProviderOllama = "ollama"
)

// Config содержит конфигурацию сервера mapguess
type Config struct {
	// Настройки сервера
	Port               string        `envconfig:"PORT" default:"8000"`
	Env                string        `envconfig:"ENV" default:"development"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding        string        `envconfig:"LOG_ENCODING" default:"json"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	CookieSecure       bool          `envconfig:"COOKIE_SECURE" default:"true"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	DebugResetEnabled  bool          `envconfig:"DEBUG_RESET_ENABLED" default:"false"`
	AdminAPIEnabled    bool          `envconfig:"ADMIN_API_ENABLED" default:"false"`

	// Хранилище пазлов
	BlobBackend        string        `envconfig:"BLOB_BACKEND" default:"memory"`
	PuzzlePrefix       string        `envconfig:"PUZZLE_PREFIX" default:"puzzles/"`
	PuzzleCacheTTL     time.Duration `envconfig:"PUZZLE_CACHE_TTL" default:"5m"`
	RedisURL           string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	RedisKeyPrefix     string        `envconfig:"REDIS_KEY_PREFIX" default:"mapguess:"`
	GCSBucket          string        `envconfig:"GCS_BUCKET"`
	GCSCredentialsFile string        `envconfig:"GCS_CREDENTIALS_FILE"`

	// PostgreSQL. Пустой DATABASE_URL - сессии в памяти процесса
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_TIME" default:"5m"`
	DBMaxRetries  int           `envconfig:"DB_CONNECT_RETRIES" default:"10"`

	// RabbitMQ. Пусто - межрепличная инвалидация кэша отключена
	RabbitMQURL string `envconfig:"RABBITMQ_URL"`
	InstanceID  string `envconfig:"INSTANCE_ID"`

	// Провайдеры
	EmbeddingProvider  string        `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	EmbeddingModel     string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	OpenAIBaseURL      string        `envconfig:"OPENAI_BASE_URL"`
	OllamaURL          string        `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	JudgeModel         string        `envconfig:"JUDGE_MODEL" default:"gpt-4o-mini"`
	SynonymModel       string        `envconfig:"SYNONYM_MODEL" default:"gpt-4o-mini"`
	ProviderTimeout    time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s"`
	ProviderMaxRetries int           `envconfig:"PROVIDER_MAX_RETRIES" default:"3"`
	ProviderRPS        float64       `envconfig:"PROVIDER_RPS" default:"0"`

	// Секретные поля БЕЗ envconfig тега
	DatabaseURL   string
	OpenAIAPIKey  string
	AdminPassword string
}

// LoadConfig загружает .env (если есть), переменные окружения и секреты.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	var err error
	if cfg.DatabaseURL, err = optionalSecret("database_url", "DATABASE_URL"); err != nil {
		return nil, err
	}
	if cfg.OpenAIAPIKey, err = optionalSecret("openai_api_key", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.AdminPassword, err = optionalSecret("admin_password", "ADMIN_PASSWORD"); err != nil {
		return nil, err
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func optionalSecret(name, envKey string) (string, error) {
	v, err := utils.ReadSecretOrEnv(name, envKey)
	if errors.Is(err, utils.ErrSecretNotFound) {
		return "", nil
	}
	return v, err
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	c.BlobBackend = strings.ToLower(strings.TrimSpace(c.BlobBackend))
	switch c.BlobBackend {
	case BlobBackendMemory, BlobBackendRedis:
	case BlobBackendGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required for blob backend %q", c.BlobBackend)
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}

	c.EmbeddingProvider = strings.ToLower(strings.TrimSpace(c.EmbeddingProvider))
	switch c.EmbeddingProvider {
	case EmbeddingProviderOpenAI, EmbeddingProviderOllama:
	default:
		return fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider)
	}

	if c.PuzzleCacheTTL <= 0 {
		return fmt.Errorf("PUZZLE_CACHE_TTL must be positive")
	}
	if c.ProviderMaxRetries < 1 {
		return fmt.Errorf("PROVIDER_MAX_RETRIES must be at least 1")
	}
	return nil
}

// LogFields - сводка конфигурации без секретов.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("port", c.Port),
		zap.String("env", c.Env),
		zap.String("blobBackend", c.BlobBackend),
		zap.String("puzzlePrefix", c.PuzzlePrefix),
		zap.Duration("puzzleCacheTTL", c.PuzzleCacheTTL),
		zap.Bool("postgres", c.DatabaseURL != ""),
		zap.Bool("rabbitmq", c.RabbitMQURL != ""),
		zap.String("instanceID", c.InstanceID),
		zap.String("embeddingProvider", c.EmbeddingProvider),
		zap.String("embeddingModel", c.EmbeddingModel),
		zap.String("judgeModel", c.JudgeModel),
		zap.Bool("openAIKeyLoaded", c.OpenAIAPIKey != ""),
		zap.Bool("adminAPI", c.AdminAPIEnabled),
		zap.Bool("adminPasswordSet", c.AdminPassword != ""),
		zap.Bool("debugReset", c.DebugResetEnabled),
	}
}
