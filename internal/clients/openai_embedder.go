package clients

import (
	"context"
	"fmt"
	"mapguess-server/shared/interfaces"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const DefaultOpenAIEmbeddingModel = string(openai.SmallEmbedding3)

// OpenAIConfig - параметры OpenAI-совместимого API.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Limits  Limits
}

func newOpenAIClient(cfg OpenAIConfig) *openai.Client {
	openaiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	openaiConfig.HTTPClient = &http.Client{}
	return openai.NewClientWithConfig(openaiConfig)
}

var _ interfaces.Embedder = (*OpenAIEmbedder)(nil)

// OpenAIEmbedder получает эмбеддинги через /v1/embeddings.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	guard  *callGuard
	logger *zap.Logger
}

func NewOpenAIEmbedder(cfg OpenAIConfig, logger *zap.Logger) *OpenAIEmbedder {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIEmbeddingModel
	}
	named := logger.Named("OpenAIEmbedder")
	return &OpenAIEmbedder{
		client: newOpenAIClient(cfg),
		model:  cfg.Model,
		guard:  newCallGuard("openai", cfg.Limits, named),
		logger: named,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch отправляет все тексты одним запросом.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	var resp openai.EmbeddingResponse
	err := e.guard.call(ctx, "embed", func(ctx context.Context) error {
		var err error
		resp, err = e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(e.model),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("openai returned embedding with index %d out of range", item.Index)
		}
		out[item.Index] = toFloat64(item.Embedding)
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("openai response is missing embedding %d", i)
		}
	}

	e.logger.Debug("Embeddings received",
		zap.Int("inputs", len(texts)),
		zap.Int("promptTokens", resp.Usage.PromptTokens),
	)
	return out, nil
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
