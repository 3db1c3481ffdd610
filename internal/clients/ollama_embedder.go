package clients

import (
	"context"
	"fmt"
	"mapguess-server/shared/interfaces"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

const DefaultOllamaEmbeddingModel = "nomic-embed-text"

// OllamaConfig - параметры локального Ollama.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Limits  Limits
}

var _ interfaces.Embedder = (*OllamaEmbedder)(nil)

// OllamaEmbedder получает эмбеддинги через /api/embed.
type OllamaEmbedder struct {
	client *api.Client
	model  string
	guard  *callGuard
	logger *zap.Logger
}

func NewOllamaEmbedder(cfg OllamaConfig, logger *zap.Logger) (*OllamaEmbedder, error) {
	// api.NewClient ожидает URL без суффикса /v1
	baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1")
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", cfg.BaseURL, err)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaEmbeddingModel
	}
	named := logger.Named("OllamaEmbedder")
	return &OllamaEmbedder{
		client: api.NewClient(parsedURL, &http.Client{}),
		model:  cfg.Model,
		guard:  newCallGuard("ollama", cfg.Limits, named),
		logger: named,
	}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	var resp *api.EmbedResponse
	err := e.guard.call(ctx, "embed", func(ctx context.Context) error {
		var err error
		resp, err = e.client.Embed(ctx, &api.EmbedRequest{Model: e.model, Input: texts})
		if statusErr, ok := err.(api.StatusError); ok {
			return &StatusError{StatusCode: statusErr.StatusCode, Message: statusErr.ErrorMessage}
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed request failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float64, len(resp.Embeddings))
	for i, v := range resp.Embeddings {
		out[i] = toFloat64(v)
	}
	return out, nil
}
