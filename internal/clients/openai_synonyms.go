package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"mapguess-server/shared/interfaces"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const synonymPromptTemplate = `Given this description of what a map shows: "%s"

Generate %d alternative ways someone might describe the same thing. Include a variety of:
- Formal and informal phrasings
- Short and detailed descriptions
- Technical and layman's terms
- Different word orders and sentence structures

The goal is to match how different people might describe the same map.

Return ONLY a JSON array of strings, nothing else. Example:
["phrase 1", "phrase 2", "phrase 3"]`

// SynonymRetryPolicy: три попытки с паузами 2s и 4s.
func SynonymRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 2 * time.Second,
		MaxInterval:     4 * time.Second,
		Multiplier:      2,
	}
}

var _ interfaces.SynonymGenerator = (*OpenAISynonymGenerator)(nil)

type OpenAISynonymGenerator struct {
	client *openai.Client
	model  string
	guard  *callGuard
	logger *zap.Logger
}

func NewOpenAISynonymGenerator(cfg OpenAIConfig, logger *zap.Logger) *OpenAISynonymGenerator {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	named := logger.Named("OpenAISynonymGenerator")
	return &OpenAISynonymGenerator{
		client: newOpenAIClient(cfg),
		model:  cfg.Model,
		guard:  newCallGuard("openai", cfg.Limits, named),
		logger: named,
	}
}

// GenerateSynonyms возвращает не более count формулировок.
func (g *OpenAISynonymGenerator) GenerateSynonyms(ctx context.Context, answer string, count int) ([]string, error) {
	prompt := fmt.Sprintf(synonymPromptTemplate, answer, count)

	var resp openai.ChatCompletionResponse
	err := g.guard.call(ctx, "synonyms", func(ctx context.Context) error {
		var err error
		resp, err = g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       g.model,
			Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
			Temperature: 0.7,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("synonym request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("synonym request returned no choices")
	}
	llmPromptTokens.WithLabelValues(g.model, "synonyms").Observe(float64(resp.Usage.PromptTokens))
	llmCompletionTokens.WithLabelValues(g.model, "synonyms").Observe(float64(resp.Usage.CompletionTokens))

	var raw []any
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Choices[0].Message.Content)), &raw); err != nil {
		return nil, fmt.Errorf("synonym reply is not a JSON array: %w", err)
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if len(out) == count {
			break
		}
		s := strings.TrimSpace(fmt.Sprint(item))
		if s != "" {
			out = append(out, s)
		}
	}
	g.logger.Debug("Synonyms generated", zap.String("answer", answer), zap.Int("count", len(out)))
	return out, nil
}
