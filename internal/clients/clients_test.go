package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Multiplier: 2}
}

func openAIConfig(url string) OpenAIConfig {
	return OpenAIConfig{APIKey: "test-key", BaseURL: url + "/v1", Limits: Limits{Retry: fastRetry()}}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func chatReply(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
		"usage":   map[string]any{"prompt_tokens": 120, "completion_tokens": 20, "total_tokens": 140},
	}
}

func TestRetryPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("Повторяет 429 и останавливается на успехе", func(t *testing.T) {
		var calls int
		err := fastRetry().Do(ctx, func() error {
			calls++
			if calls < 3 {
				return &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}
			}
			return nil
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("Не повторяет 400", func(t *testing.T) {
		var calls int
		err := fastRetry().Do(ctx, func() error {
			calls++
			return &openai.APIError{HTTPStatusCode: http.StatusBadRequest, Message: "bad"}
		}, nil)
		var apiErr *openai.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 1, calls)
	})

	t.Run("Число попыток ограничено", func(t *testing.T) {
		var calls int
		err := fastRetry().Do(ctx, func() error {
			calls++
			return &StatusError{StatusCode: http.StatusServiceUnavailable}
		}, nil)
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("Классификация", func(t *testing.T) {
		assert.True(t, IsRetryable(&openai.RequestError{HTTPStatusCode: 502}))
		assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
		assert.False(t, IsRetryable(context.Canceled))
		assert.False(t, IsRetryable(errors.New("plain")))
		assert.False(t, IsRetryable(nil))
	})
}

func TestOpenAIEmbedder(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": map[string]any{"message": "slow down", "type": "rate_limit"}})
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultOpenAIEmbeddingModel, req.Model)
		assert.Equal(t, []string{"rainfall", "precipitation"}, req.Input)
		// Порядок в ответе не совпадает с порядком входа
		writeJSON(w, http.StatusOK, map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 1, "embedding": []float32{0, 1}},
				{"object": "embedding", "index": 0, "embedding": []float32{1, 0}},
			},
			"usage": map[string]any{"prompt_tokens": 3, "total_tokens": 3},
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(openAIConfig(srv.URL), zap.NewNop())
	vectors, err := e.EmbedBatch(context.Background(), []string{"rainfall", "precipitation"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, vectors)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIEmbedder_PermanentFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"message": "bad key"}})
	}))
	defer srv.Close()

	_, err := NewOpenAIEmbedder(openAIConfig(srv.URL), zap.NewNop()).Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIJudge(t *testing.T) {
	replies := []string{
		`{"correct": true, "confidence": 0.92, "reasoning": "same statistic"}`,
		"```json\n{\"correct\": false, \"confidence\": 0.2, \"reasoning\": \"different scope\"}\n```",
		`I think it's right`,
	}
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, `Player's guess: "people per km2"`)
		assert.Contains(t, req.Messages[1].Content, `- "population density"`)
		require.NotNil(t, req.ResponseFormat)
		writeJSON(w, http.StatusOK, chatReply(replies[n.Add(1)-1]))
	}))
	defer srv.Close()

	j := NewOpenAIJudge(openAIConfig(srv.URL), zap.NewNop())
	ctx := context.Background()
	variants := []string{"population density"}

	v, err := j.Judge(ctx, "people per km2", "persons per square kilometre", variants)
	require.NoError(t, err)
	assert.True(t, v.Correct)
	assert.InDelta(t, 0.92, v.Confidence, 1e-9)

	v, err = j.Judge(ctx, "people per km2", "persons per square kilometre", variants)
	require.NoError(t, err)
	assert.False(t, v.Correct)

	_, err = j.Judge(ctx, "people per km2", "persons per square kilometre", variants)
	assert.Error(t, err, "неразборчивый ответ - ошибка, fail-closed делает вызывающий")
}

func TestOpenAISynonymGenerator(t *testing.T) {
	reply := `["rain totals", "precipitation", "", "annual rainfall", "wetness"]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, openai.GPT4oMini, req.Model)
		assert.InDelta(t, 0.7, req.Temperature, 1e-6)
		assert.Contains(t, req.Messages[0].Content, `"Rainfall"`)
		assert.Contains(t, req.Messages[0].Content, "Generate 3 alternative")
		writeJSON(w, http.StatusOK, chatReply(reply))
	}))
	defer srv.Close()

	g := NewOpenAISynonymGenerator(openAIConfig(srv.URL), zap.NewNop())
	syns, err := g.GenerateSynonyms(context.Background(), "Rainfall", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"rain totals", "precipitation", "annual rainfall"}, syns)

	reply = "not json"
	_, err = g.GenerateSynonyms(context.Background(), "Rainfall", 3)
	assert.Error(t, err)
}

func TestOllamaEmbedder(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		if fail.Load() {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "model not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"model":      DefaultOllamaEmbeddingModel,
			"embeddings": [][]float32{{0.5, 0.5}, {1, 0}},
		})
	}))
	defer srv.Close()

	e, err := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL + "/v1", Limits: Limits{Retry: fastRetry()}}, zap.NewNop())
	require.NoError(t, err)

	vectors, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, 0.5}, {1, 0}}, vectors)

	fail.Store(true)
	_, err = e.Embed(context.Background(), "a")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `["a"]`, stripCodeFence("```json\n[\"a\"]\n```"))
	assert.Equal(t, `{"x":1}`, stripCodeFence(` {"x":1} `))
}
