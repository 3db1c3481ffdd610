package service

import (
	"context"
	"errors"
	"testing"

	"mapguess-server/shared/interfaces"
	"mapguess-server/shared/interfaces/mocks"
	"mapguess-server/shared/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("Идентичные векторы", func(t *testing.T) {
		v := []float64{0.3, -1.2, 4.5}
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
	})

	t.Run("Симметрия", func(t *testing.T) {
		a := []float64{1, 2, 3}
		b := []float64{-2, 0.5, 7}
		assert.InDelta(t, CosineSimilarity(a, b), CosineSimilarity(b, a), 1e-12)
	})

	t.Run("Нулевой и пустой вектор", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
		assert.Equal(t, 0.0, CosineSimilarity(nil, []float64{1}))
		assert.Equal(t, 0.0, CosineSimilarity([]float64{1}, []float64{}))
	})

	t.Run("Ортогональные и противоположные", func(t *testing.T) {
		assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-12)
		assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 1}, []float64{-1, -1}), 1e-12)
	})

	t.Run("Разная длина сравнивается по общему префиксу", func(t *testing.T) {
		assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 0}, []float64{1, 0, 5}), 1e-12)
	})
}

func TestNormalizeGuess(t *testing.T) {
	assert.Equal(t, "population density", NormalizeGuess("  Population DENSITY \n"))
	assert.Equal(t, "", NormalizeGuess("   "))
}

func TestScoreEmbedding_MaxOverVariants(t *testing.T) {
	p := embeddingPuzzle("p1", 5, 0.9)
	p.AnswerVariants = []models.AnswerVariant{
		{Text: "Population Density", Embedding: []float64{1, 0}},
		{Text: "people per km2", Embedding: []float64{0, 1}},
	}

	score := ScoreEmbedding([]float64{0.1, 1}, p)
	assert.Greater(t, score.Similarity, 0.99)
	assert.True(t, score.Correct)

	score = ScoreEmbedding(unitVector(0.5), &models.Puzzle{AnswerEmbedding: []float64{1, 0}, SimilarityThreshold: 0.5})
	assert.InDelta(t, 0.5, score.Similarity, 1e-9)
	assert.True(t, score.Correct, "порог включительный")
}

func TestSimilarityEvaluator(t *testing.T) {
	ctx := context.Background()

	t.Run("Режим embedding", func(t *testing.T) {
		embedder := new(mocks.Embedder)
		embedder.On("Embed", mock.Anything, "density").Return(unitVector(0.8), nil).Once()
		e := NewSimilarityEvaluator(embedder, nil, zap.NewNop())

		score, err := e.Evaluate(ctx, "density", embeddingPuzzle("p", 5, 0.9))
		require.NoError(t, err)
		assert.InDelta(t, 0.8, score.Similarity, 1e-9)
		assert.False(t, score.Correct)
		embedder.AssertExpectations(t)
	})

	t.Run("Ошибка эмбеддинга", func(t *testing.T) {
		embedder := new(mocks.Embedder)
		embedder.On("Embed", mock.Anything, "density").Return(nil, errors.New("timeout")).Once()
		e := NewSimilarityEvaluator(embedder, nil, zap.NewNop())

		_, err := e.Evaluate(ctx, "density", embeddingPuzzle("p", 5, 0.9))
		assert.ErrorIs(t, err, models.ErrEmbeddingFailed)
		assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
	})

	t.Run("Режим llm передает ответ и варианты в нижнем регистре", func(t *testing.T) {
		judge := new(mocks.Judge)
		p := &models.Puzzle{
			ID:             "p",
			Answer:         "Population Density",
			SimilarityMode: models.SimilarityModeLLM,
			AnswerVariants: []models.AnswerVariant{
				{Text: "Population Density"},
				{Text: "People Per Area"},
			},
		}
		judge.On("Judge", mock.Anything, "crowdedness", "population density", []string{"people per area"}).
			Return(interfaces.JudgeVerdict{Correct: true, Confidence: 1.7}, nil).Once()
		e := NewSimilarityEvaluator(new(mocks.Embedder), judge, zap.NewNop())

		score, err := e.Evaluate(ctx, "crowdedness", p)
		require.NoError(t, err)
		assert.True(t, score.Correct)
		assert.Equal(t, 1.0, score.Similarity, "уверенность ограничивается [0, 1]")
		judge.AssertExpectations(t)
	})

	t.Run("Ошибка судьи - неверный ответ без ошибки", func(t *testing.T) {
		judge := new(mocks.Judge)
		judge.On("Judge", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("malformed json")).Once()
		e := NewSimilarityEvaluator(new(mocks.Embedder), judge, zap.NewNop())

		score, err := e.Evaluate(ctx, "anything", &models.Puzzle{Answer: "x", SimilarityMode: models.SimilarityModeLLM})
		require.NoError(t, err)
		assert.Equal(t, Score{}, score)
	})

	t.Run("Судья не настроен", func(t *testing.T) {
		e := NewSimilarityEvaluator(new(mocks.Embedder), nil, zap.NewNop())
		score, err := e.Evaluate(ctx, "anything", &models.Puzzle{Answer: "x", SimilarityMode: models.SimilarityModeLLM})
		require.NoError(t, err)
		assert.False(t, score.Correct)
	})

	t.Run("Неизвестный режим", func(t *testing.T) {
		e := NewSimilarityEvaluator(new(mocks.Embedder), nil, zap.NewNop())
		_, err := e.Evaluate(ctx, "x", &models.Puzzle{SimilarityMode: "fuzzy"})
		assert.ErrorIs(t, err, models.ErrUnknownMode)
	})
}
