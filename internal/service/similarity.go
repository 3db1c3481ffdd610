package service

import (
	"context"
	"fmt"
	"mapguess-server/shared/interfaces"
	"mapguess-server/shared/models"
	"math"
	"strings"

	"go.uber.org/zap"
)

// minNormProduct - ниже этого знаменателя косинус считается нулевым.
const minNormProduct = 1e-9

// Score - результат оценки догадки.
type Score struct {
	Similarity float64
	Correct    bool
}

// NormalizeGuess приводит текст к виду, в котором он сравнивается и эмбеддится.
func NormalizeGuess(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// CosineSimilarity считается по общему префиксу min(len(a), len(b)).
// Для пустого вектора или почти нулевой нормы возвращает 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denominator := math.Sqrt(normA) * math.Sqrt(normB)
	if denominator < minNormProduct {
		return 0
	}
	return dot / denominator
}

// ScoreEmbedding берет максимум косинуса по канонической формулировке и всем вариантам.
func ScoreEmbedding(guessEmbedding []float64, puzzle *models.Puzzle) Score {
	best := CosineSimilarity(guessEmbedding, puzzle.AnswerEmbedding)
	for _, v := range puzzle.AnswerVariants {
		if sim := CosineSimilarity(guessEmbedding, v.Embedding); sim > best {
			best = sim
		}
	}
	return Score{Similarity: best, Correct: best >= puzzle.SimilarityThreshold}
}

// SimilarityEvaluator выбирает стратегию оценки по режиму пазла.
type SimilarityEvaluator struct {
	embedder interfaces.Embedder
	judge    interfaces.Judge
	logger   *zap.Logger
}

// NewSimilarityEvaluator. judge может быть nil: тогда пазлы в режиме llm всегда оцениваются как неверные.
func NewSimilarityEvaluator(embedder interfaces.Embedder, judge interfaces.Judge, logger *zap.Logger) *SimilarityEvaluator {
	return &SimilarityEvaluator{
		embedder: embedder,
		judge:    judge,
		logger:   logger.Named("SimilarityEvaluator"),
	}
}

// Evaluate оценивает уже нормализованную догадку.
// Ошибка эмбеддинга возвращается как models.ErrEmbeddingFailed; ошибка судьи не возвращается.
func (e *SimilarityEvaluator) Evaluate(ctx context.Context, guess string, puzzle *models.Puzzle) (Score, error) {
	switch puzzle.SimilarityMode {
	case models.SimilarityModeLLM:
		return e.judgeGuess(ctx, guess, puzzle), nil
	case models.SimilarityModeEmbedding, "":
		embedding, err := e.embedder.Embed(ctx, guess)
		if err != nil {
			providerFailuresTotal.WithLabelValues("guess_embedding").Inc()
			e.logger.Error("Failed to embed guess",
				zap.String("puzzleID", puzzle.ID),
				zap.Error(err),
			)
			return Score{}, fmt.Errorf("%w: %v", models.ErrEmbeddingFailed, err)
		}
		return ScoreEmbedding(embedding, puzzle), nil
	default:
		return Score{}, fmt.Errorf("%w: %q", models.ErrUnknownMode, puzzle.SimilarityMode)
	}
}

// judgeGuess закрывается в (false, 0) при любой ошибке судьи.
func (e *SimilarityEvaluator) judgeGuess(ctx context.Context, guess string, puzzle *models.Puzzle) Score {
	if e.judge == nil {
		e.logger.Warn("LLM judge is not configured, scoring guess as incorrect", zap.String("puzzleID", puzzle.ID))
		providerFailuresTotal.WithLabelValues("judge").Inc()
		return Score{}
	}

	variants := puzzle.VariantTexts()
	for i := range variants {
		variants[i] = strings.ToLower(variants[i])
	}

	verdict, err := e.judge.Judge(ctx, guess, strings.ToLower(puzzle.Answer), variants)
	if err != nil {
		providerFailuresTotal.WithLabelValues("judge").Inc()
		e.logger.Warn("LLM judge failed, scoring guess as incorrect",
			zap.String("puzzleID", puzzle.ID),
			zap.Error(err),
		)
		return Score{}
	}

	confidence := math.Max(0, math.Min(1, verdict.Confidence))
	return Score{Similarity: confidence, Correct: verdict.Correct}
}
