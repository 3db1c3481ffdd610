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

func newAuthoring(env *testEnv, synonyms ...interfaces.SynonymGenerator) *PuzzleAuthoringService {
	var gen interfaces.SynonymGenerator
	if len(synonyms) > 0 {
		gen = synonyms[0]
	}
	return NewPuzzleAuthoringService(env.store, env.index, env.embedder, gen, env.clock.Now, zap.NewNop())
}

func TestPuzzleAuthoringService_CreatePuzzle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newAuthoring(env)

	env.embedder.On("EmbedBatch", mock.Anything, []string{"coffee consumption", "coffee drinking"}).
		Return([][]float64{{1, 0}, {0.9, 0.1}}, nil).Once()

	p, err := svc.CreatePuzzle(ctx, CreatePuzzleInput{
		ImageURL: "https://cdn.example.com/coffee.png",
		Answer:   " Coffee Consumption ",
		Hints:    []string{"Morning", " ", "Beans"},
		Synonyms: []string{"Coffee drinking", "coffee consumption", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01", p.ID, "id по умолчанию - сегодняшняя дата")
	assert.Equal(t, "Coffee Consumption", p.Answer)
	assert.Equal(t, AuthoringDefaultMaxGuesses, p.MaxGuesses)
	assert.Equal(t, AuthoringDefaultThreshold, p.SimilarityThreshold)
	assert.Equal(t, models.SimilarityModeEmbedding, p.SimilarityMode)
	assert.Equal(t, []string{"Morning", "Beans"}, p.Hints)
	require.Len(t, p.AnswerVariants, 2)
	assert.Equal(t, "Coffee Consumption", p.AnswerVariants[0].Text)
	assert.Equal(t, []float64{1, 0}, p.AnswerEmbedding)
	assert.Equal(t, "2024-03-01T09:30:00Z", p.CreatedAt)

	stored, err := env.store.GetPuzzle(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.AnswerVariants, stored.AnswerVariants)

	idx, err := env.index.ListAll(ctx)
	require.NoError(t, err)
	_, ok := idx.Entry(p.ID)
	assert.True(t, ok)
	env.embedder.AssertExpectations(t)
}

func TestPuzzleAuthoringService_BatchFallback(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newAuthoring(env)

	env.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(nil, errors.New("batch too large")).Once()
	env.embedder.On("Embed", mock.Anything, "rainfall").Return([]float64{0, 1}, nil).Once()

	p, err := svc.CreatePuzzle(ctx, CreatePuzzleInput{
		ID:             "rain",
		ImageURL:       "x.png",
		Answer:         "Rainfall",
		Synonyms:       []string{"precipitation"},
		SimilarityMode: "llm",
		ScheduledDate:  strPtr("2024-03-10"),
	})
	require.NoError(t, err)
	require.Len(t, p.AnswerVariants, 1)
	assert.Equal(t, models.SimilarityModeLLM, p.SimilarityMode)

	month, err := env.index.PuzzlesForMonth(ctx, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, "rain", month["2024-03-10"].ID)
}

func TestPuzzleAuthoringService_EmbeddingUnavailable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newAuthoring(env)

	env.embedder.On("EmbedBatch", mock.Anything, mock.Anything).Return(nil, errors.New("down")).Once()
	env.embedder.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("down")).Once()

	_, err := svc.CreatePuzzle(ctx, CreatePuzzleInput{ID: "x", ImageURL: "x.png", Answer: "X"})
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)

	_, err = env.store.GetPuzzle(ctx, "x")
	assert.ErrorIs(t, err, models.ErrNotFound, "пазл не сохраняется")
}

func TestPuzzleAuthoringService_Validation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newAuthoring(env)

	cases := map[string]CreatePuzzleInput{
		"Пустой ответ":          {ImageURL: "x.png", Answer: "  "},
		"Нет картинки":          {Answer: "x"},
		"Служебный id":          {ID: "index", ImageURL: "x.png", Answer: "x"},
		"Отрицательный лимит":   {ImageURL: "x.png", Answer: "x", MaxGuesses: -1},
		"Порог больше единицы":  {ImageURL: "x.png", Answer: "x", SimilarityThreshold: 1.5},
		"Неизвестный режим":     {ImageURL: "x.png", Answer: "x", SimilarityMode: "fuzzy"},
		"Некорректная дата":     {ImageURL: "x.png", Answer: "x", ScheduledDate: strPtr("tomorrow")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreatePuzzle(ctx, in)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
	env.embedder.AssertNotCalled(t, "EmbedBatch", mock.Anything, mock.Anything)
}

func TestPuzzleAuthoringService_GenerateSynonyms(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	gen := new(mocks.SynonymGenerator)
	gen.On("GenerateSynonyms", mock.Anything, "Rainfall", 2).Return([]string{"rain", " ", "precipitation", "showers"}, nil).Once()
	gen.On("GenerateSynonyms", mock.Anything, "Snow", DefaultSynonymCount).Return(nil, errors.New("429")).Once()
	svc := newAuthoring(env, gen)

	syns, err := svc.GenerateSynonyms(ctx, "Rainfall", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"rain", "precipitation"}, syns)

	syns, err = svc.GenerateSynonyms(ctx, "Snow", 0)
	require.NoError(t, err)
	assert.Empty(t, syns)

	_, err = svc.GenerateSynonyms(ctx, "", 3)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	gen.AssertExpectations(t)
}
