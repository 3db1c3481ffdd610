package service

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"mapguess-server/internal/storage"
	"mapguess-server/shared/database"
	"mapguess-server/shared/interfaces"
	"mapguess-server/shared/interfaces/mocks"
	"mapguess-server/shared/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPrefix = "puzzles/"

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(t time.Time) *fixedClock { return &fixedClock{now: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// unitVector возвращает вектор, косинус которого с [1, 0] равен sim.
func unitVector(sim float64) []float64 {
	return []float64{sim, math.Sqrt(1 - sim*sim)}
}

type testEnv struct {
	blobs    interfaces.BlobStore
	store    *PuzzleStore
	resolver *PuzzleResolver
	index    *PuzzleIndexManager
	repo     interfaces.GameSessionRepository
	embedder *mocks.Embedder
	judge    *mocks.Judge
	tracker  *GameSessionTracker
	clock    *fixedClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	clock := newFixedClock(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))

	blobs := storage.NewMemoryBlobStore()
	store := NewPuzzleStore(blobs, testPrefix)
	resolver := NewPuzzleResolver(store, time.Minute, clock.Now, logger)
	index := NewPuzzleIndexManager(store, resolver, nil, logger)
	repo := database.NewMemoryGameSessionRepository()
	embedder := new(mocks.Embedder)
	judge := new(mocks.Judge)
	evaluator := NewSimilarityEvaluator(embedder, judge, logger)

	return &testEnv{
		blobs:    blobs,
		store:    store,
		resolver: resolver,
		index:    index,
		repo:     repo,
		embedder: embedder,
		judge:    judge,
		tracker:  NewGameSessionTracker(resolver, evaluator, repo, clock.Now, logger),
		clock:    clock,
	}
}

func (e *testEnv) savePuzzle(t *testing.T, p *models.Puzzle) {
	t.Helper()
	require.NoError(t, e.store.SavePuzzle(context.Background(), p))
}

func embeddingPuzzle(id string, maxGuesses int, threshold float64, hints ...string) *models.Puzzle {
	return &models.Puzzle{
		ID:                  id,
		ImageURL:            "https://cdn.example.com/" + id + ".png",
		Answer:              "Population Density",
		MaxGuesses:          maxGuesses,
		SimilarityThreshold: threshold,
		SimilarityMode:      models.SimilarityModeEmbedding,
		AnswerEmbedding:     []float64{1, 0},
		Hints:               hints,
		SourceURL:           "https://example.com/source",
	}
}

func strPtr(s string) *string { return &s }
