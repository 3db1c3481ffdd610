package service

import (
	"context"
	"errors"
	"fmt"
	"mapguess-server/internal/cache"
	"mapguess-server/shared/interfaces"
	"mapguess-server/shared/models"
	"time"

	"go.uber.org/zap"
)

const (
	msgAlreadySolved = "Already solved!"
	msgNoGuessesLeft = "No guesses remaining"
	msgCorrect       = "Correct! You got it!"
	msgKeepTrying    = "Keep trying!"
	msgOutOfGuesses  = "Out of guesses"
)

// PuzzleSource отдает пазл по логической ссылке.
type PuzzleSource interface {
	Resolve(ctx context.Context, ref string) (*models.Puzzle, error)
	ResolveID(ctx context.Context, ref string) string
}

// GuessScorer оценивает нормализованную догадку.
type GuessScorer interface {
	Evaluate(ctx context.Context, guess string, puzzle *models.Puzzle) (Score, error)
}

// GameSessionTracker - автомат состояний игрока по пазлу:
// Unstarted -> InProgress -> Solved | Exhausted. Подсказка стоит одну попытку.
type GameSessionTracker struct {
	puzzles PuzzleSource
	scorer  GuessScorer
	repo    interfaces.GameSessionRepository
	now     cache.Clock
	logger  *zap.Logger
}

func NewGameSessionTracker(
	puzzles PuzzleSource,
	scorer GuessScorer,
	repo interfaces.GameSessionRepository,
	clock cache.Clock,
	logger *zap.Logger,
) *GameSessionTracker {
	if clock == nil {
		clock = time.Now
	}
	return &GameSessionTracker{
		puzzles: puzzles,
		scorer:  scorer,
		repo:    repo,
		now:     clock,
		logger:  logger.Named("GameSessionTracker"),
	}
}

// loadState возвращает nil, если игрок еще не начинал пазл.
func (t *GameSessionTracker) loadState(ctx context.Context, playerID, puzzleID string) (*models.GameState, error) {
	state, err := t.repo.GetState(ctx, playerID, puzzleID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load game state: %w", err)
	}
	return state, nil
}

// SubmitGuess оценивает догадку и записывает попытку.
// Для завершенной сессии возвращает терминальный ответ без новой попытки.
func (t *GameSessionTracker) SubmitGuess(ctx context.Context, playerID, ref, text string) (*models.GuessResponse, error) {
	guess := NormalizeGuess(text)
	if guess == "" {
		return nil, models.ErrEmptyGuess
	}

	puzzle, err := t.puzzles.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	state, err := t.loadState(ctx, playerID, puzzle.ID)
	if err != nil {
		return nil, err
	}
	if state.Status(puzzle.MaxGuesses).IsTerminal() {
		return t.terminalGuessResponse(puzzle, state), nil
	}

	// Оценка идет вне блокировки: вызов провайдера может быть долгим.
	score, err := t.scorer.Evaluate(ctx, guess, puzzle)
	if err != nil {
		return nil, err
	}

	updated, attempt, err := t.repo.UpdateSession(ctx, playerID, puzzle.ID, func(current *models.GameState) (*models.Attempt, error) {
		if current.Status(puzzle.MaxGuesses).IsTerminal() {
			return nil, nil
		}
		return &models.Attempt{
			PlayerID:   playerID,
			PuzzleID:   puzzle.ID,
			GuessText:  guess,
			Similarity: score.Similarity,
			IsCorrect:  score.Correct,
			CreatedAt:  t.now().UTC(),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record guess: %w", err)
	}
	if attempt == nil {
		// Параллельный запрос успел завершить сессию, оценка отбрасывается.
		return t.terminalGuessResponse(puzzle, updated), nil
	}

	outcome := "incorrect"
	if score.Correct {
		outcome = "correct"
	}
	guessesTotal.WithLabelValues(string(puzzle.SimilarityMode), outcome).Inc()
	guessSimilarity.Observe(score.Similarity)

	remaining := updated.RemainingGuesses(puzzle.MaxGuesses)
	resp := &models.GuessResponse{
		Correct:          score.Correct,
		GameOver:         score.Correct || remaining == 0,
		Similarity:       score.Similarity,
		RemainingGuesses: remaining,
		AttemptsUsed:     updated.TotalGuesses,
	}
	switch {
	case score.Correct:
		resp.Message = msgCorrect
	case remaining > 0:
		resp.Message = msgKeepTrying
	default:
		resp.Message = msgOutOfGuesses
	}
	if resp.GameOver {
		resp.Answer, resp.SourceURL = reveal(puzzle)
	}

	t.logger.Debug("Guess recorded",
		zap.String("playerID", playerID),
		zap.String("puzzleID", puzzle.ID),
		zap.Float64("similarity", score.Similarity),
		zap.Bool("correct", score.Correct),
		zap.Int("remaining", remaining),
	)
	return resp, nil
}

func (t *GameSessionTracker) terminalGuessResponse(puzzle *models.Puzzle, state *models.GameState) *models.GuessResponse {
	resp := &models.GuessResponse{GameOver: true}
	if state != nil {
		resp.AttemptsUsed = state.TotalGuesses
	}
	if state.Status(puzzle.MaxGuesses) == models.SessionSolved {
		resp.Correct = true
		resp.Similarity = 1.0
		resp.RemainingGuesses = state.RemainingGuesses(puzzle.MaxGuesses)
		resp.Message = msgAlreadySolved
		terminalResponsesTotal.WithLabelValues(string(models.SessionSolved)).Inc()
	} else {
		resp.Message = msgNoGuessesLeft
		terminalResponsesTotal.WithLabelValues(string(models.SessionExhausted)).Inc()
	}
	resp.Answer, resp.SourceURL = reveal(puzzle)
	return resp
}

// RequestHint открывает следующую подсказку ценой одной попытки.
func (t *GameSessionTracker) RequestHint(ctx context.Context, playerID, ref string) (*models.HintResponse, error) {
	puzzle, err := t.puzzles.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(puzzle.Hints) == 0 {
		return nil, models.ErrNoHintsAvailable
	}

	hintIndex := 0
	updated, _, err := t.repo.UpdateSession(ctx, playerID, puzzle.ID, func(current *models.GameState) (*models.Attempt, error) {
		if current.Status(puzzle.MaxGuesses).IsTerminal() {
			return nil, models.ErrGameOver
		}
		if current != nil {
			hintIndex = current.HintsRevealed
		}
		if hintIndex >= len(puzzle.Hints) {
			return nil, models.ErrAllHintsRevealed
		}
		return &models.Attempt{
			PlayerID:  playerID,
			PuzzleID:  puzzle.ID,
			GuessText: puzzle.Hints[hintIndex],
			IsHint:    true,
			CreatedAt: t.now().UTC(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	hintsRevealedTotal.Inc()

	remaining := updated.RemainingGuesses(puzzle.MaxGuesses)
	t.logger.Debug("Hint revealed",
		zap.String("playerID", playerID),
		zap.String("puzzleID", puzzle.ID),
		zap.Int("hintIndex", hintIndex),
		zap.Int("remaining", remaining),
	)
	return &models.HintResponse{
		HintIndex:        hintIndex,
		HintText:         puzzle.Hints[hintIndex],
		HintsRemaining:   len(puzzle.Hints) - updated.HintsRevealed,
		RemainingGuesses: remaining,
		GameOver:         remaining == 0,
	}, nil
}

// RevealedHints возвращает уже открытые подсказки без списания попыток.
func (t *GameSessionTracker) RevealedHints(ctx context.Context, playerID, ref string) (*models.RevealedHintsResponse, error) {
	puzzle, err := t.puzzles.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	state, err := t.loadState(ctx, playerID, puzzle.ID)
	if err != nil {
		return nil, err
	}

	revealed := 0
	if state != nil {
		revealed = min(state.HintsRevealed, len(puzzle.Hints))
	}
	return &models.RevealedHintsResponse{
		Hints:          append([]string{}, puzzle.Hints[:revealed]...),
		HintsRemaining: len(puzzle.Hints) - revealed,
	}, nil
}

// Attempts возвращает журнал попыток (новые первыми) и агрегат.
func (t *GameSessionTracker) Attempts(ctx context.Context, playerID, ref string) (*models.AttemptsResponse, error) {
	puzzle, err := t.puzzles.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	state, err := t.loadState(ctx, playerID, puzzle.ID)
	if err != nil {
		return nil, err
	}
	attempts, err := t.repo.ListAttempts(ctx, playerID, puzzle.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	if attempts == nil {
		attempts = []models.Attempt{}
	}

	resp := &models.AttemptsResponse{Attempts: attempts}
	if state != nil {
		resp.GameState = models.GameStateView{
			Solved:        state.Solved,
			TotalGuesses:  state.TotalGuesses,
			HintsRevealed: state.HintsRevealed,
		}
	}
	if state.Status(puzzle.MaxGuesses).IsTerminal() {
		resp.GameState.GameOver = true
		resp.Answer, resp.SourceURL = reveal(puzzle)
	}
	return resp, nil
}

// Reset удаляет журнал и агрегат игрока по пазлу. Отладочная операция.
func (t *GameSessionTracker) Reset(ctx context.Context, playerID, ref string) (string, error) {
	puzzleID := t.puzzles.ResolveID(ctx, ref)
	if err := t.repo.DeleteSession(ctx, playerID, puzzleID); err != nil {
		return "", fmt.Errorf("failed to reset game: %w", err)
	}
	t.logger.Info("Game session reset", zap.String("playerID", playerID), zap.String("puzzleID", puzzleID))
	return puzzleID, nil
}

func reveal(p *models.Puzzle) (*string, *string) {
	answer := p.Answer
	if p.SourceURL == "" {
		return &answer, nil
	}
	source := p.SourceURL
	return &answer, &source
}
