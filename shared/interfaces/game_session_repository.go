package interfaces

import (
	"context"
	"mapguess-server/shared/models"
)

// SessionMutation decides the next attempt for a locked session.
// state is nil when the player has not touched the puzzle yet.
// Returning a nil attempt (and nil error) leaves the session untouched.
type SessionMutation func(state *models.GameState) (*models.Attempt, error)

// GameSessionRepository persists the per-player attempt log and its aggregate.
//
//go:generate mockery --name GameSessionRepository --output ./mocks --outpkg mocks --case=underscore
type GameSessionRepository interface {
	// GetState returns the aggregate for a player and puzzle.
	// Returns models.ErrNotFound if the player has no state for the puzzle.
	GetState(ctx context.Context, playerID, puzzleID string) (*models.GameState, error)

	// UpdateSession runs fn with the session locked against concurrent writers.
	// If fn returns an attempt, it is appended and the aggregate is updated in
	// the same atomic unit. Returns the aggregate after the update (nil if the
	// session still does not exist) and whether an attempt was recorded.
	UpdateSession(ctx context.Context, playerID, puzzleID string, fn SessionMutation) (*models.GameState, *models.Attempt, error)

	// ListAttempts returns the attempt log, most recent first.
	ListAttempts(ctx context.Context, playerID, puzzleID string) ([]models.Attempt, error)

	// DeleteSession removes all attempts and the aggregate for the pair.
	DeleteSession(ctx context.Context, playerID, puzzleID string) error
}
