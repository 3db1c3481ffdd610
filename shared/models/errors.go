package models

import (
	"errors"
	"fmt"
)

// Application-wide standard errors
var (
	// Базовые категории. Обработчики HTTP сопоставляют ошибки с ними через errors.Is.
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input data")
	ErrInvalidState        = errors.New("operation not allowed in current state")
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")

	// Puzzle & Index Errors
	ErrPuzzleNotFound   = fmt.Errorf("puzzle not found: %w", ErrNotFound)
	ErrNoHintsAvailable = fmt.Errorf("no hints available for this puzzle: %w", ErrNotFound)
	ErrInvalidDate      = fmt.Errorf("date must be formatted as YYYY-MM-DD: %w", ErrInvalidInput)
	ErrInvalidMonth     = fmt.Errorf("month must be between 1 and 12: %w", ErrInvalidInput)
	ErrUnknownMode      = fmt.Errorf("unknown similarity mode: %w", ErrInvalidInput)

	// Gameplay Errors
	ErrEmptyGuess       = fmt.Errorf("guess cannot be empty: %w", ErrInvalidInput)
	ErrGameOver         = fmt.Errorf("game is already over: %w", ErrInvalidState)
	ErrAllHintsRevealed = fmt.Errorf("all hints already revealed: %w", ErrInvalidState)

	// Provider Errors
	ErrEmbeddingFailed = fmt.Errorf("failed to compute embedding: %w", ErrUpstreamUnavailable)
)
