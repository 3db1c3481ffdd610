package models

// PuzzlePrompt - вопрос, который показывается игроку вместе с картой.
const PuzzlePrompt = "Guess what this map represents"

// PuzzleResponse - публичное представление пазла. Ответ и эмбеддинги не раскрываются.
type PuzzleResponse struct {
	ID                  string  `json:"id"`
	ImageURL            string  `json:"imageUrl"`
	MaxGuesses          int     `json:"maxGuesses"`
	SimilarityThreshold float64 `json:"similarityThreshold"`
	Prompt              string  `json:"prompt"`
	HintsAvailable      int     `json:"hintsAvailable"`
	SourceText          string  `json:"sourceText,omitempty"`
}

// NewPuzzleResponse строит публичный ответ по пазлу.
func NewPuzzleResponse(p *Puzzle) PuzzleResponse {
	return PuzzleResponse{
		ID:                  p.ID,
		ImageURL:            p.ImageURL,
		MaxGuesses:          p.MaxGuesses,
		SimilarityThreshold: p.SimilarityThreshold,
		Prompt:              PuzzlePrompt,
		HintsAvailable:      len(p.Hints),
		SourceText:          p.SourceText,
	}
}

type GuessResponse struct {
	Correct          bool    `json:"correct"`
	GameOver         bool    `json:"gameOver"`
	Similarity       float64 `json:"similarity"`
	RemainingGuesses int     `json:"remainingGuesses"`
	Message          string  `json:"message"`
	Answer           *string `json:"answer,omitempty"`
	AttemptsUsed     int     `json:"attemptsUsed"`
	SourceURL        *string `json:"sourceUrl,omitempty"`
}

type HintResponse struct {
	HintIndex        int    `json:"hintIndex"`
	HintText         string `json:"hintText"`
	HintsRemaining   int    `json:"hintsRemaining"`
	RemainingGuesses int    `json:"remainingGuesses"`
	GameOver         bool   `json:"gameOver"`
}

type RevealedHintsResponse struct {
	Hints          []string `json:"hints"`
	HintsRemaining int      `json:"hintsRemaining"`
}

type GameStateView struct {
	Solved        bool `json:"solved"`
	TotalGuesses  int  `json:"totalGuesses"`
	HintsRevealed int  `json:"hintsRevealed"`
	GameOver      bool `json:"gameOver"`
}

type AttemptsResponse struct {
	Attempts  []Attempt     `json:"attempts"`
	GameState GameStateView `json:"gameState"`
	Answer    *string       `json:"answer,omitempty"`
	SourceURL *string       `json:"sourceUrl,omitempty"`
}

// ActivePuzzlePointer - содержимое блоба активного пазла.
type ActivePuzzlePointer struct {
	ActivePuzzleID string `json:"activePuzzleId"`
}

// CacheInvalidationEvent рассылается остальным репликам после изменения пазла.
type CacheInvalidationEvent struct {
	PuzzleID string `json:"puzzleId"`
	Origin   string `json:"origin"`
}
