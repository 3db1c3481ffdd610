package database

import (
	"context"
	"mapguess-server/shared/interfaces"
	"mapguess-server/shared/models"
	"sync"
)

var _ interfaces.GameSessionRepository = (*memoryGameSessionRepository)(nil)

type memorySession struct {
	mu       sync.Mutex
	state    *models.GameState
	attempts []models.Attempt
}

// memoryGameSessionRepository хранит сессии в памяти процесса.
// Используется в dev-режиме без DATABASE_URL и в тестах.
type memoryGameSessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	nextID   int64
}

func NewMemoryGameSessionRepository() interfaces.GameSessionRepository {
	return &memoryGameSessionRepository{sessions: make(map[string]*memorySession)}
}

func sessionKey(playerID, puzzleID string) string {
	return playerID + "\x00" + puzzleID
}

func (r *memoryGameSessionRepository) session(playerID, puzzleID string, create bool) *memorySession {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sessionKey(playerID, puzzleID)
	s, ok := r.sessions[key]
	if !ok && create {
		s = &memorySession{}
		r.sessions[key] = s
	}
	return s
}

func (r *memoryGameSessionRepository) GetState(ctx context.Context, playerID, puzzleID string) (*models.GameState, error) {
	s := r.session(playerID, puzzleID, false)
	if s == nil {
		return nil, models.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, models.ErrNotFound
	}
	state := *s.state
	return &state, nil
}

func (r *memoryGameSessionRepository) UpdateSession(
	ctx context.Context,
	playerID, puzzleID string,
	fn interfaces.SessionMutation,
) (*models.GameState, *models.Attempt, error) {
	s := r.session(playerID, puzzleID, true)
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *models.GameState
	if s.state != nil {
		c := *s.state
		current = &c
	}

	attempt, err := fn(current)
	if err != nil || attempt == nil {
		return current, nil, err
	}

	next := models.GameState{PlayerID: playerID, PuzzleID: puzzleID}
	if current != nil {
		next = *current
	}
	next.Apply(attempt)

	r.mu.Lock()
	r.nextID++
	attempt.ID = r.nextID
	r.mu.Unlock()
	attempt.PlayerID = playerID
	attempt.PuzzleID = puzzleID

	s.attempts = append(s.attempts, *attempt)
	s.state = &next

	out := next
	return &out, attempt, nil
}

func (r *memoryGameSessionRepository) ListAttempts(ctx context.Context, playerID, puzzleID string) ([]models.Attempt, error) {
	s := r.session(playerID, puzzleID, false)
	if s == nil {
		return []models.Attempt{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Attempt, 0, len(s.attempts))
	for i := len(s.attempts) - 1; i >= 0; i-- {
		out = append(out, s.attempts[i])
	}
	return out, nil
}

func (r *memoryGameSessionRepository) DeleteSession(ctx context.Context, playerID, puzzleID string) error {
	r.mu.Lock()
	s, ok := r.sessions[sessionKey(playerID, puzzleID)]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	// Сбрасываем под блокировкой сессии, чтобы не разойтись с UpdateSession,
	// который уже держит указатель на эту сессию.
	s.mu.Lock()
	s.state = nil
	s.attempts = nil
	s.mu.Unlock()
	return nil
}
