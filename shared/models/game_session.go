package models

import "time"

// SessionStatus - производное состояние сессии игрока по пазлу.
type SessionStatus string

const (
	SessionUnstarted  SessionStatus = "unstarted"
	SessionInProgress SessionStatus = "in_progress"
	SessionSolved     SessionStatus = "solved"
	SessionExhausted  SessionStatus = "exhausted"
)

// IsTerminal - Solved или Exhausted.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionSolved || s == SessionExhausted
}

// Attempt - запись журнала попыток (догадка или подсказка). Только добавляется.
type Attempt struct {
	ID         int64     `db:"id" json:"-"`
	PlayerID   string    `db:"player_id" json:"-"`
	PuzzleID   string    `db:"puzzle_id" json:"-"`
	GuessText  string    `db:"guess_text" json:"guess"`
	Similarity float64   `db:"similarity" json:"similarity"`
	IsCorrect  bool      `db:"is_correct" json:"correct"`
	IsHint     bool      `db:"is_hint" json:"isHint"`
	CreatedAt  time.Time `db:"created_at" json:"timestamp"`
}

// GameState - агрегат по паре игрок×пазл.
type GameState struct {
	PlayerID      string    `db:"player_id"`
	PuzzleID      string    `db:"puzzle_id"`
	TotalGuesses  int       `db:"total_guesses"`
	HintsRevealed int       `db:"hints_revealed"`
	Solved        bool      `db:"solved"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Status вычисляет состояние автомата. nil означает, что строки агрегата еще нет.
func (s *GameState) Status(maxGuesses int) SessionStatus {
	switch {
	case s == nil:
		return SessionUnstarted
	case s.Solved:
		return SessionSolved
	case s.TotalGuesses >= maxGuesses:
		return SessionExhausted
	case s.TotalGuesses == 0 && s.HintsRevealed == 0:
		return SessionUnstarted
	default:
		return SessionInProgress
	}
}

// RemainingGuesses = max(maxGuesses - totalGuesses, 0).
func (s *GameState) RemainingGuesses(maxGuesses int) int {
	used := 0
	if s != nil {
		used = s.TotalGuesses
	}
	if rem := maxGuesses - used; rem > 0 {
		return rem
	}
	return 0
}

// Apply изменяет агрегат в соответствии с новой попыткой.
func (s *GameState) Apply(a *Attempt) {
	s.TotalGuesses++
	if a.IsHint {
		s.HintsRevealed++
	}
	if a.IsCorrect {
		s.Solved = true
	}
	s.UpdatedAt = a.CreatedAt
}
