package database

import (
	"context"
	"errors"
	"fmt"
	"mapguess-server/shared/interfaces"
	"mapguess-server/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"go.uber.org/zap"
)

const (
	gameStateFields = `player_id, puzzle_id, total_guesses, hints_revealed, solved, updated_at`
	attemptFields   = `id, player_id, puzzle_id, guess_text, similarity, is_correct, is_hint, created_at`

	getGameStateQuery = `
        SELECT ` + gameStateFields + `
        FROM game_states
        WHERE player_id = $1 AND puzzle_id = $2
    `
	ensureGameStateQuery = `
        INSERT INTO game_states (player_id, puzzle_id, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (player_id, puzzle_id) DO NOTHING
    `
	lockGameStateQuery = `
        SELECT ` + gameStateFields + `
        FROM game_states
        WHERE player_id = $1 AND puzzle_id = $2
        FOR UPDATE
    `
	insertAttemptQuery = `
        INSERT INTO attempts (player_id, puzzle_id, guess_text, similarity, is_correct, is_hint, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	updateGameStateQuery = `
        UPDATE game_states SET
            total_guesses = $3,
            hints_revealed = $4,
            solved = $5,
            updated_at = $6
        WHERE player_id = $1 AND puzzle_id = $2
    `
	listAttemptsQuery = `
        SELECT ` + attemptFields + `
        FROM attempts
        WHERE player_id = $1 AND puzzle_id = $2
        ORDER BY created_at DESC, id DESC
    `
	deleteAttemptsQuery  = `DELETE FROM attempts WHERE player_id = $1 AND puzzle_id = $2`
	deleteGameStateQuery = `DELETE FROM game_states WHERE player_id = $1 AND puzzle_id = $2`
)

// errSessionUnchanged откатывает транзакцию, когда мутация ничего не записала.
var errSessionUnchanged = errors.New("session unchanged")

var _ interfaces.GameSessionRepository = (*pgGameSessionRepository)(nil)

// pgGameSessionRepository хранит журнал попыток и агрегат в PostgreSQL.
// Сериализация по паре игрок×пазл обеспечивается SELECT ... FOR UPDATE.
type pgGameSessionRepository struct {
	db     interfaces.DBTX
	tx     *TransactionHelper
	logger *zap.Logger
}

// NewPgGameSessionRepository creates a new repository instance.
// db is usually a *pgxpool.Pool, which satisfies both DBTX and TxBeginner.
func NewPgGameSessionRepository(db interface {
	interfaces.DBTX
	TxBeginner
}, logger *zap.Logger) interfaces.GameSessionRepository {
	named := logger.Named("PgGameSessionRepo")
	return &pgGameSessionRepository{
		db:     db,
		tx:     NewTransactionHelper(db, named),
		logger: named,
	}
}

func (r *pgGameSessionRepository) GetState(ctx context.Context, playerID, puzzleID string) (*models.GameState, error) {
	var state models.GameState
	if err := pgxscan.Get(ctx, r.db, &state, getGameStateQuery, playerID, puzzleID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get game state", zap.String("playerID", playerID), zap.String("puzzleID", puzzleID), zap.Error(err))
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}
	return &state, nil
}

func (r *pgGameSessionRepository) UpdateSession(
	ctx context.Context,
	playerID, puzzleID string,
	fn interfaces.SessionMutation,
) (*models.GameState, *models.Attempt, error) {
	var (
		before   *models.GameState
		after    *models.GameState
		recorded *models.Attempt
	)

	err := r.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		tag, err := tx.Exec(ctx, ensureGameStateQuery, playerID, puzzleID)
		if err != nil {
			return fmt.Errorf("failed to ensure game state row: %w", err)
		}
		created := tag.RowsAffected() == 1

		var locked models.GameState
		if err := pgxscan.Get(ctx, tx, &locked, lockGameStateQuery, playerID, puzzleID); err != nil {
			return fmt.Errorf("failed to lock game state: %w", err)
		}
		if !created {
			snapshot := locked
			before = &snapshot
		}

		attempt, err := fn(before)
		if err != nil {
			return err
		}
		if attempt == nil {
			return errSessionUnchanged
		}

		attempt.PlayerID = playerID
		attempt.PuzzleID = puzzleID
		if err := tx.QueryRow(ctx, insertAttemptQuery,
			playerID, puzzleID, attempt.GuessText, attempt.Similarity,
			attempt.IsCorrect, attempt.IsHint, attempt.CreatedAt,
		).Scan(&attempt.ID); err != nil {
			return fmt.Errorf("failed to insert attempt: %w", err)
		}

		locked.Apply(attempt)
		if _, err := tx.Exec(ctx, updateGameStateQuery,
			playerID, puzzleID, locked.TotalGuesses, locked.HintsRevealed, locked.Solved, locked.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to update game state: %w", err)
		}

		after = &locked
		recorded = attempt
		return nil
	})
	if errors.Is(err, errSessionUnchanged) {
		return before, nil, nil
	}
	if err != nil {
		return before, nil, err
	}

	r.logger.Debug("Attempt recorded",
		zap.String("playerID", playerID),
		zap.String("puzzleID", puzzleID),
		zap.Int64("attemptID", recorded.ID),
		zap.Bool("isHint", recorded.IsHint),
		zap.Int("totalGuesses", after.TotalGuesses),
	)
	return after, recorded, nil
}

func (r *pgGameSessionRepository) ListAttempts(ctx context.Context, playerID, puzzleID string) ([]models.Attempt, error) {
	attempts := make([]models.Attempt, 0)
	if err := pgxscan.Select(ctx, r.db, &attempts, listAttemptsQuery, playerID, puzzleID); err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

func (r *pgGameSessionRepository) DeleteSession(ctx context.Context, playerID, puzzleID string) error {
	return r.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		if _, err := tx.Exec(ctx, deleteAttemptsQuery, playerID, puzzleID); err != nil {
			return fmt.Errorf("failed to delete attempts: %w", err)
		}
		if _, err := tx.Exec(ctx, deleteGameStateQuery, playerID, puzzleID); err != nil {
			return fmt.Errorf("failed to delete game state: %w", err)
		}
		return nil
	})
}
