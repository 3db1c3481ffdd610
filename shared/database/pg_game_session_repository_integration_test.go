package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"mapguess-server/internal/database"
	"mapguess-server/shared/interfaces"
	"mapguess-server/shared/models"

	"github.com/docker/docker/client"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// PgGameSessionRepositorySuite проверяет репозиторий сессий на настоящем PostgreSQL.
type PgGameSessionRepositorySuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	pgPool      *pgxpool.Pool
	repo        interfaces.GameSessionRepository
}

func (s *PgGameSessionRepositorySuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	s.pgPool, err = database.Connect(s.ctx, database.Options{URL: connStr, MaxRetries: 5, RetryDelay: time.Second}, zap.NewNop())
	require.NoError(s.T(), err)
	require.NoError(s.T(), database.ApplyMigrations(s.ctx, s.pgPool))

	s.repo = NewPgGameSessionRepository(s.pgPool, zap.NewNop())
}

func (s *PgGameSessionRepositorySuite) TearDownSuite() {
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
}

func (s *PgGameSessionRepositorySuite) SetupTest() {
	_, err := s.pgPool.Exec(s.ctx, "TRUNCATE attempts, game_states RESTART IDENTITY")
	require.NoError(s.T(), err)
}

func guessAttempt(text string, correct bool, at time.Time) *models.Attempt {
	return &models.Attempt{GuessText: text, Similarity: 0.5, IsCorrect: correct, CreatedAt: at}
}

func (s *PgGameSessionRepositorySuite) TestRecordListAndDelete() {
	t := s.T()
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.repo.GetState(s.ctx, "p1", "2024-03-01")
	require.ErrorIs(t, err, models.ErrNotFound)

	state, attempt, err := s.repo.UpdateSession(s.ctx, "p1", "2024-03-01", func(before *models.GameState) (*models.Attempt, error) {
		require.Nil(t, before)
		return guessAttempt("rain", false, start), nil
	})
	require.NoError(t, err)
	require.NotNil(t, attempt)
	require.NotZero(t, attempt.ID)
	require.Equal(t, 1, state.TotalGuesses)

	_, _, err = s.repo.UpdateSession(s.ctx, "p1", "2024-03-01", func(before *models.GameState) (*models.Attempt, error) {
		require.NotNil(t, before)
		require.Equal(t, 1, before.TotalGuesses)
		return &models.Attempt{GuessText: "hint one", IsHint: true, CreatedAt: start.Add(time.Minute)}, nil
	})
	require.NoError(t, err)

	state, err = s.repo.GetState(s.ctx, "p1", "2024-03-01")
	require.NoError(t, err)
	require.Equal(t, 2, state.TotalGuesses)
	require.Equal(t, 1, state.HintsRevealed)
	require.False(t, state.Solved)

	attempts, err := s.repo.ListAttempts(s.ctx, "p1", "2024-03-01")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	require.True(t, attempts[0].IsHint, "newest first")
	require.Equal(t, "rain", attempts[1].GuessText)

	require.NoError(t, s.repo.DeleteSession(s.ctx, "p1", "2024-03-01"))
	_, err = s.repo.GetState(s.ctx, "p1", "2024-03-01")
	require.ErrorIs(t, err, models.ErrNotFound)
	attempts, err = s.repo.ListAttempts(s.ctx, "p1", "2024-03-01")
	require.NoError(t, err)
	require.Empty(t, attempts)
}

func (s *PgGameSessionRepositorySuite) TestNilAttemptLeavesNoRow() {
	t := s.T()
	state, attempt, err := s.repo.UpdateSession(s.ctx, "p2", "x", func(*models.GameState) (*models.Attempt, error) {
		return nil, nil
	})
	require.NoError(t, err)
	require.Nil(t, state)
	require.Nil(t, attempt)

	_, err = s.repo.GetState(s.ctx, "p2", "x")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func (s *PgGameSessionRepositorySuite) TestConcurrentUpdatesRespectBudget() {
	t := s.T()
	const maxGuesses = 3
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.repo.UpdateSession(s.ctx, "p3", "2024-03-01", func(before *models.GameState) (*models.Attempt, error) {
				if before.Status(maxGuesses).IsTerminal() {
					return nil, nil
				}
				return guessAttempt("wrong", false, now), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := s.repo.GetState(s.ctx, "p3", "2024-03-01")
	require.NoError(t, err)
	require.Equal(t, maxGuesses, state.TotalGuesses)

	attempts, err := s.repo.ListAttempts(s.ctx, "p3", "2024-03-01")
	require.NoError(t, err)
	require.Len(t, attempts, maxGuesses)
}

func (s *PgGameSessionRepositorySuite) TestSolvedIsSticky() {
	t := s.T()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	_, _, err := s.repo.UpdateSession(s.ctx, "p4", "y", func(*models.GameState) (*models.Attempt, error) {
		return guessAttempt("population density", true, now), nil
	})
	require.NoError(t, err)

	state, attempt, err := s.repo.UpdateSession(s.ctx, "p4", "y", func(before *models.GameState) (*models.Attempt, error) {
		require.Equal(t, models.SessionSolved, before.Status(5))
		return nil, nil
	})
	require.NoError(t, err)
	require.Nil(t, attempt)
	require.True(t, state.Solved)
}

func TestPgGameSessionRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Skipf("Docker client init error: %v", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		cli.Close()
		t.Skipf("Docker daemon is not running or accessible: %v", err)
	}
	cli.Close()

	suite.Run(t, new(PgGameSessionRepositorySuite))
}
