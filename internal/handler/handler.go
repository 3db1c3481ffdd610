package handler

import (
	"context"

	"mapguess-server/internal/service"
	"mapguess-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Gameplay is the per-player game surface.
type Gameplay interface {
	SubmitGuess(ctx context.Context, playerID, ref, text string) (*models.GuessResponse, error)
	RequestHint(ctx context.Context, playerID, ref string) (*models.HintResponse, error)
	RevealedHints(ctx context.Context, playerID, ref string) (*models.RevealedHintsResponse, error)
	Attempts(ctx context.Context, playerID, ref string) (*models.AttemptsResponse, error)
	Reset(ctx context.Context, playerID, ref string) (string, error)
}

// PuzzleCatalog resolves puzzle references and manages the active override.
type PuzzleCatalog interface {
	Resolve(ctx context.Context, ref string) (*models.Puzzle, error)
	ResolveID(ctx context.Context, ref string) string
	TodayPuzzleID() string
	ActivePuzzleID(ctx context.Context) (string, error)
	SetActivePuzzleID(ctx context.Context, id string) error
}

// PuzzleIndex exposes the master index operations.
type PuzzleIndex interface {
	ToggleEndlessPool(ctx context.Context, id string, inPool bool) (*models.Puzzle, error)
	Schedule(ctx context.Context, id string, date *string) (*models.Puzzle, error)
	PuzzlesForMonth(ctx context.Context, year, month int) (map[string]models.PuzzleIndexEntry, error)
	ListAll(ctx context.Context) (*models.PuzzleIndex, error)
	RandomEndlessPuzzleID(ctx context.Context, exclude []string) (string, error)
	Reconcile(ctx context.Context) (*service.ReconcileReport, error)
}

// PuzzleAuthoring creates puzzles and proposes answer synonyms.
type PuzzleAuthoring interface {
	CreatePuzzle(ctx context.Context, in service.CreatePuzzleInput) (*models.Puzzle, error)
	GenerateSynonyms(ctx context.Context, answer string, count int) ([]string, error)
}

// Options - переключатели маршрутов из конфигурации.
type Options struct {
	DebugResetEnabled bool
	AdminAPIEnabled   bool
	AdminPassword     string
}

type PuzzleHandler struct {
	gameplay  Gameplay
	catalog   PuzzleCatalog
	index     PuzzleIndex
	authoring PuzzleAuthoring
	opts      Options
	logger    *zap.Logger
}

func NewPuzzleHandler(
	gameplay Gameplay,
	catalog PuzzleCatalog,
	index PuzzleIndex,
	authoring PuzzleAuthoring,
	opts Options,
	logger *zap.Logger,
) *PuzzleHandler {
	return &PuzzleHandler{
		gameplay:  gameplay,
		catalog:   catalog,
		index:     index,
		authoring: authoring,
		opts:      opts,
		logger:    logger.Named("PuzzleHandler"),
	}
}

// RegisterRoutes регистрирует игровые и (если включены) админские маршруты.
// playerIdentity должен проставлять id игрока в gin.Context.
func (h *PuzzleHandler) RegisterRoutes(router *gin.Engine, playerIdentity gin.HandlerFunc) {
	api := router.Group("/api")
	api.Use(playerIdentity)
	{
		api.GET("/puzzle", h.getCurrentPuzzle)
		api.GET("/puzzle/:id", h.getPuzzle)
		api.POST("/puzzle/:id/guess", h.submitGuess)
		api.GET("/puzzle/:id/hint", h.requestHint)
		api.GET("/puzzle/:id/hints", h.revealedHints)
		api.GET("/puzzle/:id/attempts", h.attempts)
		api.GET("/endless/random", h.randomEndless)
		if h.opts.DebugResetEnabled {
			api.POST("/puzzle/:id/reset", h.resetGame)
		}
	}

	if !h.opts.AdminAPIEnabled {
		return
	}
	admin := router.Group("/admin")
	admin.Use(h.AdminPasswordMiddleware())
	{
		admin.POST("/puzzles", h.createPuzzle)
		admin.POST("/generate-synonyms", h.generateSynonyms)
		admin.GET("/puzzles/all", h.listAllPuzzles)
		admin.GET("/calendar/:year/:month", h.calendar)
		admin.POST("/puzzles/:id/schedule", h.schedulePuzzle)
		admin.POST("/puzzles/:id/endless-pool", h.toggleEndlessPool)
		admin.GET("/active-puzzle", h.getActivePuzzle)
		admin.POST("/active-puzzle", h.setActivePuzzle)
		admin.POST("/reindex", h.reindex)
	}
}
