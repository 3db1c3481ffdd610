package service

import (
	"context"
	"mapguess-server/internal/cache"
	"mapguess-server/shared/models"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultPuzzleCacheTTL - время жизни пазла в кэше резолвера.
const DefaultPuzzleCacheTTL = 5 * time.Minute

// PuzzleResolver превращает логическую ссылку на пазл в конкретную запись.
// Порядок: явный id -> активный override -> текущая дата UTC.
type PuzzleResolver struct {
	store  *PuzzleStore
	cache  *cache.TTLCache[*models.Puzzle]
	now    cache.Clock
	logger *zap.Logger
}

// NewPuzzleResolver создает резолвер. clock == nil означает time.Now.
func NewPuzzleResolver(store *PuzzleStore, ttl time.Duration, clock cache.Clock, logger *zap.Logger) *PuzzleResolver {
	if clock == nil {
		clock = time.Now
	}
	if ttl <= 0 {
		ttl = DefaultPuzzleCacheTTL
	}
	return &PuzzleResolver{
		store:  store,
		cache:  cache.NewTTLCache[*models.Puzzle](ttl, clock),
		now:    clock,
		logger: logger.Named("PuzzleResolver"),
	}
}

// TodayPuzzleID - текущая дата UTC в формате YYYY-MM-DD.
func (r *PuzzleResolver) TodayPuzzleID() string {
	return r.now().UTC().Format(models.DateLayout)
}

// ResolveID вычисляет id пазла без загрузки блоба.
// Ошибка чтения override не фатальна: логируется, используется дата.
func (r *PuzzleResolver) ResolveID(ctx context.Context, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref != "" && !strings.EqualFold(ref, models.LatestPuzzleRef) {
		return ref
	}

	activeID, err := r.store.GetActivePuzzleID(ctx)
	if err != nil {
		r.logger.Warn("Failed to read active puzzle override, falling back to date", zap.Error(err))
	} else if activeID != "" {
		return activeID
	}
	return r.TodayPuzzleID()
}

// Resolve возвращает пазл по ссылке. Возвращенное значение общее для всех
// читателей кэша и не должно изменяться.
func (r *PuzzleResolver) Resolve(ctx context.Context, ref string) (*models.Puzzle, error) {
	id := r.ResolveID(ctx, ref)

	puzzle, hit, err := r.cache.GetOrLoad(ctx, id, func(ctx context.Context) (*models.Puzzle, error) {
		return r.store.GetPuzzle(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		puzzleCacheLookupsTotal.WithLabelValues("hit").Inc()
	} else {
		puzzleCacheLookupsTotal.WithLabelValues("miss").Inc()
		r.logger.Debug("Puzzle loaded into cache", zap.String("puzzleID", id))
	}
	return puzzle, nil
}

// Evict удаляет пазл из кэша. Вызывается после любой правки пазла.
func (r *PuzzleResolver) Evict(id string) {
	r.cache.Evict(id)
}

// ActivePuzzleID возвращает текущий override (пустая строка, если не задан).
func (r *PuzzleResolver) ActivePuzzleID(ctx context.Context) (string, error) {
	return r.store.GetActivePuzzleID(ctx)
}

// SetActivePuzzleID задает override; пустая строка возвращает выбор по дате.
func (r *PuzzleResolver) SetActivePuzzleID(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := r.store.SetActivePuzzleID(ctx, id); err != nil {
		return err
	}
	r.logger.Info("Active puzzle override updated", zap.String("activePuzzleID", id))
	return nil
}
