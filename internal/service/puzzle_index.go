package service

import (
	"context"
	"errors"
	"fmt"
	"mapguess-server/shared/interfaces"
	"mapguess-server/shared/models"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// CacheEvicter сбрасывает закэшированный пазл. Реализуется PuzzleResolver.
type CacheEvicter interface {
	Evict(id string)
}

// ApplyUpsert синхронизирует три представления индекса с состоянием пазла.
// Возвращает id пазла, вытесненного с даты расписания (или "").
// Повторное применение того же состояния индекс не меняет.
func ApplyUpsert(idx *models.PuzzleIndex, p *models.Puzzle) string {
	idx.EnsureInitialized()
	entry := p.IndexEntry()

	replaced := false
	for i := range idx.Puzzles {
		if idx.Puzzles[i].ID == p.ID {
			idx.Puzzles[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		idx.Puzzles = append(idx.Puzzles, entry)
	}

	switch inPool := idx.InPool(p.ID); {
	case p.InEndlessPool && !inPool:
		idx.EndlessPool = append(idx.EndlessPool, p.ID)
	case !p.InEndlessPool && inPool:
		pool := idx.EndlessPool[:0]
		for _, id := range idx.EndlessPool {
			if id != p.ID {
				pool = append(pool, id)
			}
		}
		idx.EndlessPool = pool
	}

	for date, id := range idx.DailySchedule {
		if id == p.ID && (p.ScheduledDate == nil || *p.ScheduledDate != date) {
			delete(idx.DailySchedule, date)
		}
	}

	if p.ScheduledDate == nil {
		return ""
	}
	date := *p.ScheduledDate
	displaced := ""
	if prev, ok := idx.DailySchedule[date]; ok && prev != p.ID {
		displaced = prev
		for i := range idx.Puzzles {
			e := &idx.Puzzles[i]
			if e.ID == prev && e.ScheduledDate != nil && *e.ScheduledDate == date {
				e.ScheduledDate = nil
			}
		}
	}
	idx.DailySchedule[date] = p.ID
	return displaced
}

// ReconcileReport - итог перестройки индекса.
type ReconcileReport struct {
	Indexed   int      `json:"indexed"`
	Skipped   []string `json:"skipped"`
	Displaced []string `json:"displaced"`
}

// PuzzleIndexManager поддерживает мастер-индекс согласованным при правках пазлов.
// Блоб пазла и блоб индекса пишутся последовательно без общей транзакции:
// сбой между записями оставляет их рассогласованными до следующей правки или Reconcile.
// Все записи индекса внутри процесса идут под mu.
type PuzzleIndexManager struct {
	mu        sync.Mutex
	store     *PuzzleStore
	evicter   CacheEvicter
	publisher interfaces.CacheInvalidationPublisher
	logger    *zap.Logger
}

// NewPuzzleIndexManager. publisher может быть nil, если реплика одна.
func NewPuzzleIndexManager(
	store *PuzzleStore,
	evicter CacheEvicter,
	publisher interfaces.CacheInvalidationPublisher,
	logger *zap.Logger,
) *PuzzleIndexManager {
	return &PuzzleIndexManager{
		store:     store,
		evicter:   evicter,
		publisher: publisher,
		logger:    logger.Named("PuzzleIndexManager"),
	}
}

// Upsert обновляет запись индекса по пазлу и сбрасывает кэш.
// Если пазл занял чужую дату, у вытесненного пазла дата снимается и в его блобе.
func (m *PuzzleIndexManager) Upsert(ctx context.Context, p *models.Puzzle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertLocked(ctx, p)
}

func (m *PuzzleIndexManager) upsertLocked(ctx context.Context, p *models.Puzzle) error {
	idx, err := m.store.GetIndex(ctx)
	if err != nil {
		return err
	}
	displaced := ApplyUpsert(idx, p)
	if err := m.store.SaveIndex(ctx, idx); err != nil {
		return err
	}
	m.invalidate(ctx, p.ID)

	if displaced != "" {
		m.logger.Info("Puzzle displaced from schedule",
			zap.String("date", *p.ScheduledDate),
			zap.String("displacedPuzzleID", displaced),
			zap.String("puzzleID", p.ID),
		)
		if err := m.clearScheduledDate(ctx, displaced, *p.ScheduledDate); err != nil {
			return err
		}
	}
	return nil
}

// clearScheduledDate снимает дату с блоба вытесненного пазла.
func (m *PuzzleIndexManager) clearScheduledDate(ctx context.Context, id, date string) error {
	p, err := m.store.GetPuzzle(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load displaced puzzle %s: %w", id, err)
	}
	if p.ScheduledDate == nil || *p.ScheduledDate != date {
		return nil
	}
	p.ScheduledDate = nil
	if err := m.store.SavePuzzle(ctx, p); err != nil {
		return err
	}
	m.invalidate(ctx, id)
	return nil
}

// ToggleEndlessPool включает или исключает пазл из endless-пула.
func (m *PuzzleIndexManager) ToggleEndlessPool(ctx context.Context, id string, inPool bool) (*models.Puzzle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.store.GetPuzzle(ctx, id)
	if err != nil {
		return nil, err
	}
	p.InEndlessPool = inPool
	if err := m.store.SavePuzzle(ctx, p); err != nil {
		return nil, err
	}
	if err := m.upsertLocked(ctx, p); err != nil {
		return nil, err
	}
	m.logger.Info("Endless pool membership updated", zap.String("puzzleID", id), zap.Bool("inPool", inPool))
	return p, nil
}

// Schedule назначает пазл на дату; nil или пустая дата снимает пазл с расписания.
func (m *PuzzleIndexManager) Schedule(ctx context.Context, id string, date *string) (*models.Puzzle, error) {
	if date != nil {
		trimmed := strings.TrimSpace(*date)
		if trimmed == "" {
			date = nil
		} else {
			if err := models.ValidateDate(trimmed); err != nil {
				return nil, err
			}
			date = &trimmed
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.store.GetPuzzle(ctx, id)
	if err != nil {
		return nil, err
	}
	p.ScheduledDate = date
	if err := m.store.SavePuzzle(ctx, p); err != nil {
		return nil, err
	}
	if err := m.upsertLocked(ctx, p); err != nil {
		return nil, err
	}

	fields := []zap.Field{zap.String("puzzleID", id)}
	if date != nil {
		fields = append(fields, zap.String("date", *date))
	}
	m.logger.Info("Puzzle schedule updated", fields...)
	return p, nil
}

// PuzzlesForMonth возвращает расписание месяца: дата -> запись индекса.
func (m *PuzzleIndexManager) PuzzlesForMonth(ctx context.Context, year, month int) (map[string]models.PuzzleIndexEntry, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: got %d", models.ErrInvalidMonth, month)
	}
	if year < 1 || year > 9999 {
		return nil, fmt.Errorf("year %d out of range: %w", year, models.ErrInvalidInput)
	}

	idx, err := m.store.GetIndex(ctx)
	if err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	result := make(map[string]models.PuzzleIndexEntry)
	for date, id := range idx.DailySchedule {
		if !strings.HasPrefix(date, prefix) {
			continue
		}
		entry, ok := idx.Entry(id)
		if !ok {
			entry = models.PuzzleIndexEntry{ID: id}
		}
		result[date] = entry
	}
	return result, nil
}

// ListAll возвращает индекс целиком.
func (m *PuzzleIndexManager) ListAll(ctx context.Context) (*models.PuzzleIndex, error) {
	return m.store.GetIndex(ctx)
}

// RandomEndlessPuzzleID выбирает случайный пазл из endless-пула, кроме exclude.
func (m *PuzzleIndexManager) RandomEndlessPuzzleID(ctx context.Context, exclude []string) (string, error) {
	idx, err := m.store.GetIndex(ctx)
	if err != nil {
		return "", err
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	candidates := make([]string, 0, len(idx.EndlessPool))
	for _, id := range idx.EndlessPool {
		if _, ok := skip[id]; !ok {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("endless pool has no unplayed puzzles: %w", models.ErrNotFound)
	}
	return candidates[rand.IntN(len(candidates))], nil
}

// Reconcile перестраивает индекс с нуля по всем блобам пазлов.
// Пазлы обрабатываются по возрастанию id; при конфликте дат побеждает последний.
func (m *PuzzleIndexManager) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids, err := m.store.ListPuzzleIDs(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	report := &ReconcileReport{Skipped: []string{}, Displaced: []string{}}
	idx := models.NewPuzzleIndex()
	displacedDates := make(map[string]string)
	for _, id := range ids {
		p, err := m.store.GetPuzzle(ctx, id)
		if err != nil {
			m.logger.Warn("Skipping unreadable puzzle during reconcile", zap.String("puzzleID", id), zap.Error(err))
			report.Skipped = append(report.Skipped, id)
			continue
		}
		if displaced := ApplyUpsert(idx, p); displaced != "" {
			displacedDates[displaced] = *p.ScheduledDate
		}
		report.Indexed++
	}

	if err := m.store.SaveIndex(ctx, idx); err != nil {
		return nil, err
	}

	for id, date := range displacedDates {
		if err := m.clearScheduledDate(ctx, id, date); err != nil {
			return nil, err
		}
		report.Displaced = append(report.Displaced, id)
	}
	sort.Strings(report.Displaced)

	for _, id := range ids {
		m.invalidate(ctx, id)
	}
	m.logger.Info("Puzzle index reconciled",
		zap.Int("indexed", report.Indexed),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("displaced", len(report.Displaced)),
	)
	return report, nil
}

// invalidate сбрасывает локальный кэш и оповещает остальные реплики.
func (m *PuzzleIndexManager) invalidate(ctx context.Context, id string) {
	if m.evicter != nil {
		m.evicter.Evict(id)
	}
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishInvalidation(ctx, id); err != nil {
		m.logger.Warn("Failed to publish cache invalidation", zap.String("puzzleID", id), zap.Error(err))
	}
}
