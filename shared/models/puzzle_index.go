package models

import (
	"fmt"
	"sort"
)

// PuzzleIndexEntry - краткая запись о пазле для списков без загрузки всех блобов.
type PuzzleIndexEntry struct {
	ID            string  `json:"id"`
	Answer        string  `json:"answer"`
	ImageURL      string  `json:"imageUrl"`
	CreatedAt     string  `json:"createdAt,omitempty"`
	InEndlessPool bool    `json:"inEndlessPool"`
	ScheduledDate *string `json:"scheduledDate"`
}

// PuzzleIndex - мастер-индекс: список пазлов, расписание по датам и endless-пул.
type PuzzleIndex struct {
	Puzzles       []PuzzleIndexEntry `json:"puzzles"`
	DailySchedule map[string]string  `json:"dailySchedule"`
	EndlessPool   []string           `json:"endlessPool"`
}

// NewPuzzleIndex возвращает пустой индекс с инициализированными коллекциями.
func NewPuzzleIndex() *PuzzleIndex {
	return &PuzzleIndex{
		Puzzles:       []PuzzleIndexEntry{},
		DailySchedule: map[string]string{},
		EndlessPool:   []string{},
	}
}

// EnsureInitialized заменяет nil-коллекции пустыми (после декодирования неполного JSON).
func (idx *PuzzleIndex) EnsureInitialized() {
	if idx.Puzzles == nil {
		idx.Puzzles = []PuzzleIndexEntry{}
	}
	if idx.DailySchedule == nil {
		idx.DailySchedule = map[string]string{}
	}
	if idx.EndlessPool == nil {
		idx.EndlessPool = []string{}
	}
}

// Entry возвращает запись по id.
func (idx *PuzzleIndex) Entry(id string) (PuzzleIndexEntry, bool) {
	for _, e := range idx.Puzzles {
		if e.ID == id {
			return e, true
		}
	}
	return PuzzleIndexEntry{}, false
}

// InPool сообщает, состоит ли id в endless-пуле.
func (idx *PuzzleIndex) InPool(id string) bool {
	for _, p := range idx.EndlessPool {
		if p == id {
			return true
		}
	}
	return false
}

// Clone делает глубокую копию индекса.
func (idx *PuzzleIndex) Clone() *PuzzleIndex {
	out := &PuzzleIndex{
		Puzzles:       make([]PuzzleIndexEntry, len(idx.Puzzles)),
		DailySchedule: make(map[string]string, len(idx.DailySchedule)),
		EndlessPool:   append([]string{}, idx.EndlessPool...),
	}
	for i, e := range idx.Puzzles {
		if e.ScheduledDate != nil {
			d := *e.ScheduledDate
			e.ScheduledDate = &d
		}
		out.Puzzles[i] = e
	}
	for k, v := range idx.DailySchedule {
		out.DailySchedule[k] = v
	}
	return out
}

// Validate проверяет согласованность трех представлений индекса.
func (idx *PuzzleIndex) Validate() error {
	entries := make(map[string]PuzzleIndexEntry, len(idx.Puzzles))
	for _, e := range idx.Puzzles {
		if _, dup := entries[e.ID]; dup {
			return fmt.Errorf("duplicate index entry %q", e.ID)
		}
		entries[e.ID] = e
	}

	pool := make(map[string]struct{}, len(idx.EndlessPool))
	for _, id := range idx.EndlessPool {
		e, ok := entries[id]
		if !ok {
			return fmt.Errorf("endless pool references unknown puzzle %q", id)
		}
		if !e.InEndlessPool {
			return fmt.Errorf("puzzle %q is pooled but entry says otherwise", id)
		}
		pool[id] = struct{}{}
	}

	dates := make([]string, 0, len(idx.DailySchedule))
	for date := range idx.DailySchedule {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	for _, date := range dates {
		id := idx.DailySchedule[date]
		e, ok := entries[id]
		if !ok {
			return fmt.Errorf("schedule date %s references unknown puzzle %q", date, id)
		}
		if e.ScheduledDate == nil || *e.ScheduledDate != date {
			return fmt.Errorf("schedule date %s maps to %q whose entry disagrees", date, id)
		}
	}

	for _, e := range idx.Puzzles {
		if _, ok := pool[e.ID]; e.InEndlessPool && !ok {
			return fmt.Errorf("puzzle %q flagged for endless pool but missing from pool set", e.ID)
		}
		if e.ScheduledDate != nil && idx.DailySchedule[*e.ScheduledDate] != e.ID {
			return fmt.Errorf("puzzle %q scheduled for %s but schedule disagrees", e.ID, *e.ScheduledDate)
		}
	}
	return nil
}
