package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mapguess-server/shared/interfaces"
	"mapguess-server/shared/models"
	"strings"
)

const (
	indexObjectName  = "index"
	activeObjectName = "active"
	blobExtension    = ".json"
)

// PuzzleStore раскладывает пазлы, индекс и указатель активного пазла по ключам блоб-хранилища:
// <prefix><id>.json, <prefix>index.json, <prefix>active.json.
type PuzzleStore struct {
	blobs  interfaces.BlobStore
	prefix string
}

func NewPuzzleStore(blobs interfaces.BlobStore, prefix string) *PuzzleStore {
	return &PuzzleStore{blobs: blobs, prefix: prefix}
}

// IsReservedID сообщает, совпадает ли id с именем служебного объекта.
func IsReservedID(id string) bool {
	return id == indexObjectName || id == activeObjectName
}

func (s *PuzzleStore) puzzleKey(id string) string {
	return s.prefix + id + blobExtension
}

// GetPuzzle читает и нормализует пазл. Возвращает models.ErrPuzzleNotFound, если блоба нет
// или id совпадает со служебным объектом.
func (s *PuzzleStore) GetPuzzle(ctx context.Context, id string) (*models.Puzzle, error) {
	if IsReservedID(id) {
		return nil, fmt.Errorf("%w: %s", models.ErrPuzzleNotFound, id)
	}
	data, err := s.blobs.Get(ctx, s.puzzleKey(id))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrPuzzleNotFound, id)
		}
		return nil, fmt.Errorf("failed to load puzzle %s: %w", id, err)
	}

	var p models.Puzzle
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode puzzle %s: %w", id, err)
	}
	if p.ID == "" {
		p.ID = id
	}
	p.Normalize()
	return &p, nil
}

func (s *PuzzleStore) SavePuzzle(ctx context.Context, p *models.Puzzle) error {
	if IsReservedID(p.ID) {
		return fmt.Errorf("puzzle id %q is reserved: %w", p.ID, models.ErrInvalidInput)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode puzzle %s: %w", p.ID, err)
	}
	if err := s.blobs.Put(ctx, s.puzzleKey(p.ID), data); err != nil {
		return fmt.Errorf("failed to store puzzle %s: %w", p.ID, err)
	}
	return nil
}

// GetIndex возвращает пустой индекс, если он еще не создан.
func (s *PuzzleStore) GetIndex(ctx context.Context) (*models.PuzzleIndex, error) {
	data, err := s.blobs.Get(ctx, s.puzzleKey(indexObjectName))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NewPuzzleIndex(), nil
		}
		return nil, fmt.Errorf("failed to load puzzle index: %w", err)
	}

	var idx models.PuzzleIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to decode puzzle index: %w", err)
	}
	idx.EnsureInitialized()
	return &idx, nil
}

func (s *PuzzleStore) SaveIndex(ctx context.Context, idx *models.PuzzleIndex) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to encode puzzle index: %w", err)
	}
	if err := s.blobs.Put(ctx, s.puzzleKey(indexObjectName), data); err != nil {
		return fmt.Errorf("failed to store puzzle index: %w", err)
	}
	return nil
}

// GetActivePuzzleID возвращает пустую строку, если override не задан.
func (s *PuzzleStore) GetActivePuzzleID(ctx context.Context) (string, error) {
	data, err := s.blobs.Get(ctx, s.puzzleKey(activeObjectName))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load active puzzle pointer: %w", err)
	}
	var ptr models.ActivePuzzlePointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return "", fmt.Errorf("failed to decode active puzzle pointer: %w", err)
	}
	return strings.TrimSpace(ptr.ActivePuzzleID), nil
}

// SetActivePuzzleID записывает override; пустой id удаляет указатель.
func (s *PuzzleStore) SetActivePuzzleID(ctx context.Context, id string) error {
	key := s.puzzleKey(activeObjectName)
	if id == "" {
		if err := s.blobs.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to clear active puzzle pointer: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(models.ActivePuzzlePointer{ActivePuzzleID: id})
	if err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to store active puzzle pointer: %w", err)
	}
	return nil
}

// ListPuzzleIDs перечисляет id всех блобов пазлов, пропуская служебные объекты.
func (s *PuzzleStore) ListPuzzleIDs(ctx context.Context) ([]string, error) {
	keys, err := s.blobs.List(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list puzzles: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		name := strings.TrimPrefix(key, s.prefix)
		if !strings.HasSuffix(name, blobExtension) || strings.Contains(name, "/") {
			continue
		}
		id := strings.TrimSuffix(name, blobExtension)
		if IsReservedID(id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
