package service

import (
	"context"
	"fmt"
	"mapguess-server/internal/cache"
	"mapguess-server/shared/interfaces"
	"mapguess-server/shared/models"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Значения по умолчанию формы создания пазла.
const (
	AuthoringDefaultMaxGuesses = 6
	AuthoringDefaultThreshold  = 0.85
	DefaultSynonymCount        = 10
)

// CreatePuzzleInput - данные для нового пазла. Нулевые значения заменяются умолчаниями.
type CreatePuzzleInput struct {
	ID                  string
	ImageURL            string
	Answer              string
	Hints               []string
	Synonyms            []string
	MaxGuesses          int
	SimilarityThreshold float64
	SimilarityMode      string
	SourceText          string
	SourceURL           string
	ScheduledDate       *string
	InEndlessPool       bool
}

// PuzzleAuthoringService создает пазлы: считает эмбеддинги вариантов ответа,
// сохраняет блоб и обновляет индекс.
type PuzzleAuthoringService struct {
	store    *PuzzleStore
	index    *PuzzleIndexManager
	embedder interfaces.Embedder
	synonyms interfaces.SynonymGenerator
	now      cache.Clock
	logger   *zap.Logger
}

func NewPuzzleAuthoringService(
	store *PuzzleStore,
	index *PuzzleIndexManager,
	embedder interfaces.Embedder,
	synonyms interfaces.SynonymGenerator,
	clock cache.Clock,
	logger *zap.Logger,
) *PuzzleAuthoringService {
	if clock == nil {
		clock = time.Now
	}
	return &PuzzleAuthoringService{
		store:    store,
		index:    index,
		embedder: embedder,
		synonyms: synonyms,
		now:      clock,
		logger:   logger.Named("PuzzleAuthoringService"),
	}
}

// CreatePuzzle создает или перезаписывает пазл.
func (s *PuzzleAuthoringService) CreatePuzzle(ctx context.Context, in CreatePuzzleInput) (*models.Puzzle, error) {
	now := s.now().UTC()

	p, err := s.buildPuzzle(in, now)
	if err != nil {
		return nil, err
	}

	variants, err := s.embedVariants(ctx, p.Answer, in.Synonyms)
	if err != nil {
		return nil, err
	}
	p.AnswerVariants = variants
	p.AnswerEmbedding = variants[0].Embedding

	if err := s.store.SavePuzzle(ctx, p); err != nil {
		return nil, err
	}
	if err := s.index.Upsert(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Puzzle created",
		zap.String("puzzleID", p.ID),
		zap.Int("variants", len(p.AnswerVariants)),
		zap.Int("hints", len(p.Hints)),
		zap.String("mode", string(p.SimilarityMode)),
	)
	return p, nil
}

func (s *PuzzleAuthoringService) buildPuzzle(in CreatePuzzleInput, now time.Time) (*models.Puzzle, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = now.Format(models.DateLayout)
	}
	if IsReservedID(id) || strings.Contains(id, "/") {
		return nil, fmt.Errorf("puzzle id %q is reserved: %w", id, models.ErrInvalidInput)
	}

	answer := strings.TrimSpace(in.Answer)
	if answer == "" {
		return nil, fmt.Errorf("answer is required: %w", models.ErrInvalidInput)
	}
	if strings.TrimSpace(in.ImageURL) == "" {
		return nil, fmt.Errorf("imageUrl is required: %w", models.ErrInvalidInput)
	}

	maxGuesses := in.MaxGuesses
	if maxGuesses == 0 {
		maxGuesses = AuthoringDefaultMaxGuesses
	}
	if maxGuesses < 1 {
		return nil, fmt.Errorf("maxGuesses must be at least 1: %w", models.ErrInvalidInput)
	}

	threshold := in.SimilarityThreshold
	if threshold == 0 {
		threshold = AuthoringDefaultThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("similarityThreshold must be in (0, 1]: %w", models.ErrInvalidInput)
	}

	mode, err := models.ParseSimilarityMode(in.SimilarityMode)
	if err != nil {
		return nil, err
	}

	var scheduled *string
	if in.ScheduledDate != nil && strings.TrimSpace(*in.ScheduledDate) != "" {
		d := strings.TrimSpace(*in.ScheduledDate)
		if err := models.ValidateDate(d); err != nil {
			return nil, err
		}
		scheduled = &d
	}

	return &models.Puzzle{
		ID:                  id,
		ImageURL:            strings.TrimSpace(in.ImageURL),
		Answer:              answer,
		MaxGuesses:          maxGuesses,
		SimilarityThreshold: threshold,
		SimilarityMode:      mode,
		Hints:               cleanStrings(in.Hints),
		SourceText:          strings.TrimSpace(in.SourceText),
		SourceURL:           strings.TrimSpace(in.SourceURL),
		CreatedAt:           now.Format(time.RFC3339),
		InEndlessPool:       in.InEndlessPool,
		ScheduledDate:       scheduled,
	}, nil
}

// embedVariants считает эмбеддинги одним батчем; при ошибке батча
// пазл создается только с каноническим ответом.
func (s *PuzzleAuthoringService) embedVariants(ctx context.Context, answer string, synonyms []string) ([]models.AnswerVariant, error) {
	texts := []string{answer}
	for _, syn := range cleanStrings(synonyms) {
		if strings.EqualFold(syn, answer) {
			continue
		}
		texts = append(texts, syn)
	}

	lowered := make([]string, len(texts))
	for i, t := range texts {
		lowered[i] = NormalizeGuess(t)
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, lowered)
	if err == nil && len(embeddings) == len(texts) {
		variants := make([]models.AnswerVariant, len(texts))
		for i, t := range texts {
			variants[i] = models.AnswerVariant{Text: t, Embedding: embeddings[i]}
		}
		return variants, nil
	}
	if err == nil {
		err = fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddings))
	}

	providerFailuresTotal.WithLabelValues("authoring_batch").Inc()
	s.logger.Warn("Batch embedding failed, falling back to answer only", zap.Error(err))

	embedding, err := s.embedder.Embed(ctx, lowered[0])
	if err != nil {
		providerFailuresTotal.WithLabelValues("authoring_answer").Inc()
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingFailed, err)
	}
	return []models.AnswerVariant{{Text: answer, Embedding: embedding}}, nil
}

// GenerateSynonyms предлагает альтернативные формулировки ответа.
// Ошибки провайдера не возвращаются: результатом будет пустой список.
func (s *PuzzleAuthoringService) GenerateSynonyms(ctx context.Context, answer string, count int) ([]string, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("answer is required: %w", models.ErrInvalidInput)
	}
	if count <= 0 {
		count = DefaultSynonymCount
	}
	if s.synonyms == nil {
		return []string{}, nil
	}

	synonyms, err := s.synonyms.GenerateSynonyms(ctx, answer, count)
	if err != nil {
		providerFailuresTotal.WithLabelValues("synonyms").Inc()
		s.logger.Warn("Synonym generation failed", zap.String("answer", answer), zap.Error(err))
		return []string{}, nil
	}
	out := cleanStrings(synonyms)
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
