package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout - формат идентификаторов ежедневных пазлов и ключей расписания.
	DateLayout = "2006-01-02"

	// LatestPuzzleRef - ссылка, означающая "текущий пазл" (override или сегодняшняя дата).
	LatestPuzzleRef = "latest"

	DefaultMaxGuesses          = 5
	DefaultSimilarityThreshold = 0.95
)

// SimilarityMode определяет стратегию оценки догадки.
type SimilarityMode string

const (
	SimilarityModeEmbedding SimilarityMode = "embedding"
	SimilarityModeLLM       SimilarityMode = "llm"
)

// ParseSimilarityMode разбирает строку режима. Пустая строка означает embedding.
func ParseSimilarityMode(s string) (SimilarityMode, error) {
	switch SimilarityMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SimilarityModeEmbedding:
		return SimilarityModeEmbedding, nil
	case SimilarityModeLLM:
		return SimilarityModeLLM, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownMode)
	}
}

// UnmarshalJSON отклоняет неизвестные режимы уже на этапе декодирования блоба.
func (m *SimilarityMode) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("similarityMode must be a string: %w", err)
	}
	parsed, err := ParseSimilarityMode(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// AnswerVariant - допустимая формулировка ответа с заранее посчитанным эмбеддингом.
type AnswerVariant struct {
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding"`
}

// Puzzle - запись пазла в блоб-хранилище.
type Puzzle struct {
	ID                  string          `json:"id"`
	ImageURL            string          `json:"imageUrl"`
	Answer              string          `json:"answer"`
	MaxGuesses          int             `json:"maxGuesses"`
	SimilarityThreshold float64         `json:"similarityThreshold"`
	SimilarityMode      SimilarityMode  `json:"similarityMode,omitempty"`
	AnswerEmbedding     []float64       `json:"answerEmbedding,omitempty"`
	AnswerVariants      []AnswerVariant `json:"answerVariants,omitempty"`
	Hints               []string        `json:"hints"`
	SourceText          string          `json:"sourceText,omitempty"`
	SourceURL           string          `json:"sourceUrl,omitempty"`
	CreatedAt           string          `json:"createdAt,omitempty"`
	InEndlessPool       bool            `json:"inEndlessPool"`
	ScheduledDate       *string         `json:"scheduledDate"`
}

// Normalize подставляет значения по умолчанию для полей, отсутствующих в старых блобах.
func (p *Puzzle) Normalize() {
	if p.MaxGuesses <= 0 {
		p.MaxGuesses = DefaultMaxGuesses
	}
	if p.SimilarityThreshold <= 0 {
		p.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if p.SimilarityMode == "" {
		p.SimilarityMode = SimilarityModeEmbedding
	}
	if p.Hints == nil {
		p.Hints = []string{}
	}
	if p.ScheduledDate != nil && *p.ScheduledDate == "" {
		p.ScheduledDate = nil
	}
}

// Variants возвращает все формулировки ответа; каноническая всегда первая.
// Для старых блобов без answerVariants используется answerEmbedding.
func (p *Puzzle) Variants() []AnswerVariant {
	if len(p.AnswerVariants) > 0 {
		return p.AnswerVariants
	}
	if len(p.AnswerEmbedding) == 0 {
		return nil
	}
	return []AnswerVariant{{Text: p.Answer, Embedding: p.AnswerEmbedding}}
}

// VariantTexts возвращает тексты синонимов без канонического ответа.
func (p *Puzzle) VariantTexts() []string {
	texts := make([]string, 0, len(p.AnswerVariants))
	for _, v := range p.AnswerVariants {
		if strings.EqualFold(v.Text, p.Answer) {
			continue
		}
		texts = append(texts, v.Text)
	}
	return texts
}

// IndexEntry строит денормализованную проекцию пазла для индекса.
func (p *Puzzle) IndexEntry() PuzzleIndexEntry {
	entry := PuzzleIndexEntry{
		ID:            p.ID,
		Answer:        p.Answer,
		ImageURL:      p.ImageURL,
		CreatedAt:     p.CreatedAt,
		InEndlessPool: p.InEndlessPool,
	}
	if p.ScheduledDate != nil {
		d := *p.ScheduledDate
		entry.ScheduledDate = &d
	}
	return entry
}

// ValidateDate проверяет формат YYYY-MM-DD.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%q: %w", date, ErrInvalidDate)
	}
	return nil
}
