package mocks

import (
	"context"
	"mapguess-server/shared/interfaces"

	"github.com/stretchr/testify/mock"
)

// Mock Embedder
type Embedder struct {
	mock.Mock
}

func (m *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	args := m.Called(ctx, text)
	vec, _ := args.Get(0).([]float64)
	return vec, args.Error(1)
}
func (m *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	args := m.Called(ctx, texts)
	vecs, _ := args.Get(0).([][]float64)
	return vecs, args.Error(1)
}

// Mock Judge
type Judge struct {
	mock.Mock
}

func (m *Judge) Judge(ctx context.Context, guess, answer string, variants []string) (interfaces.JudgeVerdict, error) {
	args := m.Called(ctx, guess, answer, variants)
	verdict, _ := args.Get(0).(interfaces.JudgeVerdict)
	return verdict, args.Error(1)
}

// Mock SynonymGenerator
type SynonymGenerator struct {
	mock.Mock
}

func (m *SynonymGenerator) GenerateSynonyms(ctx context.Context, answer string, count int) ([]string, error) {
	args := m.Called(ctx, answer, count)
	syns, _ := args.Get(0).([]string)
	return syns, args.Error(1)
}
