package interfaces

import "context"

// Embedder turns text into vectors.
//
//go:generate mockery --name Embedder --output ./mocks --outpkg mocks --case=underscore
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// JudgeVerdict is the LLM judge's decision on a guess.
type JudgeVerdict struct {
	Correct    bool
	Confidence float64
	Reasoning  string
}

// Judge asks a language model whether a guess names the answer.
//
//go:generate mockery --name Judge --output ./mocks --outpkg mocks --case=underscore
type Judge interface {
	Judge(ctx context.Context, guess, answer string, variants []string) (JudgeVerdict, error)
}

// SynonymGenerator proposes alternative phrasings of an answer.
//
//go:generate mockery --name SynonymGenerator --output ./mocks --outpkg mocks --case=underscore
type SynonymGenerator interface {
	GenerateSynonyms(ctx context.Context, answer string, count int) ([]string, error)
}
