package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Mock CacheInvalidationPublisher
type CacheInvalidationPublisher struct {
	mock.Mock
}

func (m *CacheInvalidationPublisher) PublishInvalidation(ctx context.Context, puzzleID string) error {
	args := m.Called(ctx, puzzleID)
	return args.Error(0)
}
