package interfaces

import (
	"context"
)

// CacheInvalidationPublisher notifies other replicas that a puzzle changed
// and their cached copy must be dropped.
type CacheInvalidationPublisher interface {
	PublishInvalidation(ctx context.Context, puzzleID string) error
}
