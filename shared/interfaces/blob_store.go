package interfaces

import "context"

// BlobStore is a flat key/value object store for JSON documents.
//
//go:generate mockery --name BlobStore --output ./mocks --outpkg mocks --case=underscore
type BlobStore interface {
	// Get returns the object body. Returns models.ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// Delete is a no-op for absent keys.
	Delete(ctx context.Context, key string) error
	// List returns every key with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
