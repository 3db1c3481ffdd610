package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mapguess-server/shared/interfaces"
	"mapguess-server/shared/models"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

var _ interfaces.BlobStore = (*GCSBlobStore)(nil)

// GCSBlobStore хранит пазлы и индекс в бакете Google Cloud Storage.
type GCSBlobStore struct {
	client *storage.Client
	bucket string
	logger *zap.Logger
}

// NewGCSBlobStore создает клиент GCS. Пустой credentialsFile означает
// Application Default Credentials.
func NewGCSBlobStore(ctx context.Context, bucket, credentialsFile string, logger *zap.Logger) (*GCSBlobStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket name is empty")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSBlobStore{
		client: client,
		bucket: bucket,
		logger: logger.Named("GCSBlobStore"),
	}, nil
}

func (s *GCSBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("blob %q: %w", key, models.ErrNotFound)
		}
		s.logger.Error("Failed to open GCS object", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", s.bucket, key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

func (s *GCSBlobStore) Put(ctx context.Context, key string, data []byte) error {
	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = "application/json"
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", s.bucket, key, err)
	}
	if err := writer.Close(); err != nil {
		s.logger.Error("Failed to close GCS writer", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to close GCS writer for %s: %w", key, err)
	}
	return nil
}

func (s *GCSBlobStore) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete gs://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *GCSBlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", s.bucket, prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

// Close освобождает соединения клиента.
func (s *GCSBlobStore) Close() error {
	return s.client.Close()
}
