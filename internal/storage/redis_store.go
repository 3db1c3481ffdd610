package storage

import (
	"context"
	"errors"
	"fmt"
	"mapguess-server/shared/interfaces"
	"mapguess-server/shared/models"
	"sort"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure redisBlobStore implements BlobStore
var _ interfaces.BlobStore = (*redisBlobStore)(nil)

type redisBlobStore struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisBlobStore хранит каждый объект как строковый ключ Redis без TTL.
// keyPrefix отделяет пространство ключей игры от прочих данных в той же БД.
func NewRedisBlobStore(client *redis.Client, keyPrefix string, logger *zap.Logger) interfaces.BlobStore {
	return &redisBlobStore{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger.Named("RedisBlobStore"),
	}
}

func (s *redisBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("blob %q: %w", key, models.ErrNotFound)
		}
		s.logger.Error("Failed to get blob from redis", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return data, nil
}

func (s *redisBlobStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, data, 0).Err(); err != nil {
		s.logger.Error("Failed to put blob to redis", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *redisBlobStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// List обходит ключи через SCAN, чтобы не блокировать Redis командой KEYS.
func (s *redisBlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.keyPrefix+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(s.keyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %q: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}
