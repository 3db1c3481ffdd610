package storage

import (
	"context"
	"mapguess-server/shared/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlobStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBlobStore()

	_, err := s.Get(ctx, "puzzles/missing.json")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.Put(ctx, "puzzles/2024-03-01.json", []byte(`{"id":"2024-03-01"}`)))
	require.NoError(t, s.Put(ctx, "puzzles/2024-03-02.json", []byte(`{}`)))
	require.NoError(t, s.Put(ctx, "other/x.json", []byte(`{}`)))

	data, err := s.Get(ctx, "puzzles/2024-03-01.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"2024-03-01"}`, string(data))

	// Изменение возвращенного среза не должно влиять на хранилище
	data[0] = 'X'
	again, _ := s.Get(ctx, "puzzles/2024-03-01.json")
	assert.Equal(t, byte('{'), again[0])

	keys, err := s.List(ctx, "puzzles/")
	require.NoError(t, err)
	assert.Equal(t, []string{"puzzles/2024-03-01.json", "puzzles/2024-03-02.json"}, keys)

	require.NoError(t, s.Delete(ctx, "puzzles/2024-03-02.json"))
	require.NoError(t, s.Delete(ctx, "puzzles/2024-03-02.json"), "delete of missing key is a no-op")
	keys, _ = s.List(ctx, "puzzles/")
	assert.Len(t, keys, 1)
}
