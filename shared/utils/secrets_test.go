package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSecretOrEnv(t *testing.T) {
	dir := t.TempDir()
	prev := SecretsDir
	SecretsDir = dir
	t.Cleanup(func() { SecretsDir = prev })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "openai_api_key"), []byte("  sk-file\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty"), []byte("   "), 0o600))
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("ADMIN_PASSWORD", "from-env")

	t.Run("Файл имеет приоритет", func(t *testing.T) {
		v, err := ReadSecretOrEnv("openai_api_key", "OPENAI_API_KEY")
		require.NoError(t, err)
		assert.Equal(t, "sk-file", v)
	})

	t.Run("Fallback на окружение", func(t *testing.T) {
		v, err := ReadSecretOrEnv("admin_password", "ADMIN_PASSWORD")
		require.NoError(t, err)
		assert.Equal(t, "from-env", v)
	})

	t.Run("Нигде нет", func(t *testing.T) {
		_, err := ReadSecretOrEnv("missing", "MAPGUESS_MISSING_SECRET")
		assert.ErrorIs(t, err, ErrSecretNotFound)
	})

	t.Run("Пустой файл - ошибка, а не fallback", func(t *testing.T) {
		_, err := ReadSecretOrEnv("empty", "OPENAI_API_KEY")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSecretNotFound)
	})
}
