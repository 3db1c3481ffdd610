package main

import (
	"bytes"
	"errors"
	"testing"

	"mapguess-server/shared/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestArgumentValidation(t *testing.T) {
	t.Run("Неверная дата расписания отклоняется до загрузки конфигурации", func(t *testing.T) {
		_, err := execute("schedule", "mystery", "01/04/2024")
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrInvalidDate))
	})

	t.Run("Месяц календаря должен быть числом", func(t *testing.T) {
		_, err := execute("calendar", "2024", "march")
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrInvalidMonth))
	})

	t.Run("--clear несовместим с id", func(t *testing.T) {
		defer func() { clearActive = false }()
		_, err := execute("active", "--clear", "mystery")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--clear")
	})

	t.Run("Версия для force должна быть числом", func(t *testing.T) {
		_, err := execute("migrate", "force", "latest")
		require.Error(t, err)
	})

	t.Run("Число шагов миграции должно быть ненулевым целым", func(t *testing.T) {
		_, err := execute("migrate", "steps", "0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "zero")

		_, err = execute("migrate", "steps", "two")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid step count")
	})

	t.Run("Лишние аргументы", func(t *testing.T) {
		_, err := execute("pool", "add")
		require.Error(t, err)
	})
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]int{"indexed": 2}))
	assert.JSONEq(t, `{"indexed": 2}`, buf.String())
	assert.Contains(t, buf.String(), "\n  ")
}
