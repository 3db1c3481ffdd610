package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"mapguess-server/internal/bootstrap"
	"mapguess-server/internal/config"
	"mapguess-server/internal/service"
	"mapguess-server/shared/logger"

	"go.uber.org/zap"
)

// app - сервисы пазлов, собранные по той же конфигурации, что и сервер.
// Инвалидация кэша реплик не публикуется: серверы увидят правки по истечении TTL.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *service.PuzzleStore
	resolver  *service.PuzzleResolver
	index     *service.PuzzleIndexManager
	authoring *service.PuzzleAuthoringService
	closeFn   func()
}

func newApp(ctx context.Context, withProviders bool) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		Encoding:   "console",
		OutputPath: "stderr",
		Service:    "puzzlectl",
	})
	if err != nil {
		return nil, err
	}

	blobs, closeBlobs, err := bootstrap.BlobStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store := service.NewPuzzleStore(blobs, cfg.PuzzlePrefix)
	resolver := service.NewPuzzleResolver(store, cfg.PuzzleCacheTTL, time.Now, log)
	index := service.NewPuzzleIndexManager(store, resolver, nil, log)

	a := &app{
		cfg:      cfg,
		logger:   log,
		store:    store,
		resolver: resolver,
		index:    index,
		closeFn: func() {
			closeBlobs()
			_ = log.Sync()
		},
	}

	if withProviders {
		embedder, _, synonyms, err := bootstrap.Providers(cfg, log)
		if err != nil {
			a.close()
			return nil, err
		}
		a.authoring = service.NewPuzzleAuthoringService(store, index, embedder, synonyms, time.Now, log)
	}
	return a, nil
}

func (a *app) close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
