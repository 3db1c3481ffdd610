package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"mapguess-server/internal/bootstrap"
	"mapguess-server/internal/database"
	"mapguess-server/internal/service"
	"mapguess-server/shared/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type createFlags struct {
	id               string
	imageURL         string
	answer           string
	hints            []string
	synonyms         []string
	generateSynonyms bool
	maxGuesses       int
	threshold        float64
	mode             string
	sourceText       string
	sourceURL        string
	date             string
	endless          bool
}

// withApp собирает app, выполняет fn и освобождает ресурсы.
func withApp(cmd *cobra.Command, providers bool, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, providers)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func runCreate(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, true, func(ctx context.Context, a *app) error {
		in := createInput
		synonyms := in.synonyms
		if in.generateSynonyms {
			generated, err := a.authoring.GenerateSynonyms(ctx, in.answer, service.DefaultSynonymCount)
			if err != nil {
				return err
			}
			a.logger.Info("Synonyms generated", zap.Strings("synonyms", generated))
			synonyms = append(synonyms, generated...)
		}

		var date *string
		if in.date != "" {
			date = &in.date
		}
		puzzle, err := a.authoring.CreatePuzzle(ctx, service.CreatePuzzleInput{
			ID:                  in.id,
			ImageURL:            in.imageURL,
			Answer:              in.answer,
			Hints:               in.hints,
			Synonyms:            synonyms,
			MaxGuesses:          in.maxGuesses,
			SimilarityThreshold: in.threshold,
			SimilarityMode:      in.mode,
			SourceText:          in.sourceText,
			SourceURL:           in.sourceURL,
			ScheduledDate:       date,
			InEndlessPool:       in.endless,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), puzzle.IndexEntry())
	})
}

func runSynonyms(cmd *cobra.Command, args []string) error {
	return withApp(cmd, true, func(ctx context.Context, a *app) error {
		synonyms, err := a.authoring.GenerateSynonyms(ctx, args[0], synonymCount)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), synonyms)
	})
}

func runSchedule(cmd *cobra.Command, args []string) error {
	var date *string
	if len(args) == 2 {
		if err := models.ValidateDate(args[1]); err != nil {
			return err
		}
		date = &args[1]
	}
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		puzzle, err := a.index.Schedule(ctx, args[0], date)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), puzzle.IndexEntry())
	})
}

func runPool(cmd *cobra.Command, id string, inPool bool) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		puzzle, err := a.index.ToggleEndlessPool(ctx, id, inPool)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), puzzle.IndexEntry())
	})
}

func runActive(cmd *cobra.Command, args []string) error {
	if clearActive && len(args) > 0 {
		return fmt.Errorf("--clear cannot be combined with a puzzle id")
	}
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		switch {
		case clearActive:
			if err := a.resolver.SetActivePuzzleID(ctx, ""); err != nil {
				return err
			}
		case len(args) == 1:
			if _, err := a.store.GetPuzzle(ctx, args[0]); err != nil {
				return err
			}
			if err := a.resolver.SetActivePuzzleID(ctx, args[0]); err != nil {
				return err
			}
		}

		activeID, err := a.resolver.ActivePuzzleID(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]string{
			"activePuzzleId":    activeID,
			"effectivePuzzleId": a.resolver.ResolveID(ctx, models.LatestPuzzleRef),
			"todayPuzzleId":     a.resolver.TodayPuzzleID(),
		})
	})
}

func runList(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		idx, err := a.index.ListAll(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), idx)
	})
}

func runCalendar(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid year %q: %w", args[0], models.ErrInvalidInput)
	}
	month, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid month %q: %w", args[1], models.ErrInvalidMonth)
	}
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		schedule, err := a.index.PuzzlesForMonth(ctx, year, month)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), schedule)
	})
}

func runReindex(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		report, err := a.index.Reconcile(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	})
}

type migrateOp int

const (
	migrateUp migrateOp = iota
	migrateDown
	migrateVersion
	migrateForce
	migrateSteps
)

func runMigrateForce(cmd *cobra.Command, args []string) error {
	version, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	return runMigrate(cmd, migrateForce, int(version))
}

// runMigrateSteps: n > 0 применяет n миграций, n < 0 откатывает |n|.
func runMigrateSteps(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid step count %q: %w", args[0], err)
	}
	if n == 0 {
		return errors.New("step count must not be zero")
	}
	return runMigrate(cmd, migrateSteps, n)
}

// runMigrate выполняет op; arg - версия для force или число шагов для steps.
func runMigrate(cmd *cobra.Command, op migrateOp, arg int) error {
	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		pool, err := bootstrap.Postgres(ctx, a.cfg, a.logger)
		if err != nil {
			return err
		}
		defer pool.Close()

		migrator := database.NewMigrator(pool)
		switch op {
		case migrateUp:
			err = migrator.Up(ctx)
		case migrateDown:
			err = migrator.Down(ctx)
		case migrateForce:
			err = migrator.ForceVersion(ctx, uint(arg))
		case migrateSteps:
			err = migrator.Steps(ctx, arg)
		}
		if err != nil {
			return err
		}

		current, dirty, err := migrator.Version(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{"version": current, "dirty": dirty})
	})
}
