package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "puzzlectl",
		Short:         "Administer mapguess puzzles directly in the blob store",
		Long:          `puzzlectl reads the same environment as the server and edits puzzles, the schedule, the endless pool and the session schema without going through the admin HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	createCmd = &cobra.Command{
		Use:   "create",
		Short: "Create or overwrite a puzzle, embedding its answer variants",
		Args:  cobra.NoArgs,
		RunE:  runCreate,
	}
	createInput createFlags

	synonymsCmd = &cobra.Command{
		Use:   "synonyms [answer]",
		Short: "Ask the LLM for alternative phrasings of an answer",
		Args:  cobra.ExactArgs(1),
		RunE:  runSynonyms,
	}
	synonymCount int

	scheduleCmd = &cobra.Command{
		Use:   "schedule [puzzle-id] [YYYY-MM-DD]",
		Short: "Schedule a puzzle on a date, or unschedule it when the date is omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runSchedule,
	}

	poolCmd = &cobra.Command{
		Use:   "pool",
		Short: "Manage the endless pool",
	}
	poolAddCmd = &cobra.Command{
		Use:   "add [puzzle-id]",
		Short: "Add a puzzle to the endless pool",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runPool(cmd, args[0], true) },
	}
	poolRemoveCmd = &cobra.Command{
		Use:   "remove [puzzle-id]",
		Short: "Remove a puzzle from the endless pool",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runPool(cmd, args[0], false) },
	}

	activeCmd = &cobra.Command{
		Use:   "active [puzzle-id]",
		Short: "Show the active puzzle override, or set it when an id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runActive,
	}
	clearActive bool

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Print the master puzzle index",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	calendarCmd = &cobra.Command{
		Use:   "calendar [year] [month]",
		Short: "Print the daily schedule of one month",
		Args:  cobra.ExactArgs(2),
		RunE:  runCalendar,
	}

	reindexCmd = &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the master index from every puzzle blob",
		Args:  cobra.NoArgs,
		RunE:  runReindex,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL session schema",
	}
	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, _ []string) error { return runMigrate(cmd, migrateUp, 0) },
	}
	migrateDownCmd = &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, _ []string) error { return runMigrate(cmd, migrateDown, 0) },
	}
	migrateVersionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, _ []string) error { return runMigrate(cmd, migrateVersion, 0) },
	}
	migrateForceCmd = &cobra.Command{
		Use:   "force [version]",
		Short: "Force the schema version after a failed migration",
		Args:  cobra.ExactArgs(1),
		RunE:  runMigrateForce,
	}
	migrateStepsCmd = &cobra.Command{
		Use:   "steps [n]",
		Short: "Apply n migrations forward, or roll back with a negative n (pass it after --)",
		Args:  cobra.ExactArgs(1),
		RunE:  runMigrateSteps,
	}
)

func init() {
	rootCmd.AddCommand(createCmd)
	f := createCmd.Flags()
	f.StringVar(&createInput.id, "id", "", "Puzzle id (defaults to today's date)")
	f.StringVar(&createInput.imageURL, "image-url", "", "Public URL of the map image")
	f.StringVar(&createInput.answer, "answer", "", "Canonical answer")
	f.StringArrayVar(&createInput.hints, "hint", nil, "Hint text, repeat in reveal order")
	f.StringArrayVar(&createInput.synonyms, "synonym", nil, "Accepted alternative phrasing, repeatable")
	f.BoolVar(&createInput.generateSynonyms, "generate-synonyms", false, "Ask the LLM for synonyms before embedding")
	f.IntVar(&createInput.maxGuesses, "max-guesses", 0, "Guess budget (default 6)")
	f.Float64Var(&createInput.threshold, "threshold", 0, "Similarity threshold in (0,1] (default 0.85)")
	f.StringVar(&createInput.mode, "mode", "embedding", "Similarity mode: embedding or llm")
	f.StringVar(&createInput.sourceText, "source-text", "", "Attribution text")
	f.StringVar(&createInput.sourceURL, "source-url", "", "Attribution URL")
	f.StringVar(&createInput.date, "date", "", "Schedule the puzzle on this date (YYYY-MM-DD)")
	f.BoolVar(&createInput.endless, "endless", false, "Add the puzzle to the endless pool")
	_ = createCmd.MarkFlagRequired("image-url")
	_ = createCmd.MarkFlagRequired("answer")

	rootCmd.AddCommand(synonymsCmd)
	synonymsCmd.Flags().IntVar(&synonymCount, "count", 10, "Number of synonyms to request")

	rootCmd.AddCommand(scheduleCmd)

	rootCmd.AddCommand(poolCmd)
	poolCmd.AddCommand(poolAddCmd)
	poolCmd.AddCommand(poolRemoveCmd)

	rootCmd.AddCommand(activeCmd)
	activeCmd.Flags().BoolVar(&clearActive, "clear", false, "Clear the override and fall back to the date")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(reindexCmd)

	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
	migrateCmd.AddCommand(migrateForceCmd)
	migrateCmd.AddCommand(migrateStepsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
