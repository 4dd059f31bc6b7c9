// Command jadualctl runs operator tasks against the timetable database:
// migrations, seeding, generation and export.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"srik/pkg/logging"
	"srik/pkg/pgmigrate"
	"srik/services/timetable/internal/config"
	"srik/services/timetable/internal/db"
	"srik/services/timetable/internal/operations"
	"srik/services/timetable/internal/scheduling"
	"srik/services/timetable/internal/seed"
)

var (
	cfg         config.Config
	logger      *zap.Logger
	databaseURL string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "jadualctl",
	Short: "Operate the SRIK timetable database",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		cfg = config.Load()
		if databaseURL != "" {
			cfg.DatabaseURL = databaseURL
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		var err error
		logger, err = logging.New("jadualctl", cfg.Environment, level)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
			applied, err := pgmigrate.Apply(cmd.Context(), pool, db.Migrations(), logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(applied))
			return nil
		})
	},
}

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load days, slots, classrooms, subjects, teachers, events and the current term",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDocument(seedFile)
		if err != nil {
			return err
		}
		return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
			store := db.NewStore(pool)
			var res seed.Result
			err := store.WithTx(cmd.Context(), func(q *db.Queries) error {
				var err error
				res, err = seed.Apply(cmd.Context(), q, doc, time.Now(), logger)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d days, %d slots, %d classrooms, %d subjects, %d new teachers, %d event slots\n",
				res.Days, res.TimeSlots, res.Classrooms, res.Subjects, res.TeachersAdded, res.SpecialEvents)
			if res.Term != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "created current term %q\n", res.Term.Name)
			}
			return nil
		})
	},
}

var (
	termID       int
	fillFree     bool
	maxDaily     int
	exportOutput string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Replace a term's entries with a generated timetable",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *operations.Service) error {
			res, err := svc.GenerateTimetable(cmd.Context(), termID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "term %d: removed %d, created %d, rejected %d\n",
				res.TermID, res.Removed, res.Created, res.Rejected)
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a term's timetable as an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		err = withService(cmd.Context(), func(svc *operations.Service) error {
			return svc.ExportTimetable(cmd.Context(), termID, out)
		})
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(exportOutput)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", exportOutput)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML seed document (defaults to the built-in school data)")

	generateCmd.Flags().IntVar(&termID, "term", 0, "Term ID (defaults to the current term)")
	generateCmd.Flags().BoolVar(&fillFree, "fill", true, "Fill remaining free classroom slots")
	generateCmd.Flags().IntVar(&maxDaily, "max-daily", 2, "Maximum sessions of one subject per classroom per day")

	exportCmd.Flags().IntVar(&termID, "term", 0, "Term ID (defaults to the current term)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "jadual.xlsx", "Output file")

	rootCmd.AddCommand(migrateCmd, seedCmd, generateCmd, exportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func withPool(ctx context.Context, fn func(*pgxpool.Pool) error) error {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connection failed: %w", err)
	}
	defer pool.Close()
	return fn(pool)
}

func withService(ctx context.Context, fn func(*operations.Service) error) error {
	return withPool(ctx, func(pool *pgxpool.Pool) error {
		store := db.NewStore(pool)
		lock := func(ctx context.Context, termID int, fn func(operations.Queries) error) error {
			return store.WithTermLock(ctx, termID, func(q *db.Queries) error { return fn(q) })
		}
		svc := operations.NewService(store.Queries, lock, nil, logger, operations.Options{
			AllowBreakSlots: cfg.AllowBreakSlots,
			Generator: scheduling.Options{
				FillFreeSlots:      fillFree,
				MaxDailyPerSubject: maxDaily,
			},
		})
		return fn(svc)
	})
}

func loadDocument(path string) (seed.Document, error) {
	if path == "" {
		return seed.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return seed.Document{}, err
	}
	return seed.Parse(data)
}
