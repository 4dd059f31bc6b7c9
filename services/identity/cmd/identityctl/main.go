// Command identityctl runs operator tasks against the identity database.
package main

import (
	"context"
	"errors"
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
	"srik/services/identity/internal/config"
	"srik/services/identity/internal/crypto"
	"srik/services/identity/internal/db"
	"srik/services/identity/internal/repository"
)

var (
	cfg         config.Config
	logger      *zap.Logger
	databaseURL string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "identityctl",
	Short: "Operate the SRIK identity database",
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
		logger, err = logging.New("identityctl", cfg.Environment, level)
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

var (
	adminEmail    string
	adminPassword string
	adminName     string
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the admin account, or reset its password if it exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		email := firstNonEmpty(adminEmail, cfg.AdminEmail)
		password := firstNonEmpty(adminPassword, cfg.AdminPassword)
		name := firstNonEmpty(adminName, cfg.AdminName)
		if password == "" {
			return errors.New("admin password required: pass --password or set ADMIN_PASSWORD")
		}
		hash, err := crypto.HashPassword(password)
		if err != nil {
			return err
		}
		return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
			created, err := repository.NewStore(pool).EnsureAdmin(cmd.Context(), email, hash, name)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s\n", email)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s exists, password reset\n", email)
			}
			return nil
		})
	},
}

var purgeOlderThan time.Duration

var purgeSessionsCmd = &cobra.Command{
	Use:   "purge-sessions",
	Short: "Delete expired and revoked refresh sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
			n, err := repository.NewStore(pool).PurgeRefreshSessions(cmd.Context(), time.Now().UTC().Add(-purgeOlderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d session(s)\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	seedAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email (defaults to ADMIN_EMAIL)")
	seedAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Admin password (defaults to ADMIN_PASSWORD)")
	seedAdminCmd.Flags().StringVar(&adminName, "name", "", "Admin display name (defaults to ADMIN_NAME)")

	purgeSessionsCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 0, "Keep sessions that ended within this window")

	rootCmd.AddCommand(migrateCmd, seedAdminCmd, purgeSessionsCmd)
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
