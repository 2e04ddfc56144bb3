package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/simedi/gateway/internal/config"
	"github.com/simedi/gateway/internal/platform/db"
	"github.com/simedi/gateway/internal/platform/ledger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "simedi-gateway",
		Short:        "SiMeDi ledger gateway for prescriptions and vaccinations",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the audit database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(ctx context.Context, fn func(context.Context, *db.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for migrations")
	}

	pool, err := db.NewPool(ctx, poolConfig(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, db.Migrations, "migrations"))
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		logger.Warn().Msg("development auth is active: unauthenticated requests get admin access")
	}

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = db.NewPool(ctx, poolConfig(cfg))
		if err != nil {
			logger.Error().Err(err).Msg("failed to connect to audit database")
			return err
		}
		defer pool.Close()
		logger.Info().Msg("connected to audit database")
	} else {
		logger.Info().Msg("no DATABASE_URL set, ledger audit goes to the log")
	}

	gw, err := ledger.Connect(ledgerConfig(cfg), logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to ledger gateway")
		return err
	}
	defer func() {
		if err := gw.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close ledger gateway")
		}
	}()

	e := newServer(cfg, gw, pool, logger)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
