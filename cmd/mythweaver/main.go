// Command mythweaver assembles game-master prompts for an AI-driven text
// roleplay game. It can run as a long-lived HTTP service (serve), build a
// single prompt from a snapshot file (build), or apply database migrations
// (migrate).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/ntbao/mythweaver/internal/app"
	"github.com/ntbao/mythweaver/internal/config"
	"github.com/ntbao/mythweaver/internal/observe"
	"github.com/ntbao/mythweaver/internal/refpack"
	"github.com/ntbao/mythweaver/pkg/state"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mythweaver: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "mythweaver",
		Short:         "Retrieval-augmented prompt assembly for AI roleplay",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newBuildCmd(&configPath))
	root.AddCommand(newMigrateCmd(&configPath))
	return root
}

// loadConfig reads the config file and installs the default logger at the
// configured level.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %q not found — copy configs/example.yaml to get started", path)
		}
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel.SlogLevel(),
	})))
	return cfg, nil
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the prompt assembly service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
				ServiceVersion: version,
			})
			if err != nil {
				return fmt.Errorf("init telemetry: %w", err)
			}
			defer func() {
				if err := shutdownTelemetry(context.Background()); err != nil {
					slog.Warn("telemetry shutdown", "err", err)
				}
			}()

			slog.Info("mythweaver starting",
				"version", version,
				"config", *configPath,
				"metrics_addr", cfg.Server.MetricsAddr,
				"compact", cfg.Compact.Enabled,
			)

			application, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}

			// Hot-reload: rebuild the engine pipeline whenever the config
			// file changes on disk.
			watcher, err := config.NewWatcher(*configPath, func(_, newCfg *config.Config, diff config.ConfigDiff) {
				if diff.BudgetChanged || diff.PromptChanged || diff.CompactToggled {
					application.Engine().ApplyConfig(newCfg)
				}
			})
			if err != nil {
				slog.Warn("config watcher disabled", "err", err)
			} else {
				application.AttachWatcher(watcher)
			}

			slog.Info("server ready — press Ctrl+C to shut down")
			if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			slog.Info("shutdown complete")
			return nil
		},
	}
}

func newBuildCmd(configPath *string) *cobra.Command {
	var (
		sessionID string
		input     string
	)
	cmd := &cobra.Command{
		Use:   "build <snapshot.yaml>",
		Short: "Assemble one prompt from a game state snapshot and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			st, err := state.LoadSnapshotFile(args[0])
			if err != nil {
				return err
			}

			application, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = application.Shutdown(context.Background()) }()

			prompt, err := application.Engine().BuildPrompt(cmd.Context(), sessionID, st, input)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), prompt.Text)
			fmt.Fprintf(cmd.ErrOrStderr(), "tokens=%d truncated=%v correlation=%s lore_activations=%d\n",
				prompt.Tokens, prompt.Truncated, prompt.CorrelationToken, len(prompt.Lore.Activated))
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "local", "session identifier for reference tracking")
	cmd.Flags().StringVar(&input, "input", "", "player input for this turn")
	return cmd
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the reference store database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Storage.PostgresDSN == "" {
				return errors.New("storage.postgres_dsn is not configured")
			}

			pool, err := pgxpool.New(cmd.Context(), cfg.Storage.PostgresDSN)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			if err := refpack.NewPostgresStore(pool).Migrate(cmd.Context()); err != nil {
				return err
			}
			slog.Info("migrations applied")
			return nil
		},
	}
}
