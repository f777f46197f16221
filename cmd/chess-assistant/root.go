package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/park285/chess-assistant-bot/internal/chessbuilder"
	"github.com/park285/chess-assistant-bot/internal/config"
	"github.com/park285/chess-assistant-bot/internal/obslog"
	"github.com/park285/chess-assistant-bot/internal/tracing"
)

var (
	version = "dev"
	cfgFile string
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:           "chess-assistant",
	Short:         "Chess board tracking and engine analysis assistant",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		v := viper.New()
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		}
		loaded, err := config.Load(v)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg = loaded
		if err := obslog.Init(cfg.Log); err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file (environment variables still override)")
}

// app bundles everything a subcommand needs and tears it down in order.
type app struct {
	deps     *chessbuilder.Deps
	provider *tracing.Provider
	logger   *zap.Logger
}

func bootstrap(ctx context.Context) (*app, error) {
	logger := obslog.L()
	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	deps, err := chessbuilder.New(ctx, cfg, logger, chessbuilder.Options{Tracer: provider.Tracer()})
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}
	return &app{deps: deps, provider: provider, logger: logger}, nil
}

func (r *app) close(ctx context.Context) {
	if err := r.deps.Close(); err != nil {
		r.logger.Warn("shutdown_deps_failed", zap.Error(err))
	}
	if err := r.provider.Shutdown(ctx); err != nil {
		r.logger.Warn("shutdown_tracing_failed", zap.Error(err))
	}
	_ = r.logger.Sync()
}
