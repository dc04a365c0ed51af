package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mevAMM/internal/config"
	"mevAMM/internal/sim"
	"mevAMM/internal/storage"
	"mevAMM/internal/storage/postgres"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Scenario == "" {
		return fmt.Errorf("scenario path is required")
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	scenario, err := sim.LoadScenario(cfg.Scenario)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := storage.Multi{storage.NewJsonlStorage(cfg.Out)}
	var snapshots storage.SnapshotStore
	if cfg.Snapshot != "" {
		snapshots = storage.NewFileSnapshotStore(cfg.Snapshot)
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN, cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		sinks = append(sinks, store)
		snapshots = store
	}

	logger.Info("simulate start",
		zap.String("scenario", cfg.Scenario),
		zap.Int("steps", len(scenario.Steps)),
		zap.String("out", cfg.Out),
		zap.String("snapshot", cfg.Snapshot),
		zap.Bool("resume", cfg.Resume),
		zap.Bool("postgres", cfg.PGDSN != ""),
	)

	runner := sim.NewRunner(sim.RunConfig{
		Resume:  cfg.Resume,
		Oracles: cfg.Oracles,
	}, scenario, sinks, snapshots, logger)

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("simulate complete", zap.Int("steps", len(report.Steps)), zap.Int("pools", len(report.Summaries)))
	return writeJSON(cmd.OutOrStdout(), "", report)
}
