package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "ammctl",
		Short:        "AMM pool simulator and order tooling",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Read a named oracle price",
		RunE:  runPrice,
	}

	priceCmd.Flags().String("rpc", "", "RPC URL")
	priceCmd.Flags().String("oracle", "ETH", "oracle name (ARB, BTC, ETH, GYD)")
	priceCmd.Flags().Bool("with-age", false, "also read the price age")
	priceCmd.Flags().String("oracles", "", "extra oracle name->address mappings (comma-separated key=value)")
	priceCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	priceCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	priceCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(priceCmd)

	orderCmd := &cobra.Command{
		Use:   "order",
		Short: "Build the rebalancing order of a weighted pool",
		RunE:  runOrder,
	}

	orderCmd.Flags().String("rpc", "", "RPC URL")
	orderCmd.Flags().String("factory", "", "pool factory address")
	orderCmd.Flags().String("pool", "", "weighted pool address")
	orderCmd.Flags().StringSlice("prices", nil, "token0,token1 prices in a common unit")
	orderCmd.Flags().String("out", "", "output JSON path, stdout when empty")
	orderCmd.Flags().Int("pool-cache-size", 256, "pool view cache size")
	orderCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	orderCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	orderCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(orderCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a pool scenario and record its events",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("scenario", "", "scenario JSON path")
	simulateCmd.Flags().String("out", "./data/pool_events.jsonl", "output events JSONL")
	simulateCmd.Flags().String("snapshot", "./data/pair_snapshot.json", "pair snapshot file")
	simulateCmd.Flags().Bool("resume", false, "restore the pair from its snapshot before replaying")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN, also stores events and snapshots there")
	simulateCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	simulateCmd.Flags().String("oracles", "", "extra oracle name->address mappings (comma-separated key=value)")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// writeJSON writes value indented to path, or to stdout when path is empty.
func writeJSON(stdout io.Writer, path string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
