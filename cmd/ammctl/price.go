package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mevAMM/internal/chain"
	"mevAMM/internal/config"
	"mevAMM/internal/contracts"
	"mevAMM/internal/oracle"
)

type priceOutput struct {
	Oracle  string `json:"oracle"`
	Address string `json:"address"`
	Price   string `json:"price"`
	Age     string `json:"age,omitempty"`
}

func runPrice(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPrice(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	registry, err := oracle.NewRegistry(cfg.Oracles)
	if err != nil {
		return err
	}
	feed, err := registry.Resolve(cfg.Oracle)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{MaxRetries: cfg.MaxRetries, RetryBackoff: cfg.RetryBackoff})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	guard, err := oracle.NewGuard(registry, contracts.NewChronicle(client), logger)
	if err != nil {
		return err
	}
	out := priceOutput{Oracle: cfg.Oracle, Address: feed.Hex()}
	if cfg.WithAge {
		price, age, err := guard.FetchPriceWithAge(ctx, cfg.Oracle)
		if err != nil {
			return err
		}
		out.Price, out.Age = price.Dec(), age.Dec()
	} else {
		price, err := guard.FetchPrice(ctx, cfg.Oracle)
		if err != nil {
			return err
		}
		out.Price = price.Dec()
	}

	logger.Info("price read", zap.String("oracle", cfg.Oracle), zap.String("price", out.Price))
	return writeJSON(cmd.OutOrStdout(), "", out)
}
