package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mevAMM/internal/chain"
	"mevAMM/internal/config"
	"mevAMM/internal/contracts"
	"mevAMM/internal/order"
	"mevAMM/internal/token"
)

type interactionOutput struct {
	Target   string `json:"target"`
	Value    string `json:"value"`
	CallData string `json:"callData"`
}

type orderOutput struct {
	SellToken         string              `json:"sellToken"`
	BuyToken          string              `json:"buyToken"`
	Receiver          string              `json:"receiver"`
	SellAmount        string              `json:"sellAmount"`
	BuyAmount         string              `json:"buyAmount"`
	ValidTo           uint32              `json:"validTo"`
	AppData           string              `json:"appData"`
	FeeAmount         string              `json:"feeAmount"`
	Kind              string              `json:"kind"`
	PartiallyFillable bool                `json:"partiallyFillable"`
	SellTokenBalance  string              `json:"sellTokenBalance"`
	BuyTokenBalance   string              `json:"buyTokenBalance"`
	Hash              string              `json:"hash"`
	Signature         string              `json:"signature"`
	PreInteractions   []interactionOutput `json:"preInteractions"`
	PostInteractions  []interactionOutput `json:"postInteractions"`
}

func runOrder(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOrder(cfgFile, cmd.Flags())
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
	if !common.IsHexAddress(cfg.Factory) {
		return fmt.Errorf("invalid factory address %q", cfg.Factory)
	}
	if !common.IsHexAddress(cfg.Pool) {
		return fmt.Errorf("invalid pool address %q", cfg.Pool)
	}
	prices := make([]*uint256.Int, 0, len(cfg.Prices))
	for _, raw := range cfg.Prices {
		price, err := uint256.FromDecimal(raw)
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", raw, err)
		}
		prices = append(prices, price)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{MaxRetries: cfg.MaxRetries, RetryBackoff: cfg.RetryBackoff})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	pools, err := contracts.NewPools(client, cfg.PoolCacheSize)
	if err != nil {
		return err
	}
	builder, err := order.NewBuilder(ctx,
		contracts.NewFactory(client, common.HexToAddress(cfg.Factory)),
		pools,
		token.NewAdapter(client, common.Address{}),
		logger,
	)
	if err != nil {
		return err
	}

	// Validity is measured from the chain's clock, not the local one.
	blockTime, err := client.LatestBlockTime(ctx)
	if err != nil {
		return fmt.Errorf("latest block time: %w", err)
	}
	builder.SetClock(func() time.Time { return blockTime })

	result, err := builder.Order(ctx, common.HexToAddress(cfg.Pool), prices)
	if err != nil {
		return err
	}

	logger.Info("order built",
		zap.String("pool", cfg.Pool),
		zap.String("hash", result.Hash.Hex()),
		zap.Uint32("valid_to", result.Order.ValidTo),
	)
	return writeJSON(cmd.OutOrStdout(), cfg.Out, newOrderOutput(result))
}

func newOrderOutput(result order.Result) orderOutput {
	o := result.Order
	return orderOutput{
		SellToken:         o.SellToken.Hex(),
		BuyToken:          o.BuyToken.Hex(),
		Receiver:          o.Receiver.Hex(),
		SellAmount:        o.SellAmount.Dec(),
		BuyAmount:         o.BuyAmount.Dec(),
		ValidTo:           o.ValidTo,
		AppData:           o.AppData.Hex(),
		FeeAmount:         o.FeeAmount.Dec(),
		Kind:              o.Kind.Hex(),
		PartiallyFillable: o.PartiallyFillable,
		SellTokenBalance:  o.SellTokenBalance.Hex(),
		BuyTokenBalance:   o.BuyTokenBalance.Hex(),
		Hash:              result.Hash.Hex(),
		Signature:         hexutil.Encode(result.Signature),
		PreInteractions:   interactionsOutput(result.PreInteractions),
		PostInteractions:  interactionsOutput(result.PostInteractions),
	}
}

func interactionsOutput(interactions []order.Interaction) []interactionOutput {
	out := make([]interactionOutput, 0, len(interactions))
	for _, in := range interactions {
		out = append(out, interactionOutput{
			Target:   in.Target.Hex(),
			Value:    in.Value.Dec(),
			CallData: hexutil.Encode(in.CallData),
		})
	}
	return out
}
