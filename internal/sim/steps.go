package sim

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"mevAMM/internal/classic"
	"mevAMM/internal/contracts"
	"mevAMM/internal/order"
	"mevAMM/internal/token"
	"mevAMM/internal/weighted"
)

func (r *Runner) runStep(ctx context.Context, step Step, detail map[string]string) error {
	switch step.Op {
	case OpAddLiquidity:
		return r.addLiquidity(ctx, step, detail)
	case OpRemoveLiquidity:
		return r.removeLiquidity(ctx, step, detail)
	case OpSwap:
		return r.swap(ctx, step, detail)
	case OpTransfer:
		return r.transfer(step)
	case OpWeightedSwapIn, OpWeightedSwapOut:
		return r.weightedSwap(ctx, step, detail)
	case OpOrder:
		return r.order(ctx, step, detail)
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func (r *Runner) requirePair() (*classic.Pair, error) {
	if r.pair == nil {
		return nil, fmt.Errorf("scenario has no pair")
	}
	return r.pair, nil
}

func (r *Runner) requirePool() (*weighted.Pool, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("scenario has no weighted pool")
	}
	return r.pool, nil
}

// accounts parses step.From and step.To; an empty To defaults to From.
func accounts(step Step) (common.Address, common.Address, error) {
	from, err := ParseAddress("from", step.From)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	if step.To == "" {
		return from, from, nil
	}
	to, err := ParseAddress("to", step.To)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return from, to, nil
}

func (r *Runner) addLiquidity(ctx context.Context, step Step, detail map[string]string) error {
	pair, err := r.requirePair()
	if err != nil {
		return err
	}
	from, to, err := accounts(step)
	if err != nil {
		return err
	}
	amount0, err := ParseAmount(step.Amount0)
	if err != nil {
		return err
	}
	amount1, err := ParseAmount(step.Amount1)
	if err != nil {
		return err
	}
	if err := r.chain.Transfer(pair.Token0(), from, pair.Address(), amount0); err != nil {
		return err
	}
	if err := r.chain.Transfer(pair.Token1(), from, pair.Address(), amount1); err != nil {
		return err
	}
	liquidity, err := pair.AddLiquidity(ctx, from, to)
	if err != nil {
		return err
	}
	detail["liquidity"] = liquidity.Dec()
	return nil
}

func (r *Runner) removeLiquidity(ctx context.Context, step Step, detail map[string]string) error {
	pair, err := r.requirePair()
	if err != nil {
		return err
	}
	from, to, err := accounts(step)
	if err != nil {
		return err
	}
	liquidity, err := ParseAmount(step.Liquidity)
	if err != nil {
		return err
	}
	if err := pair.TransferLP(from, pair.Address(), liquidity); err != nil {
		return err
	}
	amount0, amount1, err := pair.RemoveLiquidity(ctx, from, to)
	if err != nil {
		// LP units live outside the host journal; hand them back.
		if refundErr := pair.TransferLP(pair.Address(), from, liquidity); refundErr != nil {
			return fmt.Errorf("%w (refund lp: %v)", err, refundErr)
		}
		return err
	}
	detail["amount0"] = amount0.Dec()
	detail["amount1"] = amount1.Dec()
	return nil
}

// swap pays amount_in of token_in into the pair and takes out amount_out of the other token.
// When amount_out is empty the quote for amount_in is used.
func (r *Runner) swap(ctx context.Context, step Step, detail map[string]string) error {
	pair, err := r.requirePair()
	if err != nil {
		return err
	}
	from, to, err := accounts(step)
	if err != nil {
		return err
	}
	tokenIn, err := r.token(step.TokenIn)
	if err != nil {
		return err
	}
	if tokenIn != pair.Token0() && tokenIn != pair.Token1() {
		return fmt.Errorf("token %s is not in the pair", step.TokenIn)
	}
	amountIn, err := ParseAmount(step.AmountIn)
	if err != nil {
		return err
	}

	reserve0, reserve1 := pair.Reserves()
	reserveIn, reserveOut := reserve0, reserve1
	if tokenIn == pair.Token1() {
		reserveIn, reserveOut = reserve1, reserve0
	}
	var amountOut *uint256.Int
	if step.AmountOut != "" {
		if amountOut, err = ParseAmount(step.AmountOut); err != nil {
			return err
		}
	} else if amountOut, err = classic.GetAmountOut(amountIn, reserveIn, reserveOut, pair.SwapFee()); err != nil {
		return err
	}

	if !amountIn.IsZero() {
		if err := r.chain.Transfer(tokenIn, from, pair.Address(), amountIn); err != nil {
			return err
		}
	}
	amount0Out, amount1Out := new(uint256.Int), new(uint256.Int)
	if tokenIn == pair.Token0() {
		amount1Out = amountOut
	} else {
		amount0Out = amountOut
	}
	if err := pair.Swap(ctx, from, amount0Out, amount1Out, to, nil); err != nil {
		return err
	}
	detail["amount_out"] = amountOut.Dec()
	return nil
}

func (r *Runner) transfer(step Step) error {
	from, to, err := accounts(step)
	if err != nil {
		return err
	}
	tokenAddr, err := r.token(step.Token)
	if err != nil {
		return err
	}
	amount, err := ParseAmount(step.Amount)
	if err != nil {
		return err
	}
	return r.chain.Transfer(tokenAddr, from, to, amount)
}

func (r *Runner) weightedSwap(ctx context.Context, step Step, detail map[string]string) error {
	pool, err := r.requirePool()
	if err != nil {
		return err
	}
	from, err := ParseAddress("from", step.From)
	if err != nil {
		return err
	}
	tokenIn, err := r.token(step.TokenIn)
	if err != nil {
		return err
	}
	tokenOut, err := r.token(step.TokenOut)
	if err != nil {
		return err
	}
	var quote weighted.SwapQuote
	if step.Op == OpWeightedSwapIn {
		amountIn, err := ParseAmount(step.AmountIn)
		if err != nil {
			return err
		}
		minOut, err := ParseAmount(step.MinAmountOut)
		if err != nil {
			return err
		}
		if err := r.chain.Approve(tokenIn, from, pool.Address(), amountIn); err != nil {
			return err
		}
		quote, err = pool.SwapExactAmountIn(ctx, from, tokenIn, amountIn, tokenOut, minOut, step.Oracle)
		if err != nil {
			return err
		}
	} else {
		maxIn, err := ParseAmount(step.MaxAmountIn)
		if err != nil {
			return err
		}
		amountOut, err := ParseAmount(step.AmountOut)
		if err != nil {
			return err
		}
		if err := r.chain.Approve(tokenIn, from, pool.Address(), maxIn); err != nil {
			return err
		}
		quote, err = pool.SwapExactAmountOut(ctx, from, tokenIn, maxIn, tokenOut, amountOut, step.Oracle)
		if err != nil {
			return err
		}
	}
	detail["amount_in"] = quote.AmountIn.Dec()
	detail["amount_out"] = quote.AmountOut.Dec()
	detail["spot_price_after"] = quote.SpotPriceAfter.Dec()
	return nil
}

// order builds the rebalancing order for the weighted pool and, with settle set, plays the
// settlement: the settler commits, checks the signature through the pool, and swaps with the
// trader (from) through the vault relayer.
func (r *Runner) order(ctx context.Context, step Step, detail map[string]string) error {
	pool, err := r.requirePool()
	if err != nil {
		return err
	}
	builder, err := r.orderBuilder(ctx)
	if err != nil {
		return err
	}
	prices := make([]*uint256.Int, 0, len(step.Prices))
	for _, raw := range step.Prices {
		price, err := ParseAmount(raw)
		if err != nil {
			return err
		}
		prices = append(prices, price)
	}
	result, err := builder.Order(ctx, pool.Address(), prices)
	if err != nil {
		return err
	}
	detail["hash"] = result.Hash.Hex()
	detail["sell_token"] = result.Order.SellToken.Hex()
	detail["buy_token"] = result.Order.BuyToken.Hex()
	detail["sell_amount"] = result.Order.SellAmount.Dec()
	detail["buy_amount"] = result.Order.BuyAmount.Dec()
	detail["signature"] = hexutil.Encode(result.Signature)
	if !step.Settle {
		return nil
	}

	trader, err := ParseAddress("from", step.From)
	if err != nil {
		return err
	}
	settler := pool.SolutionSettler()
	for _, interaction := range result.PreInteractions {
		if _, err := r.chain.Call(ctx, settler, interaction.Target, interaction.CallData); err != nil {
			return fmt.Errorf("pre-interaction %s: %w", interaction.Target.Hex(), err)
		}
	}
	if err := r.checkSignature(ctx, settler, pool.Address(), result); err != nil {
		return err
	}

	if err := r.chain.Transfer(result.Order.BuyToken, trader, pool.Address(), result.Order.BuyAmount); err != nil {
		return err
	}
	relayer := token.NewAdapter(r.chain, r.scenarioRelayer())
	if err := relayer.SafeTransferFrom(ctx, result.Order.SellToken, pool.Address(), trader, result.Order.SellAmount); err != nil {
		return err
	}
	for _, interaction := range result.PostInteractions {
		if _, err := r.chain.Call(ctx, settler, interaction.Target, interaction.CallData); err != nil {
			return fmt.Errorf("post-interaction %s: %w", interaction.Target.Hex(), err)
		}
	}
	detail["settled"] = "true"
	return nil
}

func (r *Runner) orderBuilder(ctx context.Context) (*order.Builder, error) {
	if r.builder != nil {
		return r.builder, nil
	}
	if r.factory == (common.Address{}) {
		return nil, fmt.Errorf("scenario weighted pool has no factory")
	}
	pools, err := contracts.NewPools(r.chain, contracts.DefaultPoolCacheSize)
	if err != nil {
		return nil, err
	}
	builder, err := order.NewBuilder(ctx, contracts.NewFactory(r.chain, r.factory), pools, token.NewAdapter(r.chain, common.Address{}), r.logger)
	if err != nil {
		return nil, err
	}
	builder.SetClock(r.cfg.Now)
	r.builder = builder
	return builder, nil
}

func (r *Runner) checkSignature(ctx context.Context, settler, pool common.Address, result order.Result) error {
	owner, body, err := order.SplitSignature(result.Signature)
	if err != nil {
		return err
	}
	if owner != pool {
		return fmt.Errorf("signature owner %s is not the pool", owner.Hex())
	}
	parsed, err := contracts.PoolABI()
	if err != nil {
		return err
	}
	data, err := parsed.Pack("isValidSignature", [32]byte(result.Hash), body)
	if err != nil {
		return fmt.Errorf("pack isValidSignature: %w", err)
	}
	ret, err := r.chain.Call(ctx, settler, pool, data)
	if err != nil {
		return err
	}
	values, err := parsed.Unpack("isValidSignature", ret)
	if err != nil {
		return fmt.Errorf("unpack isValidSignature: %w", err)
	}
	magic, ok := values[0].([4]byte)
	if !ok || magic != weighted.MagicValue {
		return fmt.Errorf("isValidSignature returned %x", values[0])
	}
	return nil
}

func (r *Runner) scenarioRelayer() common.Address {
	if r.scenario.Weighted == nil || r.scenario.Weighted.VaultRelayer == "" {
		return common.Address{}
	}
	return common.HexToAddress(r.scenario.Weighted.VaultRelayer)
}
