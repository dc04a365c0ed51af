package weighted

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"mevAMM/internal/bmath"
	"mevAMM/internal/bnum"
	"mevAMM/internal/model"
	"mevAMM/internal/poolerr"
)

type swapSide struct {
	inRecord   *Record
	outRecord  *Record
	balanceIn  *uint256.Int
	balanceOut *uint256.Int
}

func (p *Pool) loadSide(ctx context.Context, tokenIn, tokenOut common.Address) (swapSide, error) {
	inRecord, err := p.record(tokenIn)
	if err != nil {
		return swapSide{}, err
	}
	outRecord, err := p.record(tokenOut)
	if err != nil {
		return swapSide{}, err
	}
	if !p.finalized {
		return swapSide{}, poolerr.ErrPoolNotFinalized
	}
	balanceIn, err := p.erc20.BalanceOf(ctx, tokenIn, p.address)
	if err != nil {
		return swapSide{}, err
	}
	balanceOut, err := p.erc20.BalanceOf(ctx, tokenOut, p.address)
	if err != nil {
		return swapSide{}, err
	}
	return swapSide{inRecord: inRecord, outRecord: outRecord, balanceIn: balanceIn, balanceOut: balanceOut}, nil
}

// SwapExactAmountIn sells exactly amountIn of tokenIn for at least minAmountOut of tokenOut.
// The spot price before and after the swap must not exceed the named oracle's price.
func (p *Pool) SwapExactAmountIn(ctx context.Context, caller, tokenIn common.Address, amountIn *uint256.Int, tokenOut common.Address, minAmountOut *uint256.Int, oracleName string) (SwapQuote, error) {
	side, err := p.loadSide(ctx, tokenIn, tokenOut)
	if err != nil {
		return SwapQuote{}, err
	}

	maxIn, err := bnum.Mul(side.balanceIn, MaxInRatio)
	if err != nil {
		return SwapQuote{}, err
	}
	if amountIn.Gt(maxIn) {
		return SwapQuote{}, poolerr.ErrTokenAmountInAboveMaxRatio
	}

	maxPrice, err := p.guard.FetchPrice(ctx, oracleName)
	if err != nil {
		return SwapQuote{}, err
	}

	spotBefore, err := bmath.CalcSpotPrice(side.balanceIn, side.inRecord.Denorm, side.balanceOut, side.outRecord.Denorm, p.swapFee)
	if err != nil {
		return SwapQuote{}, err
	}
	if spotBefore.Gt(maxPrice) {
		return SwapQuote{}, fmt.Errorf("spot price %s above %s: %w", spotBefore, maxPrice, poolerr.ErrSpotPriceAboveMaxPrice)
	}

	amountOut, err := bmath.CalcOutGivenIn(side.balanceIn, side.inRecord.Denorm, side.balanceOut, side.outRecord.Denorm, amountIn, p.swapFee)
	if err != nil {
		return SwapQuote{}, err
	}
	if amountOut.Lt(minAmountOut) {
		return SwapQuote{}, fmt.Errorf("amount out %s below %s: %w", amountOut, minAmountOut, poolerr.ErrTokenAmountOutBelowMinOut)
	}

	quote, err := p.checkPrices(side, amountIn, amountOut, spotBefore, maxPrice)
	if err != nil {
		return SwapQuote{}, err
	}
	if err := p.settle(ctx, caller, tokenIn, tokenOut, quote); err != nil {
		return SwapQuote{}, err
	}
	return quote, nil
}

// SwapExactAmountOut buys exactly amountOut of tokenOut for at most maxAmountIn of tokenIn,
// under the same oracle bound as SwapExactAmountIn.
func (p *Pool) SwapExactAmountOut(ctx context.Context, caller, tokenIn common.Address, maxAmountIn *uint256.Int, tokenOut common.Address, amountOut *uint256.Int, oracleName string) (SwapQuote, error) {
	side, err := p.loadSide(ctx, tokenIn, tokenOut)
	if err != nil {
		return SwapQuote{}, err
	}

	maxOut, err := bnum.Mul(side.balanceOut, MaxOutRatio)
	if err != nil {
		return SwapQuote{}, err
	}
	if amountOut.Gt(maxOut) {
		return SwapQuote{}, poolerr.ErrTokenAmountOutAboveMaxRatio
	}

	maxPrice, err := p.guard.FetchPrice(ctx, oracleName)
	if err != nil {
		return SwapQuote{}, err
	}

	spotBefore, err := bmath.CalcSpotPrice(side.balanceIn, side.inRecord.Denorm, side.balanceOut, side.outRecord.Denorm, p.swapFee)
	if err != nil {
		return SwapQuote{}, err
	}
	if spotBefore.Gt(maxPrice) {
		return SwapQuote{}, fmt.Errorf("spot price %s above %s: %w", spotBefore, maxPrice, poolerr.ErrSpotPriceAboveMaxPrice)
	}

	amountIn, err := bmath.CalcInGivenOut(side.balanceIn, side.inRecord.Denorm, side.balanceOut, side.outRecord.Denorm, amountOut, p.swapFee)
	if err != nil {
		return SwapQuote{}, err
	}
	if amountIn.Gt(maxAmountIn) {
		return SwapQuote{}, fmt.Errorf("amount in %s above %s: %w", amountIn, maxAmountIn, poolerr.ErrTokenAmountInAboveMaxIn)
	}

	quote, err := p.checkPrices(side, amountIn, amountOut, spotBefore, maxPrice)
	if err != nil {
		return SwapQuote{}, err
	}
	if err := p.settle(ctx, caller, tokenIn, tokenOut, quote); err != nil {
		return SwapQuote{}, err
	}
	return quote, nil
}

// checkPrices applies the post-trade price checks shared by both swap directions.
func (p *Pool) checkPrices(side swapSide, amountIn, amountOut, spotBefore, maxPrice *uint256.Int) (SwapQuote, error) {
	balanceIn, err := bnum.Add(side.balanceIn, amountIn)
	if err != nil {
		return SwapQuote{}, err
	}
	balanceOut, err := bnum.Sub(side.balanceOut, amountOut)
	if err != nil {
		return SwapQuote{}, err
	}

	spotAfter, err := bmath.CalcSpotPrice(balanceIn, side.inRecord.Denorm, balanceOut, side.outRecord.Denorm, p.swapFee)
	if err != nil {
		return SwapQuote{}, err
	}
	if spotAfter.Lt(spotBefore) {
		return SwapQuote{}, poolerr.ErrSpotPriceAfterBelowSpotPriceBefore
	}
	if spotAfter.Gt(maxPrice) {
		return SwapQuote{}, fmt.Errorf("spot price after %s above %s: %w", spotAfter, maxPrice, poolerr.ErrSpotPriceAboveMaxPrice)
	}
	ratio, err := bnum.Div(amountIn, amountOut)
	if err != nil {
		return SwapQuote{}, err
	}
	if spotBefore.Gt(ratio) {
		return SwapQuote{}, poolerr.ErrSpotPriceBeforeAboveTokenRatio
	}

	return SwapQuote{
		AmountIn:        amountIn,
		AmountOut:       amountOut,
		SpotPriceBefore: spotBefore,
		SpotPriceAfter:  spotAfter,
	}, nil
}

// settle pulls the input from caller, pushes the output to caller and records the swap.
func (p *Pool) settle(ctx context.Context, caller, tokenIn, tokenOut common.Address, quote SwapQuote) error {
	if err := p.erc20.SafeTransferFrom(ctx, tokenIn, caller, p.address, quote.AmountIn); err != nil {
		return err
	}
	if err := p.erc20.SafeTransfer(ctx, tokenOut, caller, quote.AmountOut); err != nil {
		return err
	}

	p.emit(model.EventWeightedSwap, model.WeightedSwapEventData{
		Caller:          caller.Hex(),
		TokenIn:         tokenIn.Hex(),
		TokenOut:        tokenOut.Hex(),
		AmountIn:        quote.AmountIn.Dec(),
		AmountOut:       quote.AmountOut.Dec(),
		SpotPriceBefore: quote.SpotPriceBefore.Dec(),
		SpotPriceAfter:  quote.SpotPriceAfter.Dec(),
	})
	p.logger.Debug("swap",
		zap.String("caller", caller.Hex()),
		zap.String("token_in", tokenIn.Hex()),
		zap.String("token_out", tokenOut.Hex()),
		zap.Stringer("amount_in", quote.AmountIn),
		zap.Stringer("amount_out", quote.AmountOut),
	)
	return nil
}
