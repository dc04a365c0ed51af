package classic

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"mevAMM/internal/bnum"
	"mevAMM/internal/model"
	"mevAMM/internal/poolerr"
)

// Swap sends amount0Out/amount1Out to to, optionally invokes to with data, and then
// requires the fee-adjusted balance product to be at least the reserve product.
func (p *Pair) Swap(ctx context.Context, sender common.Address, amount0Out, amount1Out *uint256.Int, to common.Address, data []byte) error {
	if !p.initialized {
		return poolerr.ErrNotInitialized
	}
	if amount0Out.IsZero() && amount1Out.IsZero() {
		return poolerr.ErrInsufficientOutputAmount
	}
	reserve0, reserve1 := p.reserves.Get()
	if !amount0Out.Lt(reserve0) || !amount1Out.Lt(reserve1) {
		return poolerr.ErrInsufficientLiquidity
	}

	if !amount0Out.IsZero() {
		if err := p.tokens.SafeTransfer(ctx, p.token0, to, amount0Out); err != nil {
			return err
		}
	}
	if !amount1Out.IsZero() {
		if err := p.tokens.SafeTransfer(ctx, p.token1, to, amount1Out); err != nil {
			return err
		}
	}
	if len(data) > 0 {
		if _, err := p.tokens.Invoke(ctx, to, data); err != nil {
			return fmt.Errorf("swap callback %s: %w", to.Hex(), err)
		}
	}

	balance0, balance1, err := p.balances(ctx)
	if err != nil {
		return err
	}

	amount0In := bnum.SaturatingSub(balance0, bnum.SaturatingSub(reserve0, amount0Out))
	amount1In := bnum.SaturatingSub(balance1, bnum.SaturatingSub(reserve1, amount1Out))
	if amount0In.IsZero() && amount1In.IsZero() {
		return poolerr.ErrInsufficientInputAmount
	}

	adjusted0, err := p.adjustedBalance(balance0, amount0In)
	if err != nil {
		return err
	}
	adjusted1, err := p.adjustedBalance(balance1, amount1In)
	if err != nil {
		return err
	}
	if err := checkProduct(adjusted0, adjusted1, reserve0, reserve1); err != nil {
		return err
	}

	p.reserves.Update(balance0, balance1, reserve0, reserve1)

	p.emit(model.EventSwap, model.SwapEventData{
		Sender:     sender.Hex(),
		To:         to.Hex(),
		Amount0In:  amount0In.Dec(),
		Amount1In:  amount1In.Dec(),
		Amount0Out: amount0Out.Dec(),
		Amount1Out: amount1Out.Dec(),
	})
	p.emitSync()
	p.logger.Debug("swap",
		zap.String("to", to.Hex()),
		zap.Stringer("amount0_in", amount0In),
		zap.Stringer("amount1_in", amount1In),
		zap.Stringer("amount0_out", amount0Out),
		zap.Stringer("amount1_out", amount1Out),
	)
	return nil
}

// adjustedBalance returns balance*FeeScale - swapFee*amountIn.
func (p *Pair) adjustedBalance(balance, amountIn *uint256.Int) (*uint256.Int, error) {
	scaled, overflow := new(uint256.Int).MulOverflow(balance, feeScale)
	if overflow {
		return nil, fmt.Errorf("scale balance %s: %w", balance, poolerr.ErrOverflow)
	}
	fee, overflow := new(uint256.Int).MulOverflow(p.swapFee, amountIn)
	if overflow {
		return nil, fmt.Errorf("fee on %s: %w", amountIn, poolerr.ErrOverflow)
	}
	adjusted, underflow := scaled.SubOverflow(scaled, fee)
	if underflow {
		return nil, fmt.Errorf("fee exceeds balance: %w", poolerr.ErrUnderflow)
	}
	return adjusted, nil
}

// checkProduct enforces adjusted0*adjusted1 >= reserve0*reserve1*FeeScale^2.
func checkProduct(adjusted0, adjusted1, reserve0, reserve1 *uint256.Int) error {
	lhs, overflow := new(uint256.Int).MulOverflow(adjusted0, adjusted1)
	if overflow {
		return fmt.Errorf("adjusted balance product: %w", poolerr.ErrOverflow)
	}
	rhs, overflow := new(uint256.Int).MulOverflow(reserve0, reserve1)
	if overflow {
		return fmt.Errorf("reserve product: %w", poolerr.ErrOverflow)
	}
	if _, overflow = rhs.MulOverflow(rhs, feeScaleSquared); overflow {
		return fmt.Errorf("scaled reserve product: %w", poolerr.ErrOverflow)
	}
	if lhs.Lt(rhs) {
		return poolerr.ErrInvariantViolated
	}
	return nil
}
