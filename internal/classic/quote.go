package classic

import (
	"fmt"

	"github.com/holiman/uint256"

	"mevAMM/internal/poolerr"
)

// GetAmountOut returns the largest output a swap of amountIn can take while keeping the
// fee-adjusted product, for a pair charging swapFee parts per FeeScale.
func GetAmountOut(amountIn, reserveIn, reserveOut *uint256.Int, swapFee uint64) (*uint256.Int, error) {
	if amountIn.IsZero() {
		return nil, poolerr.ErrInsufficientInputAmount
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, poolerr.ErrInsufficientLiquidity
	}
	if swapFee >= FeeScale {
		return nil, poolerr.ErrFeeAboveMaximum
	}
	// amountInWithFee = amountIn * (FeeScale - fee)
	withFee, overflow := new(uint256.Int).MulOverflow(amountIn, uint256.NewInt(FeeScale-swapFee))
	if overflow {
		return nil, fmt.Errorf("amount in with fee: %w", poolerr.ErrOverflow)
	}
	numerator, overflow := new(uint256.Int).MulOverflow(withFee, reserveOut)
	if overflow {
		return nil, fmt.Errorf("numerator: %w", poolerr.ErrOverflow)
	}
	denominator, overflow := new(uint256.Int).MulOverflow(reserveIn, feeScale)
	if overflow {
		return nil, fmt.Errorf("denominator: %w", poolerr.ErrOverflow)
	}
	if _, overflow = denominator.AddOverflow(denominator, withFee); overflow {
		return nil, fmt.Errorf("denominator: %w", poolerr.ErrOverflow)
	}
	return numerator.Div(numerator, denominator), nil
}

// GetAmountIn returns the smallest input that buys amountOut.
func GetAmountIn(amountOut, reserveIn, reserveOut *uint256.Int, swapFee uint64) (*uint256.Int, error) {
	if amountOut.IsZero() {
		return nil, poolerr.ErrInsufficientOutputAmount
	}
	if reserveIn.IsZero() || !amountOut.Lt(reserveOut) {
		return nil, poolerr.ErrInsufficientLiquidity
	}
	if swapFee >= FeeScale {
		return nil, poolerr.ErrFeeAboveMaximum
	}
	numerator, overflow := new(uint256.Int).MulOverflow(reserveIn, amountOut)
	if overflow {
		return nil, fmt.Errorf("numerator: %w", poolerr.ErrOverflow)
	}
	if _, overflow = numerator.MulOverflow(numerator, feeScale); overflow {
		return nil, fmt.Errorf("numerator: %w", poolerr.ErrOverflow)
	}
	denominator := new(uint256.Int).Sub(reserveOut, amountOut)
	if _, overflow = denominator.MulOverflow(denominator, uint256.NewInt(FeeScale-swapFee)); overflow {
		return nil, fmt.Errorf("denominator: %w", poolerr.ErrOverflow)
	}
	amountIn := numerator.Div(numerator, denominator)
	return amountIn.AddUint64(amountIn, 1), nil
}
