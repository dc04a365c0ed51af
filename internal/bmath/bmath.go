// Package bmath holds the weighted constant-function pricing formulas.
//
// Balances and amounts are token base units, weights are denormalized fixed-point values and
// fees are fixed-point fractions of bnum.One.
package bmath

import (
	"fmt"

	"github.com/holiman/uint256"

	"mevAMM/internal/bnum"
)

// CalcSpotPrice returns the price of tokenOut in tokenIn including the swap fee:
//
//	sP = (bI / wI) / (bO / wO) * 1 / (1 - sF)
func CalcSpotPrice(balanceIn, weightIn, balanceOut, weightOut, swapFee *uint256.Int) (*uint256.Int, error) {
	numer, err := bnum.Div(balanceIn, weightIn)
	if err != nil {
		return nil, fmt.Errorf("spot price numer: %w", err)
	}
	denom, err := bnum.Div(balanceOut, weightOut)
	if err != nil {
		return nil, fmt.Errorf("spot price denom: %w", err)
	}
	ratio, err := bnum.Div(numer, denom)
	if err != nil {
		return nil, fmt.Errorf("spot price ratio: %w", err)
	}
	feeComplement, err := bnum.Sub(bnum.One, swapFee)
	if err != nil {
		return nil, fmt.Errorf("spot price fee: %w", err)
	}
	scale, err := bnum.Div(bnum.One, feeComplement)
	if err != nil {
		return nil, fmt.Errorf("spot price scale: %w", err)
	}
	return bnum.Mul(ratio, scale)
}

// CalcOutGivenIn returns the amount of tokenOut a deposit of amountIn buys:
//
//	aO = bO * (1 - (bI / (bI + aI * (1 - sF))) ^ (wI / wO))
func CalcOutGivenIn(balanceIn, weightIn, balanceOut, weightOut, amountIn, swapFee *uint256.Int) (*uint256.Int, error) {
	weightRatio, err := bnum.Div(weightIn, weightOut)
	if err != nil {
		return nil, fmt.Errorf("out given in weight ratio: %w", err)
	}
	feeComplement, err := bnum.Sub(bnum.One, swapFee)
	if err != nil {
		return nil, fmt.Errorf("out given in fee: %w", err)
	}
	adjustedIn, err := bnum.Mul(amountIn, feeComplement)
	if err != nil {
		return nil, err
	}
	newBalanceIn, err := bnum.Add(balanceIn, adjustedIn)
	if err != nil {
		return nil, err
	}
	y, err := bnum.Div(balanceIn, newBalanceIn)
	if err != nil {
		return nil, err
	}
	foo, err := bnum.Pow(y, weightRatio)
	if err != nil {
		return nil, fmt.Errorf("out given in pow: %w", err)
	}
	bar, err := bnum.Sub(bnum.One, foo)
	if err != nil {
		return nil, err
	}
	return bnum.Mul(balanceOut, bar)
}

// CalcInGivenOut returns the amount of tokenIn needed to withdraw amountOut:
//
//	aI = bI * ((bO / (bO - aO)) ^ (wO / wI) - 1) / (1 - sF)
func CalcInGivenOut(balanceIn, weightIn, balanceOut, weightOut, amountOut, swapFee *uint256.Int) (*uint256.Int, error) {
	weightRatio, err := bnum.Div(weightOut, weightIn)
	if err != nil {
		return nil, fmt.Errorf("in given out weight ratio: %w", err)
	}
	diff, err := bnum.Sub(balanceOut, amountOut)
	if err != nil {
		return nil, fmt.Errorf("in given out: amount exceeds balance: %w", err)
	}
	y, err := bnum.Div(balanceOut, diff)
	if err != nil {
		return nil, err
	}
	foo, err := bnum.Pow(y, weightRatio)
	if err != nil {
		return nil, fmt.Errorf("in given out pow: %w", err)
	}
	foo, err = bnum.Sub(foo, bnum.One)
	if err != nil {
		return nil, err
	}
	feeComplement, err := bnum.Sub(bnum.One, swapFee)
	if err != nil {
		return nil, fmt.Errorf("in given out fee: %w", err)
	}
	scaled, err := bnum.Mul(balanceIn, foo)
	if err != nil {
		return nil, err
	}
	return bnum.Div(scaled, feeComplement)
}
