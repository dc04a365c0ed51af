package aggregate

import (
	"math/big"
)

const ratioScale = 18

func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(abs, denom)
	text := rat.FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

// computeFeeRates returns fee/reserve per side, nil where either is zero.
func computeFeeRates(fee0 *big.Int, fee1 *big.Int, reserve0 *big.Int, reserve1 *big.Int) (*string, *string) {
	var feeRate0 *string
	var feeRate1 *string

	if rate := computeRateFromInt(fee0, reserve0); rate != "" {
		feeRate0 = &rate
	}
	if rate := computeRateFromInt(fee1, reserve1); rate != "" {
		feeRate1 = &rate
	}
	return feeRate0, feeRate1
}

func computeRateFromInt(fee *big.Int, base *big.Int) string {
	if fee == nil || fee.Sign() == 0 || base == nil || base.Sign() == 0 {
		return ""
	}
	rat := new(big.Rat).SetFrac(fee, base)
	return rat.FloatString(ratioScale)
}
