package classic

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"mevAMM/internal/poolerr"
)

func TestGetAmountIn(t *testing.T) {
	reserve := uint256.NewInt(10000)

	in, err := GetAmountIn(uint256.NewInt(906), reserve, reserve, DefaultSwapFee)
	require.NoError(t, err)
	// The inverse rounds up, so it never undercuts the forward quote.
	out, err := GetAmountOut(in, reserve, reserve, DefaultSwapFee)
	require.NoError(t, err)
	require.False(t, out.Lt(uint256.NewInt(906)))

	_, err = GetAmountIn(reserve, reserve, reserve, DefaultSwapFee)
	require.ErrorIs(t, err, poolerr.ErrInsufficientLiquidity)
}

func TestGetAmountOutErrors(t *testing.T) {
	reserve := uint256.NewInt(10000)

	_, err := GetAmountOut(new(uint256.Int), reserve, reserve, DefaultSwapFee)
	require.ErrorIs(t, err, poolerr.ErrInsufficientInputAmount)

	_, err = GetAmountOut(uint256.NewInt(1), new(uint256.Int), reserve, DefaultSwapFee)
	require.ErrorIs(t, err, poolerr.ErrInsufficientLiquidity)

	_, err = GetAmountOut(uint256.NewInt(1), reserve, reserve, FeeScale)
	require.ErrorIs(t, err, poolerr.ErrFeeAboveMaximum)
}
