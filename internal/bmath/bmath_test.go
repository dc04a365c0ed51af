package bmath

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"mevAMM/internal/bnum"
)

var minFee = uint256.NewInt(1_000_000_000_000)

func TestCalcOutGivenInEqualWeights(t *testing.T) {
	out, err := CalcOutGivenIn(bnum.Ether(200), bnum.One, bnum.Ether(200), bnum.One, bnum.Ether(10), minFee)
	require.NoError(t, err)
	require.Equal(t, "9523800453514307400", out.Dec())
}

func TestCalcInGivenOutInvertsOutGivenIn(t *testing.T) {
	out, err := CalcOutGivenIn(bnum.Ether(200), bnum.One, bnum.Ether(200), bnum.One, bnum.Ether(10), minFee)
	require.NoError(t, err)

	in, err := CalcInGivenOut(bnum.Ether(200), bnum.One, bnum.Ether(200), bnum.One, out, minFee)
	require.NoError(t, err)
	require.Equal(t, bnum.Ether(10).Dec(), in.Dec())
}

func TestCalcOutGivenInUnevenWeights(t *testing.T) {
	out, err := CalcOutGivenIn(bnum.Ether(100), bnum.Ether(4), bnum.Ether(50), bnum.One, bnum.Ether(5), minFee)
	require.NoError(t, err)
	require.Equal(t, "8864868425143303450", out.Dec())
}

func TestCalcSpotPrice(t *testing.T) {
	spot, err := CalcSpotPrice(bnum.Ether(200), bnum.One, bnum.Ether(200), bnum.One, minFee)
	require.NoError(t, err)
	require.Equal(t, "1000001000001000001", spot.Dec())

	sansFee, err := CalcSpotPrice(bnum.Ether(200), bnum.One, bnum.Ether(200), bnum.One, bnum.Zero())
	require.NoError(t, err)
	require.True(t, sansFee.Eq(bnum.One))
}

func TestCalcInGivenOutRejectsFullDrain(t *testing.T) {
	_, err := CalcInGivenOut(bnum.Ether(200), bnum.One, bnum.Ether(200), bnum.One, bnum.Ether(200), minFee)
	require.Error(t, err)
}
