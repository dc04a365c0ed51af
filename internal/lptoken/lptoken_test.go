package lptoken

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"mevAMM/internal/poolerr"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func sumBalances(s *Supply) *uint256.Int {
	total := new(uint256.Int)
	for _, bal := range s.Holders() {
		total.Add(total, bal)
	}
	return total
}

func TestMintBurnTransfer(t *testing.T) {
	s := NewSupply()
	require.NoError(t, s.Mint(alice, uint256.NewInt(1000)))
	require.NoError(t, s.Transfer(alice, bob, uint256.NewInt(400)))
	require.NoError(t, s.Burn(bob, uint256.NewInt(100)))

	require.Equal(t, uint64(600), s.BalanceOf(alice).Uint64())
	require.Equal(t, uint64(300), s.BalanceOf(bob).Uint64())
	require.Equal(t, uint64(900), s.TotalSupply().Uint64())
	require.True(t, sumBalances(s).Eq(s.TotalSupply()))
}

func TestInsufficientBalance(t *testing.T) {
	s := NewSupply()
	require.NoError(t, s.Mint(alice, uint256.NewInt(10)))

	require.ErrorIs(t, s.Transfer(alice, bob, uint256.NewInt(11)), poolerr.ErrInsufficientBalance)
	require.ErrorIs(t, s.Burn(bob, uint256.NewInt(1)), poolerr.ErrInsufficientBalance)
	require.Equal(t, uint64(10), s.TotalSupply().Uint64())
}

func TestMintOverflow(t *testing.T) {
	s := NewSupply()
	require.NoError(t, s.Mint(alice, new(uint256.Int).SetAllOne()))
	require.ErrorIs(t, s.Mint(bob, uint256.NewInt(1)), poolerr.ErrSupplyOverflow)
	require.True(t, s.BalanceOf(bob).IsZero())
}

func TestTransferFromSpendsAllowance(t *testing.T) {
	s := NewSupply()
	require.NoError(t, s.Mint(alice, uint256.NewInt(100)))

	require.ErrorIs(t, s.TransferFrom(bob, alice, bob, uint256.NewInt(1)), poolerr.ErrInsufficientAllowance)

	s.Approve(alice, bob, uint256.NewInt(60))
	require.NoError(t, s.TransferFrom(bob, alice, bob, uint256.NewInt(50)))
	require.Equal(t, uint64(10), s.Allowance(alice, bob).Uint64())
	require.Equal(t, uint64(50), s.BalanceOf(bob).Uint64())
}

func TestRestore(t *testing.T) {
	s := NewSupply()
	require.NoError(t, s.Restore(map[common.Address]*uint256.Int{
		alice:            uint256.NewInt(9000),
		common.Address{}: uint256.NewInt(1000),
	}))
	require.Equal(t, uint64(10000), s.TotalSupply().Uint64())
	require.Equal(t, uint64(1000), s.BalanceOf(common.Address{}).Uint64())
}
