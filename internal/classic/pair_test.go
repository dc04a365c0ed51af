package classic

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mevAMM/internal/memchain"
	"mevAMM/internal/model"
	"mevAMM/internal/poolerr"
	"mevAMM/internal/token"
)

var (
	token0   = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	token1   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	pairAddr = common.HexToAddress("0x000000000000000000000000000000000000fa12")
	factory  = common.HexToAddress("0x000000000000000000000000000000000000fac7")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	borrower = common.HexToAddress("0x000000000000000000000000000000000000f1a5")
)

type fixture struct {
	chain *memchain.Chain
	pair  *Pair
}

func newFixture(t *testing.T, fee uint64) *fixture {
	t.Helper()
	c := memchain.New()
	c.DeployToken(token0, "T0", 18)
	c.DeployToken(token1, "T1", 18)
	for _, account := range []common.Address{alice, bob} {
		require.NoError(t, c.Mint(token0, account, uint256.NewInt(1_000_000)))
		require.NoError(t, c.Mint(token1, account, uint256.NewInt(1_000_000)))
	}

	pair, err := NewPair(Config{Address: pairAddr, SwapFee: &fee}, c, zaptest.NewLogger(t))
	require.NoError(t, err)
	pair.SetClock(func() time.Time { return time.Unix(1_700_000_000, 0) })
	require.NoError(t, pair.Initialize(factory, token0, token1))
	return &fixture{chain: c, pair: pair}
}

func (f *fixture) deposit(t *testing.T, from common.Address, amount0, amount1 uint64) (*uint256.Int, error) {
	t.Helper()
	require.NoError(t, f.chain.Transfer(token0, from, pairAddr, uint256.NewInt(amount0)))
	require.NoError(t, f.chain.Transfer(token1, from, pairAddr, uint256.NewInt(amount1)))
	return f.pair.AddLiquidity(context.Background(), from, from)
}

// swap0For1 pays amountIn of token0 and asks for amountOut of token1, reverting host
// state on failure.
func (f *fixture) swap0For1(t *testing.T, amountIn, amountOut uint64) error {
	t.Helper()
	return f.chain.Atomic(func() error {
		if err := f.chain.Transfer(token0, alice, pairAddr, uint256.NewInt(amountIn)); err != nil {
			return err
		}
		return f.pair.Swap(context.Background(), alice, new(uint256.Int), uint256.NewInt(amountOut), alice, nil)
	})
}

func product(p *Pair) *uint256.Int {
	r0, r1 := p.Reserves()
	return new(uint256.Int).Mul(r0, r1)
}

func TestBootstrapLocksMinimumLiquidity(t *testing.T) {
	f := newFixture(t, DefaultSwapFee)

	liquidity, err := f.deposit(t, alice, 10000, 10000)
	require.NoError(t, err)
	require.Equal(t, uint64(9000), liquidity.Uint64())
	require.Equal(t, uint64(9000), f.pair.BalanceOf(alice).Uint64())
	require.Equal(t, uint64(MinimumLiquidity), f.pair.BalanceOf(common.Address{}).Uint64())
	require.Equal(t, uint64(10000), f.pair.TotalSupply().Uint64())

	r0, r1 := f.pair.Reserves()
	require.Equal(t, uint64(10000), r0.Uint64())
	require.Equal(t, uint64(10000), r1.Uint64())

	events := f.pair.DrainEvents()
	require.Len(t, events, 2)
	require.Equal(t, model.EventMint, events[0].EventName)
	require.Equal(t, model.EventSync, events[1].EventName)
	mint, ok := events[0].Decoded.(model.MintEventData)
	require.True(t, ok)
	require.Equal(t, "9000", mint.Liquidity)
	require.Equal(t, uint64(1), events[0].Sequence)
	require.Empty(t, f.pair.DrainEvents())
}

func TestBootstrapBelowMinimum(t *testing.T) {
	f := newFixture(t, DefaultSwapFee)
	_, err := f.deposit(t, alice, 999, 999)
	require.ErrorIs(t, err, poolerr.ErrUnderflow)

	f = newFixture(t, DefaultSwapFee)
	_, err = f.deposit(t, alice, 1000, 1000)
	require.ErrorIs(t, err, poolerr.ErrZeroLiquidity)
	require.True(t, f.pair.TotalSupply().IsZero())
}

func TestProportionalDeposit(t *testing.T) {
	f := newFixture(t, DefaultSwapFee)
	_, err := f.deposit(t, alice, 10000, 10000)
	require.NoError(t, err)

	liquidity, err := f.deposit(t, bob, 10000, 10000)
	require.NoError(t, err)
	require.Equal(t, uint64(10000), liquidity.Uint64())
	require.Equal(t, uint64(20000), f.pair.TotalSupply().Uint64())

	// The smaller side sets the share.
	liquidity, err = f.deposit(t, bob, 1000, 5000)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), liquidity.Uint64())
}

func TestDoubledDepositMintsDouble(t *testing.T) {
	mint := func(amount0, amount1 uint64) uint64 {
		f := newFixture(t, DefaultSwapFee)
		_, err := f.deposit(t, alice, 10000, 10000)
		require.NoError(t, err)
		require.NoError(t, f.swap0For1(t, 1000, 906))

		liquidity, err := f.deposit(t, bob, amount0, amount1)
		require.NoError(t, err)
		return liquidity.Uint64()
	}

	single := mint(1100, 910)
	require.Equal(t, uint64(1000), single)
	require.Equal(t, 2*single, mint(2200, 1820))
}

func TestAddLiquidityBalanceBelowReserve(t *testing.T) {
	f := newFixture(t, DefaultSwapFee)
	_, err := f.deposit(t, alice, 10000, 10000)
	require.NoError(t, err)
	f.pair.DrainEvents()

	// Tokens leave the pair without going through it.
	require.NoError(t, f.chain.Transfer(token1, pairAddr, bob, uint256.NewInt(1)))
	_, err = f.pair.AddLiquidity(context.Background(), alice, alice)
	require.ErrorIs(t, err, poolerr.ErrOverflow)
	require.Equal(t, uint64(10000), f.pair.TotalSupply().Uint64())
	require.Empty(t, f.pair.DrainEvents())
}

func TestAddRemoveRoundTrip(t *testing.T) {
	f := newFixture(t, DefaultSwapFee)
	_, err := f.deposit(t, alice, 10000, 10000)
	require.NoError(t, err)

	liquidity, err := f.deposit(t, bob, 5000, 5000)
	require.NoError(t, err)
	require.Equal(t, uint64(5000), liquidity.Uint64())

	require.NoError(t, f.pair.TransferLP(bob, pairAddr, liquidity))
	amount0, amount1, err := f.pair.RemoveLiquidity(context.Background(), bob, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(5000), amount0.Uint64())
	require.Equal(t, uint64(5000), amount1.Uint64())
	require.Equal(t, uint64(1_000_000), f.chain.BalanceOf(token0, bob).Uint64())
	require.Equal(t, uint64(10000), f.pair.TotalSupply().Uint64())

	r0, r1 := f.pair.Reserves()
	require.Equal(t, uint64(10000), r0.Uint64())
	require.Equal(t, uint64(10000), r1.Uint64())
}

func TestRemoveWithoutLiquidity(t *testing.T) {
	f := newFixture(t, DefaultSwapFee)
	_, err := f.deposit(t, alice, 10000, 10000)
	require.NoError(t, err)

	_, _, err = f.pair.RemoveLiquidity(context.Background(), bob, bob)
	require.ErrorIs(t, err, poolerr.ErrInsufficientLiquidityBurned)
}

func TestSwapRequiresOutput(t *testing.T) {
	f := newFixture(t, DefaultSwapFee)
	_, err := f.deposit(t, alice, 10000, 10000)
	require.NoError(t, err)

	err = f.pair.Swap(context.Background(), alice, new(uint256.Int), new(uint256.Int), alice, nil)
	require.ErrorIs(t, err, poolerr.ErrInsufficientOutputAmount)

	err = f.pair.Swap(context.Background(), alice, new(uint256.Int), uint256.NewInt(10000), alice, nil)
	require.ErrorIs(t, err, poolerr.ErrInsufficientLiquidity)
}

func TestSwapWithoutInput(t *testing.T) {
	f := newFixture(t, DefaultSwapFee)
	_, err := f.deposit(t, alice, 10000, 10000)
	require.NoError(t, err)

	err = f.swap0For1(t, 0, 10)
	require.ErrorIs(t, err, poolerr.ErrInsufficientInputAmount)
	require.Equal(t, uint64(10000), f.chain.BalanceOf(token1, pairAddr).Uint64())
}

func TestSwapKeepsProduct(t *testing.T) {
	f := newFixture(t, DefaultSwapFee)
	_, err := f.deposit(t, alice, 10000, 10000)
	require.NoError(t, err)
	before := product(f.pair)

	r0, r1 := f.pair.Reserves()
	quote, err := GetAmountOut(uint256.NewInt(1000), r0, r1, DefaultSwapFee)
	require.NoError(t, err)
	require.Equal(t, uint64(906), quote.Uint64())

	require.ErrorIs(t, f.swap0For1(t, 1000, 907), poolerr.ErrInvariantViolated)
	require.Equal(t, poolerr.KindInvariantViolated, poolerr.KindOf(f.swap0For1(t, 1000, 907)))
	require.True(t, product(f.pair).Eq(before))
	require.Equal(t, uint64(10000), f.chain.BalanceOf(token1, pairAddr).Uint64())

	require.NoError(t, f.swap0For1(t, 1000, 906))
	require.False(t, product(f.pair).Lt(before))

	r0, r1 = f.pair.Reserves()
	require.Equal(t, uint64(11000), r0.Uint64())
	require.Equal(t, uint64(9094), r1.Uint64())
}

func TestSwapOutputTransferFails(t *testing.T) {
	for _, tc := range []struct {
		name  string
		setup func(*memchain.Token)
	}{
		{name: "returns false", setup: func(tok *memchain.Token) { tok.Return = memchain.ReturnFalse }},
		{name: "reverts", setup: func(tok *memchain.Token) { tok.Revert = true }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, DefaultSwapFee)
			_, err := f.deposit(t, alice, 10000, 10000)
			require.NoError(t, err)
			f.pair.DrainEvents()

			tok, ok := f.chain.Token(token1)
			require.True(t, ok)
			tc.setup(tok)

			err = f.swap0For1(t, 1000, 906)
			require.ErrorIs(t, err, poolerr.ErrTransferFailed)
			require.Equal(t, uint64(1_000_000-10000), f.chain.BalanceOf(token0, alice).Uint64())
			require.Equal(t, uint64(10000), f.chain.BalanceOf(token1, pairAddr).Uint64())
			r0, r1 := f.pair.Reserves()
			require.Equal(t, uint64(10000), r0.Uint64())
			require.Equal(t, uint64(10000), r1.Uint64())
			require.Empty(t, f.pair.DrainEvents())
		})
	}
}

func TestSwapWithoutFee(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.deposit(t, alice, 10000, 10000)
	require.NoError(t, err)

	r0, r1 := f.pair.Reserves()
	quote, err := GetAmountOut(uint256.NewInt(1000), r0, r1, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(909), quote.Uint64())

	require.ErrorIs(t, f.swap0For1(t, 1000, 910), poolerr.ErrInvariantViolated)
	require.NoError(t, f.swap0For1(t, 1000, 909))
}

func TestFlashSwapCallback(t *testing.T) {
	f := newFixture(t, DefaultSwapFee)
	_, err := f.deposit(t, alice, 10000, 10000)
	require.NoError(t, err)
	require.NoError(t, f.chain.Mint(token0, borrower, uint256.NewInt(1000)))

	called := false
	f.chain.Register(borrower, func(ctx context.Context, from common.Address, data []byte) ([]byte, error) {
		called = true
		require.Equal(t, pairAddr, from)
		require.Equal(t, []byte("repay"), data)
		// Pay for the borrowed token1 in token0.
		return nil, token.NewAdapter(f.chain, borrower).SafeTransfer(ctx, token0, pairAddr, uint256.NewInt(1000))
	})

	err = f.pair.Swap(context.Background(), borrower, new(uint256.Int), uint256.NewInt(906), borrower, []byte("repay"))
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, uint64(906), f.chain.BalanceOf(token1, borrower).Uint64())
}

func TestInitialize(t *testing.T) {
	f := newFixture(t, DefaultSwapFee)
	require.ErrorIs(t, f.pair.Initialize(factory, token0, token1), poolerr.ErrAlreadyInitialized)
	require.Equal(t, factory, f.pair.Factory())

	pair, err := NewPair(Config{Address: pairAddr}, f.chain, nil)
	require.NoError(t, err)
	require.ErrorIs(t, pair.Initialize(factory, token0, token0), poolerr.ErrIdenticalTokens)

	_, err = pair.AddLiquidity(context.Background(), alice, alice)
	require.ErrorIs(t, err, poolerr.ErrNotInitialized)

	tooHigh := uint64(FeeScale)
	_, err = NewPair(Config{Address: pairAddr, SwapFee: &tooHigh}, f.chain, nil)
	require.ErrorIs(t, err, poolerr.ErrFeeAboveMaximum)
}

func TestSwapFeeDefault(t *testing.T) {
	c := memchain.New()
	pair, err := NewPair(Config{Address: pairAddr}, c, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(DefaultSwapFee), pair.SwapFee())

	var zero uint64
	free, err := NewPair(Config{Address: pairAddr, SwapFee: &zero}, c, nil)
	require.NoError(t, err)
	require.Zero(t, free.SwapFee())
}

func TestSnapshotRestore(t *testing.T) {
	f := newFixture(t, DefaultSwapFee)
	_, err := f.deposit(t, alice, 10000, 10000)
	require.NoError(t, err)
	require.NoError(t, f.swap0For1(t, 1000, 906))

	snap := f.pair.Snapshot()
	require.Equal(t, "11000", snap.Reserve0)
	require.Equal(t, "9094", snap.Reserve1)
	require.Equal(t, "9000", snap.LPBalances[alice.Hex()])
	require.Equal(t, "2023-11-14T22:13:20Z", snap.UpdatedAt)

	restored, err := NewPair(Config{Address: pairAddr}, f.chain, nil)
	require.NoError(t, err)
	restored.SetClock(func() time.Time { return time.Unix(1_700_000_000, 0) })
	require.NoError(t, restored.Restore(snap))

	r0, r1 := restored.Reserves()
	require.Equal(t, uint64(11000), r0.Uint64())
	require.Equal(t, uint64(9094), r1.Uint64())
	require.Equal(t, uint64(10000), restored.TotalSupply().Uint64())
	require.Equal(t, token0, restored.Token0())
	require.Equal(t, snap, restored.Snapshot())

	other, err := NewPair(Config{Address: bob}, f.chain, nil)
	require.NoError(t, err)
	require.Error(t, other.Restore(snap))
}
