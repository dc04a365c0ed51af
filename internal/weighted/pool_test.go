package weighted

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mevAMM/internal/bnum"
	"mevAMM/internal/memchain"
	"mevAMM/internal/oracle"
	"mevAMM/internal/order"
	"mevAMM/internal/poolerr"
	"mevAMM/internal/token"
)

var (
	tokenA     = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenB     = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	tokenC     = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	poolAddr   = common.HexToAddress("0x0000000000000000000000000000000000000b01")
	controller = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	settler    = common.HexToAddress("0x0000000000000000000000000000000000005e77")
	relayer    = common.HexToAddress("0x000000000000000000000000000000000000fe1a")
	trader     = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	appData    = common.HexToHash("0x0000000000000000000000000000000000000000000000000000000000000a99")

	now = time.Unix(1_700_000_000, 0)
)

type fixture struct {
	chain *memchain.Chain
	feed  *oracle.StaticFeed
	pool  *Pool
}

// newFixture builds an unfinalized pool whose controller and trader hold 1000 of each token.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithFee(t, nil)
}

func newFixtureWithFee(t *testing.T, fee *uint256.Int) *fixture {
	t.Helper()
	c := memchain.New()
	for _, addr := range []common.Address{tokenA, tokenB, tokenC} {
		c.DeployToken(addr, "T", 18)
		require.NoError(t, c.Mint(addr, controller, bnum.Ether(1000)))
		require.NoError(t, c.Mint(addr, trader, bnum.Ether(1000)))
		require.NoError(t, c.Approve(addr, controller, poolAddr, new(uint256.Int).SetAllOne()))
		require.NoError(t, c.Approve(addr, trader, poolAddr, new(uint256.Int).SetAllOne()))
	}
	feed := &oracle.StaticFeed{Prices: map[common.Address]*uint256.Int{oracle.ETHOracle: bnum.Ether(2)}}

	domain, err := order.DomainSeparator(big.NewInt(1), settler)
	require.NoError(t, err)
	pool, err := NewPool(Config{
		Address:         poolAddr,
		Controller:      controller,
		SolutionSettler: settler,
		VaultRelayer:    relayer,
		DomainSeparator: domain,
		AppData:         appData,
		SwapFee:         fee,
	}, c, mustGuard(t, feed), zaptest.NewLogger(t))
	require.NoError(t, err)
	pool.SetClock(func() time.Time { return now })
	c.Register(poolAddr, pool.Handle)
	return &fixture{chain: c, feed: feed, pool: pool}
}

func mustGuard(t *testing.T, feed oracle.Feed) *oracle.Guard {
	t.Helper()
	guard, err := oracle.NewGuard(nil, feed, nil)
	require.NoError(t, err)
	return guard
}

// newFinalized binds A and B at 200 each with equal weights and finalizes.
func newFinalized(t *testing.T) *fixture {
	t.Helper()
	return finalize(t, newFixture(t))
}

func finalize(t *testing.T, f *fixture) *fixture {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.pool.Bind(ctx, controller, tokenA, bnum.Ether(200), bnum.One))
	require.NoError(t, f.pool.Bind(ctx, controller, tokenB, bnum.Ether(200), bnum.One))
	require.NoError(t, f.pool.Finalize(ctx, controller))
	return f
}

func TestBindAndWeights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.pool.Bind(ctx, controller, tokenA, bnum.Ether(100), bnum.Ether(4)))
	require.NoError(t, f.pool.Bind(ctx, controller, tokenB, bnum.Ether(50), bnum.One))

	require.Equal(t, bnum.Ether(100).Dec(), f.chain.BalanceOf(tokenA, poolAddr).Dec())
	require.Equal(t, bnum.Ether(5).Dec(), f.pool.TotalDenormalizedWeight().Dec())

	weight, err := f.pool.NormalizedWeight(tokenA)
	require.NoError(t, err)
	require.Equal(t, "800000000000000000", weight.Dec())

	_, err = f.pool.FinalTokens()
	require.ErrorIs(t, err, poolerr.ErrPoolNotFinalized)
	require.Equal(t, []common.Address{tokenA, tokenB}, f.pool.CurrentTokens())
}

func TestBindValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.pool.Bind(ctx, trader, tokenA, bnum.Ether(1), bnum.One), poolerr.ErrCallerIsNotController)
	require.ErrorIs(t, f.pool.Bind(ctx, controller, tokenA, bnum.Ether(1), bnum.FromUint64(1)), poolerr.ErrWeightBelowMinimum)
	require.ErrorIs(t, f.pool.Bind(ctx, controller, tokenA, bnum.Ether(1), bnum.Ether(51)), poolerr.ErrWeightAboveMaximum)
	require.ErrorIs(t, f.pool.Bind(ctx, controller, tokenA, uint256.NewInt(1), bnum.One), poolerr.ErrBalanceBelowMinimum)

	require.NoError(t, f.pool.Bind(ctx, controller, tokenA, bnum.Ether(1), bnum.Ether(30)))
	require.ErrorIs(t, f.pool.Bind(ctx, controller, tokenA, bnum.Ether(1), bnum.One), poolerr.ErrTokenAlreadyBound)
	require.ErrorIs(t, f.pool.Bind(ctx, controller, tokenB, bnum.Ether(1), bnum.Ether(21)), poolerr.ErrTotalWeightAboveMax)

	require.ErrorIs(t, f.pool.Finalize(ctx, controller), poolerr.ErrTokensBelowMinimum)
}

func TestFinalizeFreezesPool(t *testing.T) {
	f := newFinalized(t)
	ctx := context.Background()

	require.True(t, f.pool.IsFinalized())
	tokens, err := f.pool.FinalTokens()
	require.NoError(t, err)
	require.Equal(t, []common.Address{tokenA, tokenB}, tokens)

	require.ErrorIs(t, f.pool.Bind(ctx, controller, tokenC, bnum.Ether(1), bnum.One), poolerr.ErrPoolIsFinalized)
	require.ErrorIs(t, f.pool.SetSwapFee(controller, MaxFee), poolerr.ErrPoolIsFinalized)
	require.ErrorIs(t, f.pool.Unbind(ctx, controller, tokenA), poolerr.ErrPoolIsFinalized)

	// The vault relayer may move pool funds after finalize.
	err = token.NewAdapter(f.chain, relayer).SafeTransferFrom(ctx, tokenA, poolAddr, trader, bnum.Ether(1))
	require.NoError(t, err)
}

func TestUnbindMovesLastToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, addr := range []common.Address{tokenA, tokenB, tokenC} {
		require.NoError(t, f.pool.Bind(ctx, controller, addr, bnum.Ether(10), bnum.One))
	}

	require.NoError(t, f.pool.Unbind(ctx, controller, tokenA))
	require.Equal(t, []common.Address{tokenC, tokenB}, f.pool.CurrentTokens())
	require.False(t, f.pool.IsBound(tokenA))
	require.Equal(t, bnum.Ether(1000).Dec(), f.chain.BalanceOf(tokenA, controller).Dec())
	require.Equal(t, bnum.Ether(2).Dec(), f.pool.TotalDenormalizedWeight().Dec())

	_, err := f.pool.DenormalizedWeight(tokenA)
	require.ErrorIs(t, err, poolerr.ErrTokenNotBound)
}

func TestRebindAdjustsBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pool.Bind(ctx, controller, tokenA, bnum.Ether(10), bnum.One))

	require.NoError(t, f.pool.Rebind(ctx, controller, tokenA, bnum.Ether(4), bnum.Ether(3)))
	require.Equal(t, bnum.Ether(4).Dec(), f.chain.BalanceOf(tokenA, poolAddr).Dec())
	require.Equal(t, bnum.Ether(996).Dec(), f.chain.BalanceOf(tokenA, controller).Dec())
	require.Equal(t, bnum.Ether(3).Dec(), f.pool.TotalDenormalizedWeight().Dec())

	require.NoError(t, f.pool.Rebind(ctx, controller, tokenA, bnum.Ether(20), bnum.Ether(3)))
	require.Equal(t, bnum.Ether(20).Dec(), f.chain.BalanceOf(tokenA, poolAddr).Dec())
}

func TestSwapFeeBounds(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.pool.SwapFee().Eq(DefaultSwapFee))
	require.NoError(t, f.pool.SetSwapFee(controller, new(uint256.Int)))
	require.True(t, f.pool.SwapFee().IsZero())
	require.ErrorIs(t, f.pool.SetSwapFee(controller, bnum.One), poolerr.ErrFeeAboveMaximum)
	require.NoError(t, f.pool.SetSwapFee(controller, MaxFee))
	require.True(t, f.pool.SwapFee().Eq(MaxFee))

	_, err := NewPool(Config{Address: poolAddr, SwapFee: bnum.One}, f.chain, mustGuard(t, f.feed), nil)
	require.ErrorIs(t, err, poolerr.ErrFeeAboveMaximum)

	free, err := NewPool(Config{Address: poolAddr, SwapFee: new(uint256.Int)}, f.chain, mustGuard(t, f.feed), nil)
	require.NoError(t, err)
	require.True(t, free.SwapFee().IsZero())
}
