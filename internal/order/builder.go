package order

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"mevAMM/internal/bmath"
	"mevAMM/internal/bnum"
	"mevAMM/internal/contracts"
	"mevAMM/internal/poolerr"
)

// Factory answers whether a pool was deployed by it and which app data its orders carry.
type Factory interface {
	IsPool(ctx context.Context, pool common.Address) (bool, error)
	AppData(ctx context.Context) (common.Hash, error)
}

// PoolReader reads the immutable order-relevant state of a finalized pool.
type PoolReader interface {
	FinalTokens(ctx context.Context, pool common.Address) ([]common.Address, error)
	NormalizedWeight(ctx context.Context, pool, token common.Address) (*uint256.Int, error)
	DomainSeparator(ctx context.Context, pool common.Address) (common.Hash, error)
}

// BalanceReader reads token balances.
type BalanceReader interface {
	BalanceOf(ctx context.Context, token, owner common.Address) (*uint256.Int, error)
}

// Result is a signed order ready for submission together with its settlement interactions.
type Result struct {
	Order            Order
	Hash             common.Hash
	PreInteractions  []Interaction
	PostInteractions []Interaction
	Signature        []byte
}

// Builder produces orders for equal-weight two-token pools of one factory.
type Builder struct {
	factory  Factory
	pools    PoolReader
	balances BalanceReader
	appData  common.Hash
	logger   *zap.Logger
	now      func() time.Time
}

// NewBuilder reads the factory app data once and returns a builder.
func NewBuilder(ctx context.Context, factory Factory, pools PoolReader, balances BalanceReader, logger *zap.Logger) (*Builder, error) {
	if factory == nil || pools == nil || balances == nil {
		return nil, fmt.Errorf("order builder collaborators must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	appData, err := factory.AppData(ctx)
	if err != nil {
		return nil, fmt.Errorf("read app data: %w", err)
	}
	return &Builder{
		factory:  factory,
		pools:    pools,
		balances: balances,
		appData:  appData,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// SetClock overrides the time source used for order expiry.
func (b *Builder) SetClock(now func() time.Time) {
	b.now = now
}

// AppData returns the app data stamped on every order.
func (b *Builder) AppData() common.Hash {
	return b.appData
}

// Tokens returns the two final tokens of pool, failing unless the factory deployed it and
// both tokens carry the same normalized weight.
func (b *Builder) Tokens(ctx context.Context, pool common.Address) ([]common.Address, error) {
	ok, err := b.factory.IsPool(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("factory lookup %s: %w", pool.Hex(), err)
	}
	if !ok {
		return nil, fmt.Errorf("pool %s not deployed by factory: %w", pool.Hex(), poolerr.ErrPoolDoesNotExist)
	}
	tokens, err := b.pools.FinalTokens(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("final tokens %s: %w", pool.Hex(), err)
	}
	if len(tokens) != 2 {
		return nil, fmt.Errorf("pool %s has %d tokens: %w", pool.Hex(), len(tokens), poolerr.ErrPoolDoesNotExist)
	}
	w0, err := b.pools.NormalizedWeight(ctx, pool, tokens[0])
	if err != nil {
		return nil, fmt.Errorf("weight %s: %w", tokens[0].Hex(), err)
	}
	w1, err := b.pools.NormalizedWeight(ctx, pool, tokens[1])
	if err != nil {
		return nil, fmt.Errorf("weight %s: %w", tokens[1].Hex(), err)
	}
	if !w0.Eq(w1) {
		return nil, fmt.Errorf("pool %s weights %s/%s: %w", pool.Hex(), w0, w1, poolerr.ErrPoolDoesNotExist)
	}
	return tokens, nil
}

// Order builds the order that rebalances pool toward prices, where prices[0] and prices[1]
// value token0 and token1 in a common unit.
func (b *Builder) Order(ctx context.Context, pool common.Address, prices []*uint256.Int) (Result, error) {
	if len(prices) != 2 || prices[0] == nil || prices[1] == nil || prices[0].IsZero() || prices[1].IsZero() {
		return Result{}, poolerr.ErrInvalidPrices
	}
	tokens, err := b.Tokens(ctx, pool)
	if err != nil {
		return Result{}, err
	}

	balance0, err := b.balances.BalanceOf(ctx, tokens[0], pool)
	if err != nil {
		return Result{}, fmt.Errorf("balance %s: %w", tokens[0].Hex(), err)
	}
	balance1, err := b.balances.BalanceOf(ctx, tokens[1], pool)
	if err != nil {
		return Result{}, fmt.Errorf("balance %s: %w", tokens[1].Hex(), err)
	}

	o, err := GetTradeableOrder(TradeableParams{
		Pool:             pool,
		Token0:           tokens[0],
		Token1:           tokens[1],
		PriceNumerator:   prices[1],
		PriceDenominator: prices[0],
		AppData:          b.appData,
	}, balance0, balance1, b.now())
	if err != nil {
		return Result{}, err
	}

	balanceIn, balanceOut := balance1, balance0
	if o.BuyToken == tokens[0] {
		balanceIn, balanceOut = balance0, balance1
	}
	o.SellAmount, err = bmath.CalcOutGivenIn(balanceIn, bnum.One, balanceOut, bnum.One, o.BuyAmount, bnum.Zero())
	if err != nil {
		return Result{}, fmt.Errorf("sell amount: %w", err)
	}

	domain, err := b.pools.DomainSeparator(ctx, pool)
	if err != nil {
		return Result{}, fmt.Errorf("domain separator %s: %w", pool.Hex(), err)
	}
	hash, err := o.Hash(domain)
	if err != nil {
		return Result{}, fmt.Errorf("hash order: %w", err)
	}
	commit, err := contracts.PackCommit(hash)
	if err != nil {
		return Result{}, fmt.Errorf("pack commit: %w", err)
	}
	signature, err := EncodeSignature(pool, o)
	if err != nil {
		return Result{}, fmt.Errorf("encode signature: %w", err)
	}

	b.logger.Debug("order built",
		zap.String("pool", pool.Hex()),
		zap.String("sell_token", o.SellToken.Hex()),
		zap.String("buy_token", o.BuyToken.Hex()),
		zap.Stringer("sell_amount", o.SellAmount),
		zap.Stringer("buy_amount", o.BuyAmount),
		zap.String("hash", hash.Hex()),
	)
	return Result{
		Order:            o,
		Hash:             hash,
		PreInteractions:  []Interaction{{Target: pool, Value: new(uint256.Int), CallData: commit}},
		PostInteractions: []Interaction{},
		Signature:        signature,
	}, nil
}
