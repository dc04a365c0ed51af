// Package classic implements the constant-product two-asset pair with LP share accounting.
package classic

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"mevAMM/internal/bnum"
	"mevAMM/internal/ledger"
	"mevAMM/internal/lptoken"
	"mevAMM/internal/model"
	"mevAMM/internal/poolerr"
	"mevAMM/internal/token"
)

const (
	// MinimumLiquidity is locked at the zero address by the first deposit.
	MinimumLiquidity = 1000

	// DefaultSwapFee is the swap fee in parts per FeeScale (0.3%).
	DefaultSwapFee = 3

	// FeeScale is the denominator of SwapFee.
	FeeScale = 1000
)

var (
	minimumLiquidity = uint256.NewInt(MinimumLiquidity)
	feeScale         = uint256.NewInt(FeeScale)
	feeScaleSquared  = uint256.NewInt(FeeScale * FeeScale)
)

// Config holds construction parameters for a Pair.
type Config struct {
	// Address is the pair's own account; it holds the pooled tokens.
	Address common.Address
	// SwapFee is charged on swap inputs in parts per FeeScale. Nil selects DefaultSwapFee;
	// an explicit zero disables the fee.
	SwapFee *uint64
}

// Pair is a constant-product pool over token0 and token1. It is not safe for concurrent use;
// every public operation runs to completion or returns an error before committing state.
type Pair struct {
	address     common.Address
	factory     common.Address
	token0      common.Address
	token1      common.Address
	initialized bool
	swapFee     *uint256.Int

	reserves ledger.Reserves
	lp       *lptoken.Supply
	tokens   *token.Adapter
	logger   *zap.Logger

	journal  []model.PoolEvent
	sequence uint64
	now      func() time.Time
}

// NewPair builds an uninitialized pair calling tokens through caller.
func NewPair(cfg Config, caller token.Caller, logger *zap.Logger) (*Pair, error) {
	if caller == nil {
		return nil, fmt.Errorf("token caller is nil")
	}
	fee := uint64(DefaultSwapFee)
	if cfg.SwapFee != nil {
		fee = *cfg.SwapFee
	}
	if fee >= FeeScale {
		return nil, fmt.Errorf("swap fee %d/%d: %w", fee, FeeScale, poolerr.ErrFeeAboveMaximum)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pair{
		address: cfg.Address,
		swapFee: uint256.NewInt(fee),
		lp:      lptoken.NewSupply(),
		tokens:  token.NewAdapter(caller, cfg.Address),
		logger:  logger.With(zap.String("pair", cfg.Address.Hex())),
		now:     time.Now,
	}, nil
}

// SetClock overrides the time source used to stamp events.
func (p *Pair) SetClock(now func() time.Time) {
	p.now = now
}

// Initialize records the factory (sender) and the token pair. It succeeds exactly once.
func (p *Pair) Initialize(sender, token0, token1 common.Address) error {
	if p.initialized {
		return poolerr.ErrAlreadyInitialized
	}
	if token0 == token1 {
		return fmt.Errorf("token %s: %w", token0.Hex(), poolerr.ErrIdenticalTokens)
	}
	p.factory = sender
	p.token0 = token0
	p.token1 = token1
	p.initialized = true
	p.logger.Debug("pair initialized",
		zap.String("factory", sender.Hex()),
		zap.String("token0", token0.Hex()),
		zap.String("token1", token1.Hex()),
	)
	return nil
}

func (p *Pair) Address() common.Address { return p.address }
func (p *Pair) Factory() common.Address { return p.factory }
func (p *Pair) Token0() common.Address  { return p.token0 }
func (p *Pair) Token1() common.Address  { return p.token1 }

// SwapFee returns the fee in parts per FeeScale.
func (p *Pair) SwapFee() uint64 {
	return p.swapFee.Uint64()
}

// Reserves returns the committed reserves.
func (p *Pair) Reserves() (*uint256.Int, *uint256.Int) {
	return p.reserves.Get()
}

// TotalSupply returns the minted LP units.
func (p *Pair) TotalSupply() *uint256.Int {
	return p.lp.TotalSupply()
}

// BalanceOf returns owner's LP units.
func (p *Pair) BalanceOf(owner common.Address) *uint256.Int {
	return p.lp.BalanceOf(owner)
}

// AddLiquidity mints LP units to to for the tokens deposited since the last commit.
func (p *Pair) AddLiquidity(ctx context.Context, sender, to common.Address) (*uint256.Int, error) {
	if !p.initialized {
		return nil, poolerr.ErrNotInitialized
	}
	reserve0, reserve1 := p.reserves.Get()
	balance0, balance1, err := p.balances(ctx)
	if err != nil {
		return nil, err
	}

	amount0, underflow := new(uint256.Int).SubOverflow(balance0, reserve0)
	if underflow {
		return nil, fmt.Errorf("balance0 below reserve0: %w", poolerr.ErrOverflow)
	}
	amount1, underflow := new(uint256.Int).SubOverflow(balance1, reserve1)
	if underflow {
		return nil, fmt.Errorf("balance1 below reserve1: %w", poolerr.ErrOverflow)
	}

	supply := p.lp.TotalSupply()
	bootstrap := supply.IsZero()

	var liquidity *uint256.Int
	if bootstrap {
		product, overflow := new(uint256.Int).MulOverflow(amount0, amount1)
		if overflow {
			return nil, fmt.Errorf("amount0 * amount1: %w", poolerr.ErrOverflow)
		}
		root, err := bnum.Sqrt(product)
		if err != nil {
			return nil, err
		}
		var underflow bool
		liquidity, underflow = new(uint256.Int).SubOverflow(root, minimumLiquidity)
		if underflow {
			return nil, fmt.Errorf("sqrt %s below minimum liquidity: %w", root, poolerr.ErrUnderflow)
		}
	} else {
		share0, err := mulDiv(amount0, supply, reserve0)
		if err != nil {
			return nil, err
		}
		share1, err := mulDiv(amount1, supply, reserve1)
		if err != nil {
			return nil, err
		}
		liquidity = bnum.Min(share0, share1)
	}
	if liquidity.IsZero() {
		return nil, poolerr.ErrZeroLiquidity
	}

	if bootstrap {
		if err := p.lp.Mint(common.Address{}, minimumLiquidity); err != nil {
			return nil, err
		}
	}
	if err := p.lp.Mint(to, liquidity); err != nil {
		return nil, err
	}

	if p.reserves.Initialized() {
		p.reserves.Update(balance0, balance1, reserve0, reserve1)
	} else {
		p.reserves.Bootstrap(balance0, balance1)
	}

	p.emit(model.EventMint, model.MintEventData{
		Sender:    sender.Hex(),
		To:        to.Hex(),
		Amount0:   amount0.Dec(),
		Amount1:   amount1.Dec(),
		Liquidity: liquidity.Dec(),
	})
	p.emitSync()
	p.logger.Debug("liquidity added",
		zap.String("to", to.Hex()),
		zap.Stringer("amount0", amount0),
		zap.Stringer("amount1", amount1),
		zap.Stringer("liquidity", liquidity),
		zap.Bool("bootstrap", bootstrap),
	)
	return liquidity, nil
}

// RemoveLiquidity burns every LP unit held by the pair itself and sends the proportional
// share of both tokens to to. Callers transfer LP units to the pair beforehand.
func (p *Pair) RemoveLiquidity(ctx context.Context, sender, to common.Address) (*uint256.Int, *uint256.Int, error) {
	if !p.initialized {
		return nil, nil, poolerr.ErrNotInitialized
	}
	reserve0, reserve1 := p.reserves.Get()
	balance0, balance1, err := p.balances(ctx)
	if err != nil {
		return nil, nil, err
	}

	liquidity := p.lp.BalanceOf(p.address)
	supply := p.lp.TotalSupply()
	if supply.IsZero() {
		return nil, nil, poolerr.ErrInsufficientLiquidityBurned
	}
	amount0, err := mulDiv(liquidity, balance0, supply)
	if err != nil {
		return nil, nil, err
	}
	amount1, err := mulDiv(liquidity, balance1, supply)
	if err != nil {
		return nil, nil, err
	}
	if amount0.IsZero() || amount1.IsZero() {
		return nil, nil, poolerr.ErrInsufficientLiquidityBurned
	}

	if err := p.tokens.SafeTransfer(ctx, p.token0, to, amount0); err != nil {
		return nil, nil, err
	}
	if err := p.tokens.SafeTransfer(ctx, p.token1, to, amount1); err != nil {
		return nil, nil, err
	}
	if err := p.lp.Burn(p.address, liquidity); err != nil {
		return nil, nil, err
	}

	balance0, balance1, err = p.balances(ctx)
	if err != nil {
		return nil, nil, err
	}
	p.reserves.Update(balance0, balance1, reserve0, reserve1)

	p.emit(model.EventBurn, model.BurnEventData{
		Sender:    sender.Hex(),
		To:        to.Hex(),
		Amount0:   amount0.Dec(),
		Amount1:   amount1.Dec(),
		Liquidity: liquidity.Dec(),
	})
	p.emitSync()
	p.logger.Debug("liquidity removed",
		zap.String("to", to.Hex()),
		zap.Stringer("amount0", amount0),
		zap.Stringer("amount1", amount1),
		zap.Stringer("liquidity", liquidity),
	)
	return amount0, amount1, nil
}

// Mint issues value LP units to sender.
func (p *Pair) Mint(sender common.Address, value *uint256.Int) error {
	return p.lp.Mint(sender, value)
}

// MintTo issues value LP units to to.
func (p *Pair) MintTo(to common.Address, value *uint256.Int) error {
	return p.lp.Mint(to, value)
}

// Burn destroys value LP units held by sender.
func (p *Pair) Burn(sender common.Address, value *uint256.Int) error {
	return p.lp.Burn(sender, value)
}

// TransferLP moves LP units between holders.
func (p *Pair) TransferLP(from, to common.Address, value *uint256.Int) error {
	return p.lp.Transfer(from, to, value)
}

// ApproveLP lets spender move owner's LP units.
func (p *Pair) ApproveLP(owner, spender common.Address, value *uint256.Int) {
	p.lp.Approve(owner, spender, value)
}

// TransferLPFrom moves owner's LP units using spender's allowance.
func (p *Pair) TransferLPFrom(spender, owner, to common.Address, value *uint256.Int) error {
	return p.lp.TransferFrom(spender, owner, to, value)
}

func (p *Pair) balances(ctx context.Context) (*uint256.Int, *uint256.Int, error) {
	balance0, err := p.tokens.BalanceOf(ctx, p.token0, p.address)
	if err != nil {
		return nil, nil, fmt.Errorf("read balance0: %w", err)
	}
	balance1, err := p.tokens.BalanceOf(ctx, p.token1, p.address)
	if err != nil {
		return nil, nil, fmt.Errorf("read balance1: %w", err)
	}
	return balance0, balance1, nil
}

func mulDiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%s * %s: %w", a, b, poolerr.ErrOverflow)
	}
	if c.IsZero() {
		return nil, poolerr.ErrDivisionByZero
	}
	return product.Div(product, c), nil
}
