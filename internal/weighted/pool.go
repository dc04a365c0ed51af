// Package weighted implements the weighted constant-function pool with oracle-bounded swaps
// and settlement-protocol order verification.
package weighted

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"mevAMM/internal/bmath"
	"mevAMM/internal/bnum"
	"mevAMM/internal/model"
	"mevAMM/internal/poolerr"
	"mevAMM/internal/token"
)

const (
	MinBoundTokens = 2
	MaxBoundTokens = 8
)

var (
	DefaultSwapFee = new(uint256.Int).Div(bnum.One, uint256.NewInt(1_000_000))
	MaxFee         = new(uint256.Int).Div(bnum.One, uint256.NewInt(10))
	MinWeight      = new(uint256.Int).Set(bnum.One)
	MaxWeight      = bnum.Ether(50)
	MaxTotalWeight = bnum.Ether(50)
	MinBalance     = new(uint256.Int).Div(bnum.One, uint256.NewInt(1_000_000_000_000))
	MaxInRatio     = new(uint256.Int).Div(bnum.One, uint256.NewInt(2))
	MaxOutRatio    = new(uint256.Int).Div(bnum.One, uint256.NewInt(3))

	maxApproval = new(uint256.Int).SetAllOne()
)

// PriceGuard supplies the oracle maximum price a swap may execute at.
type PriceGuard interface {
	FetchPrice(ctx context.Context, name string) (*uint256.Int, error)
}

// Record is the binding state of one token.
type Record struct {
	Bound  bool
	Index  int
	Denorm *uint256.Int
}

// Config holds construction parameters for a Pool.
type Config struct {
	Address    common.Address
	Controller common.Address
	// SolutionSettler is the only account allowed to commit orders.
	SolutionSettler common.Address
	// VaultRelayer receives unlimited allowances on finalize; zero skips approvals.
	VaultRelayer    common.Address
	DomainSeparator common.Hash
	AppData         common.Hash
	// SwapFee defaults to DefaultSwapFee when nil. Zero is a valid fee.
	SwapFee *uint256.Int
}

// SwapQuote reports an executed swap.
type SwapQuote struct {
	AmountIn        *uint256.Int
	AmountOut       *uint256.Int
	SpotPriceBefore *uint256.Int
	SpotPriceAfter  *uint256.Int
}

// Pool is a weighted pool whose balances are the live token balances of its address.
// It is not safe for concurrent use.
type Pool struct {
	address         common.Address
	controller      common.Address
	settler         common.Address
	vaultRelayer    common.Address
	domainSeparator common.Hash
	appData         common.Hash

	swapFee     *uint256.Int
	finalized   bool
	tokens      []common.Address
	records     map[common.Address]*Record
	totalWeight *uint256.Int
	commitment  common.Hash

	erc20  *token.Adapter
	guard  PriceGuard
	logger *zap.Logger

	journal  []model.PoolEvent
	sequence uint64
	now      func() time.Time
}

func NewPool(cfg Config, caller token.Caller, guard PriceGuard, logger *zap.Logger) (*Pool, error) {
	if caller == nil {
		return nil, fmt.Errorf("token caller is nil")
	}
	if guard == nil {
		return nil, fmt.Errorf("price guard is nil")
	}
	fee := DefaultSwapFee
	if cfg.SwapFee != nil {
		fee = cfg.SwapFee
	}
	if err := checkFee(fee); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		address:         cfg.Address,
		controller:      cfg.Controller,
		settler:         cfg.SolutionSettler,
		vaultRelayer:    cfg.VaultRelayer,
		domainSeparator: cfg.DomainSeparator,
		appData:         cfg.AppData,
		swapFee:         new(uint256.Int).Set(fee),
		records:         make(map[common.Address]*Record),
		totalWeight:     new(uint256.Int),
		erc20:           token.NewAdapter(caller, cfg.Address),
		guard:           guard,
		logger:          logger.With(zap.String("pool", cfg.Address.Hex())),
		now:             time.Now,
	}, nil
}

// SetClock overrides the time source used for order validity and event stamps.
func (p *Pool) SetClock(now func() time.Time) {
	p.now = now
}

func (p *Pool) Address() common.Address         { return p.address }
func (p *Pool) Controller() common.Address      { return p.controller }
func (p *Pool) SolutionSettler() common.Address { return p.settler }
func (p *Pool) DomainSeparator() common.Hash    { return p.domainSeparator }
func (p *Pool) AppData() common.Hash            { return p.appData }
func (p *Pool) IsFinalized() bool               { return p.finalized }

// SwapFee returns the fixed-point swap fee.
func (p *Pool) SwapFee() *uint256.Int {
	return new(uint256.Int).Set(p.swapFee)
}

// IsBound reports whether token is bound.
func (p *Pool) IsBound(token common.Address) bool {
	rec, ok := p.records[token]
	return ok && rec.Bound
}

// CurrentTokens returns the bound tokens in binding order.
func (p *Pool) CurrentTokens() []common.Address {
	out := make([]common.Address, len(p.tokens))
	copy(out, p.tokens)
	return out
}

// FinalTokens returns the bound tokens of a finalized pool.
func (p *Pool) FinalTokens() ([]common.Address, error) {
	if !p.finalized {
		return nil, poolerr.ErrPoolNotFinalized
	}
	return p.CurrentTokens(), nil
}

// DenormalizedWeight returns token's weight.
func (p *Pool) DenormalizedWeight(token common.Address) (*uint256.Int, error) {
	rec, err := p.record(token)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(rec.Denorm), nil
}

// TotalDenormalizedWeight returns the sum of bound weights.
func (p *Pool) TotalDenormalizedWeight() *uint256.Int {
	return new(uint256.Int).Set(p.totalWeight)
}

// NormalizedWeight returns token's share of the total weight as a fixed-point fraction.
func (p *Pool) NormalizedWeight(token common.Address) (*uint256.Int, error) {
	rec, err := p.record(token)
	if err != nil {
		return nil, err
	}
	return bnum.Div(rec.Denorm, p.totalWeight)
}

// Balance reads the pool's live balance of a bound token.
func (p *Pool) Balance(ctx context.Context, token common.Address) (*uint256.Int, error) {
	if _, err := p.record(token); err != nil {
		return nil, err
	}
	return p.erc20.BalanceOf(ctx, token, p.address)
}

// SpotPrice returns the fee-inclusive price of tokenOut in tokenIn.
func (p *Pool) SpotPrice(ctx context.Context, tokenIn, tokenOut common.Address) (*uint256.Int, error) {
	return p.spotPrice(ctx, tokenIn, tokenOut, p.swapFee)
}

// SpotPriceSansFee returns the price of tokenOut in tokenIn without the swap fee.
func (p *Pool) SpotPriceSansFee(ctx context.Context, tokenIn, tokenOut common.Address) (*uint256.Int, error) {
	return p.spotPrice(ctx, tokenIn, tokenOut, bnum.Zero())
}

func (p *Pool) spotPrice(ctx context.Context, tokenIn, tokenOut common.Address, fee *uint256.Int) (*uint256.Int, error) {
	inRecord, err := p.record(tokenIn)
	if err != nil {
		return nil, err
	}
	outRecord, err := p.record(tokenOut)
	if err != nil {
		return nil, err
	}
	balanceIn, err := p.erc20.BalanceOf(ctx, tokenIn, p.address)
	if err != nil {
		return nil, err
	}
	balanceOut, err := p.erc20.BalanceOf(ctx, tokenOut, p.address)
	if err != nil {
		return nil, err
	}
	return bmath.CalcSpotPrice(balanceIn, inRecord.Denorm, balanceOut, outRecord.Denorm, fee)
}

// Bind adds token with weight denorm, pulling balance from the controller.
func (p *Pool) Bind(ctx context.Context, sender, token common.Address, balance, denorm *uint256.Int) error {
	if err := p.checkControl(sender); err != nil {
		return err
	}
	if p.IsBound(token) {
		return fmt.Errorf("bind %s: %w", token.Hex(), poolerr.ErrTokenAlreadyBound)
	}
	if len(p.tokens) >= MaxBoundTokens {
		return poolerr.ErrTokensAboveMaximum
	}
	if err := checkBinding(balance, denorm); err != nil {
		return err
	}
	total, err := bnum.Add(p.totalWeight, denorm)
	if err != nil {
		return err
	}
	if total.Gt(MaxTotalWeight) {
		return poolerr.ErrTotalWeightAboveMax
	}
	if err := p.erc20.SafeTransferFrom(ctx, token, sender, p.address, balance); err != nil {
		return err
	}

	p.records[token] = &Record{Bound: true, Index: len(p.tokens), Denorm: new(uint256.Int).Set(denorm)}
	p.tokens = append(p.tokens, token)
	p.totalWeight = total
	p.logger.Debug("token bound", zap.String("token", token.Hex()), zap.Stringer("balance", balance), zap.Stringer("denorm", denorm))
	return nil
}

// Rebind changes a bound token's weight and moves its balance to balance, pulling from or
// returning to the controller.
func (p *Pool) Rebind(ctx context.Context, sender, token common.Address, balance, denorm *uint256.Int) error {
	if err := p.checkControl(sender); err != nil {
		return err
	}
	rec, err := p.record(token)
	if err != nil {
		return err
	}
	if err := checkBinding(balance, denorm); err != nil {
		return err
	}
	total, err := bnum.Sub(p.totalWeight, rec.Denorm)
	if err != nil {
		return err
	}
	if total, err = bnum.Add(total, denorm); err != nil {
		return err
	}
	if total.Gt(MaxTotalWeight) {
		return poolerr.ErrTotalWeightAboveMax
	}

	current, err := p.erc20.BalanceOf(ctx, token, p.address)
	if err != nil {
		return err
	}
	switch {
	case balance.Gt(current):
		err = p.erc20.SafeTransferFrom(ctx, token, sender, p.address, new(uint256.Int).Sub(balance, current))
	case balance.Lt(current):
		err = p.erc20.SafeTransfer(ctx, token, sender, new(uint256.Int).Sub(current, balance))
	}
	if err != nil {
		return err
	}

	rec.Denorm = new(uint256.Int).Set(denorm)
	p.totalWeight = total
	return nil
}

// Unbind removes token and returns its whole balance to the controller.
func (p *Pool) Unbind(ctx context.Context, sender, token common.Address) error {
	if err := p.checkControl(sender); err != nil {
		return err
	}
	rec, err := p.record(token)
	if err != nil {
		return err
	}
	balance, err := p.erc20.BalanceOf(ctx, token, p.address)
	if err != nil {
		return err
	}
	if !balance.IsZero() {
		if err := p.erc20.SafeTransfer(ctx, token, sender, balance); err != nil {
			return err
		}
	}

	p.totalWeight = new(uint256.Int).Sub(p.totalWeight, rec.Denorm)
	last := len(p.tokens) - 1
	moved := p.tokens[last]
	p.tokens[rec.Index] = moved
	p.records[moved].Index = rec.Index
	p.tokens = p.tokens[:last]
	delete(p.records, token)
	return nil
}

// SetSwapFee updates the fee of a pool that is not finalized.
func (p *Pool) SetSwapFee(sender common.Address, fee *uint256.Int) error {
	if err := p.checkControl(sender); err != nil {
		return err
	}
	if err := checkFee(fee); err != nil {
		return err
	}
	p.swapFee = new(uint256.Int).Set(fee)
	return nil
}

// Finalize freezes the token set and enables swaps. When a vault relayer is configured it is
// granted an unlimited allowance on every bound token.
func (p *Pool) Finalize(ctx context.Context, sender common.Address) error {
	if err := p.checkControl(sender); err != nil {
		return err
	}
	if len(p.tokens) < MinBoundTokens {
		return poolerr.ErrTokensBelowMinimum
	}
	if p.vaultRelayer != (common.Address{}) {
		for _, t := range p.tokens {
			if err := p.erc20.Approve(ctx, t, p.vaultRelayer, maxApproval); err != nil {
				return fmt.Errorf("approve vault relayer for %s: %w", t.Hex(), err)
			}
		}
	}
	p.finalized = true
	p.logger.Info("pool finalized", zap.Int("tokens", len(p.tokens)), zap.Stringer("swap_fee", p.swapFee))
	return nil
}

func (p *Pool) checkControl(sender common.Address) error {
	if sender != p.controller {
		return poolerr.ErrCallerIsNotController
	}
	if p.finalized {
		return poolerr.ErrPoolIsFinalized
	}
	return nil
}

func (p *Pool) record(token common.Address) (*Record, error) {
	rec, ok := p.records[token]
	if !ok || !rec.Bound {
		return nil, fmt.Errorf("token %s: %w", token.Hex(), poolerr.ErrTokenNotBound)
	}
	return rec, nil
}

func checkBinding(balance, denorm *uint256.Int) error {
	if denorm.Lt(MinWeight) {
		return poolerr.ErrWeightBelowMinimum
	}
	if denorm.Gt(MaxWeight) {
		return poolerr.ErrWeightAboveMaximum
	}
	if balance.Lt(MinBalance) {
		return poolerr.ErrBalanceBelowMinimum
	}
	return nil
}

func checkFee(fee *uint256.Int) error {
	if fee.Gt(MaxFee) {
		return poolerr.ErrFeeAboveMaximum
	}
	return nil
}
