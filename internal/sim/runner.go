package sim

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"mevAMM/internal/aggregate"
	"mevAMM/internal/classic"
	"mevAMM/internal/contracts"
	"mevAMM/internal/memchain"
	"mevAMM/internal/model"
	"mevAMM/internal/oracle"
	"mevAMM/internal/order"
	"mevAMM/internal/poolerr"
	"mevAMM/internal/storage"
	"mevAMM/internal/weighted"
)

// RunConfig holds runtime settings for a scenario replay.
type RunConfig struct {
	// Resume restores the pair from the snapshot store before replaying steps.
	Resume bool
	// Oracles overrides oracle name to feed address mappings.
	Oracles map[string]string
	// Now stamps events and order validity; defaults to time.Now.
	Now func() time.Time
}

// StepResult records the outcome of one step.
type StepResult struct {
	Index  int    `json:"index"`
	Op     string `json:"op"`
	Error  string `json:"error,omitempty"`
	Events int    `json:"events"`
	// Detail carries op-specific output such as the minted liquidity or the order hash.
	Detail map[string]string `json:"detail,omitempty"`
}

// Report is the outcome of a completed run.
type Report struct {
	Steps     []StepResult        `json:"steps"`
	Summaries []aggregate.Summary `json:"summaries"`
	Pair      *model.PairSnapshot `json:"pair,omitempty"`
	Tokens    []model.TokenMeta   `json:"tokens"`
}

// Runner replays a scenario against an in-memory chain and writes pool events to storage.
type Runner struct {
	cfg       RunConfig
	scenario  Scenario
	storage   storage.Storage
	snapshots storage.SnapshotStore
	logger    *zap.Logger

	chain   *memchain.Chain
	symbols map[string]common.Address
	pair    *classic.Pair
	pool    *weighted.Pool
	factory common.Address
	builder *order.Builder
	agg     *aggregate.Aggregator
}

// NewRunner builds a Runner. snapshots may be nil when neither resuming nor saving is wanted.
func NewRunner(cfg RunConfig, scenario Scenario, storageSink storage.Storage, snapshots storage.SnapshotStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Runner{
		cfg:       cfg,
		scenario:  scenario,
		storage:   storageSink,
		snapshots: snapshots,
		logger:    logger,
		chain:     memchain.New(),
		symbols:   make(map[string]common.Address),
	}
}

// Chain exposes the in-memory host, mainly for inspection after a run.
func (r *Runner) Chain() *memchain.Chain {
	return r.chain
}

// Pair returns the classic pair, or nil when the scenario has none.
func (r *Runner) Pair() *classic.Pair {
	return r.pair
}

// Pool returns the weighted pool, or nil when the scenario has none.
func (r *Runner) Pool() *weighted.Pool {
	return r.pool
}

// Run deploys the scenario and replays its steps in order. A step failing with a reason other
// than its expect_error aborts the run.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if r.storage == nil {
		return Report{}, fmt.Errorf("storage is nil")
	}
	if err := r.deploy(ctx); err != nil {
		return Report{}, fmt.Errorf("deploy scenario: %w", err)
	}

	fees := map[string]uint64{}
	if r.pair != nil {
		fees[r.pair.Address().Hex()] = r.pair.SwapFee()
	}
	r.agg = aggregate.NewAggregator(fees)

	// Setup events (bind, bootstrap) are not part of the replay.
	r.drain()

	report := Report{Steps: make([]StepResult, 0, len(r.scenario.Steps))}
	for i, step := range r.scenario.Steps {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		result := StepResult{Index: i, Op: step.Op}
		detail := map[string]string{}
		err := r.chain.Atomic(func() error {
			return r.runStep(ctx, step, detail)
		})
		events := r.drain()
		if err != nil {
			if !matchesExpected(err, step.ExpectError) {
				return report, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
			}
			// Rejected steps leave no events behind.
			events = nil
			result.Error = err.Error()
			r.logger.Info("step rejected", zap.Int("step", i), zap.String("op", step.Op), zap.Error(err))
		} else if step.ExpectError != "" {
			return report, fmt.Errorf("step %d (%s): expected error %q", i, step.Op, step.ExpectError)
		}

		if len(events) > 0 {
			if err := r.storage.PutEvents(ctx, events); err != nil {
				return report, fmt.Errorf("store events: %w", err)
			}
			if err := r.agg.Add(events); err != nil {
				return report, fmt.Errorf("aggregate events: %w", err)
			}
		}
		result.Events = len(events)
		if len(detail) > 0 {
			result.Detail = detail
		}
		report.Steps = append(report.Steps, result)
		r.logger.Info("step complete", zap.Int("step", i), zap.String("op", step.Op), zap.Int("events", len(events)))
	}

	metas, err := r.tokenMetas(ctx)
	if err != nil {
		return report, err
	}
	byAddress := make(map[string]model.TokenMeta, len(metas)+2)
	for _, meta := range metas {
		byAddress[meta.Address] = meta
	}
	if r.pair != nil {
		byAddress["token0"] = byAddress[r.pair.Token0().Hex()]
		byAddress["token1"] = byAddress[r.pair.Token1().Hex()]
	}
	report.Tokens = metas
	report.Summaries = r.agg.Summaries(byAddress)

	if r.pair != nil {
		snap := r.pair.Snapshot()
		report.Pair = &snap
		if r.snapshots != nil {
			if err := r.snapshots.SaveSnapshot(ctx, snap); err != nil {
				return report, fmt.Errorf("save snapshot: %w", err)
			}
		}
	}
	return report, nil
}

func (r *Runner) drain() []model.PoolEvent {
	var events []model.PoolEvent
	if r.pair != nil {
		events = append(events, r.pair.DrainEvents()...)
	}
	if r.pool != nil {
		events = append(events, r.pool.DrainEvents()...)
	}
	return events
}

func (r *Runner) deploy(ctx context.Context) error {
	sc := r.scenario
	for _, spec := range sc.Tokens {
		addr, err := ParseAddress("token "+spec.Symbol, spec.Address)
		if err != nil {
			return err
		}
		if _, dup := r.symbols[spec.Symbol]; dup {
			return fmt.Errorf("duplicate token symbol %s", spec.Symbol)
		}
		r.chain.DeployToken(addr, spec.Symbol, spec.Decimals)
		r.symbols[spec.Symbol] = addr
	}
	for _, spec := range sc.Balances {
		tokenAddr, err := r.token(spec.Token)
		if err != nil {
			return err
		}
		account, err := ParseAddress("balance account", spec.Account)
		if err != nil {
			return err
		}
		amount, err := ParseAmount(spec.Amount)
		if err != nil {
			return err
		}
		if err := r.chain.Mint(tokenAddr, account, amount); err != nil {
			return err
		}
	}
	if sc.Pair != nil {
		if err := r.deployPair(ctx, *sc.Pair); err != nil {
			return err
		}
	}
	if sc.Weighted != nil {
		if err := r.deployWeighted(ctx, *sc.Weighted); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) deployPair(ctx context.Context, spec PairSpec) error {
	addr, err := ParseAddress("pair address", spec.Address)
	if err != nil {
		return err
	}
	factory, err := ParseAddress("pair factory", spec.Factory)
	if err != nil {
		return err
	}
	token0, err := r.token(spec.Token0)
	if err != nil {
		return err
	}
	token1, err := r.token(spec.Token1)
	if err != nil {
		return err
	}
	pair, err := classic.NewPair(classic.Config{Address: addr, SwapFee: spec.SwapFee}, r.chain, r.logger)
	if err != nil {
		return err
	}
	pair.SetClock(r.cfg.Now)
	if err := pair.Initialize(factory, token0, token1); err != nil {
		return err
	}
	r.pair = pair

	if !r.cfg.Resume || r.snapshots == nil {
		return nil
	}
	snap, ok, err := r.snapshots.LoadSnapshot(ctx, addr.Hex())
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		r.logger.Info("no pair snapshot to resume", zap.String("pair", addr.Hex()))
		return nil
	}
	if err := pair.Restore(snap); err != nil {
		return fmt.Errorf("restore pair: %w", err)
	}
	// The host starts empty, so fund the pair with its restored reserves.
	reserve0, reserve1 := pair.Reserves()
	if err := r.chain.Mint(token0, addr, reserve0); err != nil {
		return err
	}
	if err := r.chain.Mint(token1, addr, reserve1); err != nil {
		return err
	}
	r.logger.Info("resume from snapshot",
		zap.String("pair", addr.Hex()),
		zap.Uint64("sequence", snap.Sequence),
		zap.Stringer("reserve0", reserve0),
		zap.Stringer("reserve1", reserve1),
	)
	return nil
}

func (r *Runner) deployWeighted(ctx context.Context, spec WeightedSpec) error {
	addr, err := ParseAddress("weighted address", spec.Address)
	if err != nil {
		return err
	}
	controller, err := ParseAddress("weighted controller", spec.Controller)
	if err != nil {
		return err
	}
	settler, err := ParseAddress("weighted settler", spec.Settler)
	if err != nil {
		return err
	}
	var relayer common.Address
	if spec.VaultRelayer != "" {
		if relayer, err = ParseAddress("weighted vault relayer", spec.VaultRelayer); err != nil {
			return err
		}
	}
	if spec.Factory != "" {
		if r.factory, err = ParseAddress("weighted factory", spec.Factory); err != nil {
			return err
		}
	}
	var appData common.Hash
	if spec.AppData != "" {
		appData = common.HexToHash(spec.AppData)
	}
	var fee *uint256.Int
	if spec.SwapFee != "" {
		if fee, err = ParseAmount(spec.SwapFee); err != nil {
			return err
		}
	}
	domain, err := order.DomainSeparator(new(big.Int).SetUint64(spec.ChainID), settler)
	if err != nil {
		return err
	}

	registry, err := oracle.NewRegistry(r.cfg.Oracles)
	if err != nil {
		return err
	}
	for name, value := range r.scenario.Oracles {
		feed, err := registry.Resolve(name)
		if err != nil {
			return err
		}
		price, err := ParseAmount(value)
		if err != nil {
			return fmt.Errorf("oracle %s: %w", name, err)
		}
		age := uint256.NewInt(uint64(r.cfg.Now().Unix()))
		r.chain.Register(feed, chronicleHandler(price, age))
	}
	guard, err := oracle.NewGuard(registry, contracts.NewChronicle(r.chain), r.logger)
	if err != nil {
		return err
	}

	pool, err := weighted.NewPool(weighted.Config{
		Address:         addr,
		Controller:      controller,
		SolutionSettler: settler,
		VaultRelayer:    relayer,
		DomainSeparator: domain,
		AppData:         appData,
		SwapFee:         fee,
	}, r.chain, guard, r.logger)
	if err != nil {
		return err
	}
	pool.SetClock(r.cfg.Now)
	r.chain.Register(addr, pool.Handle)
	r.pool = pool

	for _, bind := range spec.Bind {
		tokenAddr, err := r.token(bind.Token)
		if err != nil {
			return err
		}
		balance, err := ParseAmount(bind.Balance)
		if err != nil {
			return err
		}
		denorm, err := ParseAmount(bind.Denorm)
		if err != nil {
			return err
		}
		if err := r.chain.Approve(tokenAddr, controller, addr, balance); err != nil {
			return err
		}
		if err := pool.Bind(ctx, controller, tokenAddr, balance, denorm); err != nil {
			return fmt.Errorf("bind %s: %w", bind.Token, err)
		}
	}
	if len(spec.Bind) >= weighted.MinBoundTokens {
		if err := pool.Finalize(ctx, controller); err != nil {
			return err
		}
	}

	if r.factory != (common.Address{}) {
		r.chain.Register(r.factory, factoryHandler(map[common.Address]bool{addr: true}, appData))
	}
	return nil
}

func (r *Runner) token(symbol string) (common.Address, error) {
	addr, ok := r.symbols[symbol]
	if !ok {
		return common.Address{}, fmt.Errorf("unknown token %q", symbol)
	}
	return addr, nil
}

func (r *Runner) tokenMetas(ctx context.Context) ([]model.TokenMeta, error) {
	metas := make([]model.TokenMeta, 0, len(r.scenario.Tokens))
	for _, spec := range r.scenario.Tokens {
		meta, err := contracts.FetchTokenMeta(ctx, r.chain, r.symbols[spec.Symbol], r.logger)
		if err != nil {
			return nil, fmt.Errorf("token meta %s: %w", spec.Symbol, err)
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// matchesExpected reports whether err carries the expected failure, named by its reason
// ("K"), its category ("price_bound") or a fragment of the message.
func matchesExpected(err error, expected string) bool {
	if expected == "" {
		return false
	}
	var pe *poolerr.Error
	if errors.As(err, &pe) && (pe.Reason == expected || pe.Kind.String() == expected) {
		return true
	}
	return strings.Contains(err.Error(), expected)
}
