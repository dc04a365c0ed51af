package aggregate

import (
	"sort"

	"mevAMM/internal/model"
)

// Summary is the printable view of an accumulator.
type Summary struct {
	Pool      string
	Variant   string
	SwapCount uint64
	MintCount uint64
	BurnCount uint64
	Volume    map[string]string
	Fee       map[string]string
	FeeRate0  *string
	FeeRate1  *string
}

// Aggregator keeps one accumulator per pool.
type Aggregator struct {
	fees map[string]uint64
	accs map[string]*Accumulator
}

// NewAggregator takes the classic swap fee of every known pair, keyed by pool address.
func NewAggregator(fees map[string]uint64) *Aggregator {
	if fees == nil {
		fees = map[string]uint64{}
	}
	return &Aggregator{fees: fees, accs: make(map[string]*Accumulator)}
}

func (g *Aggregator) Add(events []model.PoolEvent) error {
	for _, event := range events {
		acc, ok := g.accs[event.Pool]
		if !ok {
			acc = NewAccumulator(event, g.fees[event.Pool])
			g.accs[event.Pool] = acc
		}
		if err := acc.AddEvent(event); err != nil {
			return err
		}
	}
	return nil
}

// Summaries renders every accumulator, sorted by pool. tokens maps the volume keys to token
// metadata; unknown keys are printed in base units.
func (g *Aggregator) Summaries(tokens map[string]model.TokenMeta) []Summary {
	pools := make([]string, 0, len(g.accs))
	for pool := range g.accs {
		pools = append(pools, pool)
	}
	sort.Strings(pools)

	out := make([]Summary, 0, len(pools))
	for _, pool := range pools {
		acc := g.accs[pool]
		s := Summary{
			Pool:      acc.Pool,
			Variant:   acc.Variant,
			SwapCount: acc.SwapCount,
			MintCount: acc.MintCount,
			BurnCount: acc.BurnCount,
			Volume:    make(map[string]string, len(acc.Volume)),
			Fee:       make(map[string]string, len(acc.Fee)),
		}
		for key, value := range acc.Volume {
			s.Volume[key] = formatTokenAmount(value, tokens[key].Decimals)
		}
		for key, value := range acc.Fee {
			s.Fee[key] = formatTokenAmount(value, tokens[key].Decimals)
		}
		s.FeeRate0, s.FeeRate1 = computeFeeRates(acc.Fee["token0"], acc.Fee["token1"], acc.Reserve0, acc.Reserve1)
		out = append(out, s)
	}
	return out
}
