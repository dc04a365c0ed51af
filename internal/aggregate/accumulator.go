// Package aggregate folds pool events into per-pool activity summaries.
package aggregate

import (
	"encoding/json"
	"fmt"
	"math/big"

	"mevAMM/internal/model"
)

// Accumulator holds aggregate values for one pool.
type Accumulator struct {
	Pool      string
	Variant   string
	SwapFee   uint64
	SwapCount uint64
	MintCount uint64
	BurnCount uint64
	// Volume and Fee are keyed by token address for weighted pools and by "token0"/"token1"
	// for classic pairs.
	Volume   map[string]*big.Int
	Fee      map[string]*big.Int
	Reserve0 *big.Int
	Reserve1 *big.Int
	FirstTS  uint64
	LastTS   uint64
	LastSeq  uint64
}

// NewAccumulator starts an accumulator for the pool of event. swapFee is the classic fee in
// parts per thousand and is ignored for weighted pools, whose swap events carry no fee split.
func NewAccumulator(event model.PoolEvent, swapFee uint64) *Accumulator {
	return &Accumulator{
		Pool:     event.Pool,
		Variant:  event.Variant,
		SwapFee:  swapFee,
		Volume:   make(map[string]*big.Int),
		Fee:      make(map[string]*big.Int),
		Reserve0: big.NewInt(0),
		Reserve1: big.NewInt(0),
		FirstTS:  event.Timestamp,
		LastTS:   event.Timestamp,
	}
}

func (a *Accumulator) AddEvent(event model.PoolEvent) error {
	if event.Timestamp >= a.LastTS {
		a.LastTS = event.Timestamp
	}
	if a.FirstTS == 0 || event.Timestamp < a.FirstTS {
		a.FirstTS = event.Timestamp
	}
	if event.Sequence > a.LastSeq {
		a.LastSeq = event.Sequence
	}

	switch event.EventName {
	case model.EventSwap:
		var swap model.SwapEventData
		if err := decodePayload(event.Decoded, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		return a.applySwap(swap)
	case model.EventWeightedSwap:
		var swap model.WeightedSwapEventData
		if err := decodePayload(event.Decoded, &swap); err != nil {
			return fmt.Errorf("decode weighted swap: %w", err)
		}
		return a.applyWeightedSwap(swap)
	case model.EventSync:
		var sync model.SyncEventData
		if err := decodePayload(event.Decoded, &sync); err != nil {
			return fmt.Errorf("decode sync: %w", err)
		}
		return a.applySync(sync)
	case model.EventMint:
		a.MintCount++
	case model.EventBurn:
		a.BurnCount++
	}
	return nil
}

func (a *Accumulator) applySwap(swap model.SwapEventData) error {
	amount0In, err := parseBigInt(swap.Amount0In)
	if err != nil {
		return err
	}
	amount1In, err := parseBigInt(swap.Amount1In)
	if err != nil {
		return err
	}

	a.addTo(a.Volume, "token0", amount0In)
	a.addTo(a.Volume, "token1", amount1In)
	a.addTo(a.Fee, "token0", feeFromAmount(amount0In, a.SwapFee))
	a.addTo(a.Fee, "token1", feeFromAmount(amount1In, a.SwapFee))
	a.SwapCount++
	return nil
}

func (a *Accumulator) applyWeightedSwap(swap model.WeightedSwapEventData) error {
	amountIn, err := parseBigInt(swap.AmountIn)
	if err != nil {
		return err
	}
	a.addTo(a.Volume, swap.TokenIn, amountIn)
	a.SwapCount++
	return nil
}

func (a *Accumulator) applySync(sync model.SyncEventData) error {
	reserve0, err := parseBigInt(sync.Reserve0)
	if err != nil {
		return err
	}
	reserve1, err := parseBigInt(sync.Reserve1)
	if err != nil {
		return err
	}
	a.Reserve0 = reserve0
	a.Reserve1 = reserve1
	return nil
}

func (a *Accumulator) addTo(target map[string]*big.Int, key string, value *big.Int) {
	if value == nil || value.Sign() == 0 {
		return
	}
	cur, ok := target[key]
	if !ok {
		cur = big.NewInt(0)
		target[key] = cur
	}
	cur.Add(cur, value)
}

// decodePayload accepts a typed payload or the generic map produced by reading JSONL back.
func decodePayload(decoded interface{}, out interface{}) error {
	switch typed := decoded.(type) {
	case model.SwapEventData:
		if dst, ok := out.(*model.SwapEventData); ok {
			*dst = typed
			return nil
		}
	case model.WeightedSwapEventData:
		if dst, ok := out.(*model.WeightedSwapEventData); ok {
			*dst = typed
			return nil
		}
	case model.SyncEventData:
		if dst, ok := out.(*model.SyncEventData); ok {
			*dst = typed
			return nil
		}
	}
	raw, err := json.Marshal(decoded)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}

func feeFromAmount(amountIn *big.Int, feePerMille uint64) *big.Int {
	if amountIn == nil || feePerMille == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Abs(amountIn)
	fee.Mul(fee, new(big.Int).SetUint64(feePerMille))
	fee.Div(fee, big.NewInt(1_000))
	return fee
}
