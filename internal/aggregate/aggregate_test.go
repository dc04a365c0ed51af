package aggregate

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"mevAMM/internal/model"
)

func classicEvents() []model.PoolEvent {
	return []model.PoolEvent{
		{Pool: "0xpair", Variant: model.VariantClassic, Sequence: 1, EventName: model.EventMint, Timestamp: 100,
			Decoded: model.MintEventData{Amount0: "1000", Amount1: "4000", Liquidity: "1000"}},
		{Pool: "0xpair", Variant: model.VariantClassic, Sequence: 2, EventName: model.EventSwap, Timestamp: 110,
			Decoded: model.SwapEventData{Amount0In: "1000", Amount1In: "0", Amount0Out: "0", Amount1Out: "1500"}},
		{Pool: "0xpair", Variant: model.VariantClassic, Sequence: 3, EventName: model.EventSync, Timestamp: 110,
			Decoded: model.SyncEventData{Reserve0: "2000", Reserve1: "2500"}},
		{Pool: "0xpair", Variant: model.VariantClassic, Sequence: 4, EventName: model.EventBurn, Timestamp: 120,
			Decoded: model.BurnEventData{Liquidity: "10"}},
	}
}

func TestAccumulatorClassic(t *testing.T) {
	events := classicEvents()
	acc := NewAccumulator(events[0], 3)
	for _, event := range events {
		require.NoError(t, acc.AddEvent(event))
	}

	require.Equal(t, uint64(1), acc.SwapCount)
	require.Equal(t, uint64(1), acc.MintCount)
	require.Equal(t, uint64(1), acc.BurnCount)
	require.Equal(t, big.NewInt(1000), acc.Volume["token0"])
	require.NotContains(t, acc.Volume, "token1")
	require.Equal(t, big.NewInt(3), acc.Fee["token0"])
	require.Equal(t, big.NewInt(2000), acc.Reserve0)
	require.Equal(t, big.NewInt(2500), acc.Reserve1)
	require.Equal(t, uint64(100), acc.FirstTS)
	require.Equal(t, uint64(120), acc.LastTS)
	require.Equal(t, uint64(4), acc.LastSeq)
}

func TestAccumulatorDecodesGenericPayloads(t *testing.T) {
	// Events read back from JSONL carry map payloads.
	var events []model.PoolEvent
	for _, event := range classicEvents() {
		raw, err := json.Marshal(event)
		require.NoError(t, err)
		var decoded model.PoolEvent
		require.NoError(t, json.Unmarshal(raw, &decoded))
		events = append(events, decoded)
	}

	acc := NewAccumulator(events[0], 3)
	for _, event := range events {
		require.NoError(t, acc.AddEvent(event))
	}
	require.Equal(t, big.NewInt(1000), acc.Volume["token0"])
	require.Equal(t, big.NewInt(2500), acc.Reserve1)
}

func TestAccumulatorRejectsBadAmount(t *testing.T) {
	event := model.PoolEvent{Pool: "0xpair", EventName: model.EventSwap,
		Decoded: model.SwapEventData{Amount0In: "12x"}}
	require.Error(t, NewAccumulator(event, 3).AddEvent(event))
}

func TestAggregatorSummaries(t *testing.T) {
	g := NewAggregator(map[string]uint64{"0xpair": 3})
	require.NoError(t, g.Add(classicEvents()))
	require.NoError(t, g.Add([]model.PoolEvent{
		{Pool: "0xbpool", Variant: model.VariantWeighted, Sequence: 1, EventName: model.EventWeightedSwap, Timestamp: 200,
			Decoded: model.WeightedSwapEventData{TokenIn: "0xa", TokenOut: "0xb", AmountIn: "2500000000000000000", AmountOut: "1"}},
		{Pool: "0xbpool", Variant: model.VariantWeighted, Sequence: 2, EventName: model.EventCommit, Timestamp: 200,
			Decoded: model.CommitEventData{OrderHash: "0x01"}},
	}))

	summaries := g.Summaries(map[string]model.TokenMeta{
		"token0": {Decimals: 3},
		"0xa":    {Decimals: 18},
	})
	require.Len(t, summaries, 2)

	weighted, classic := summaries[0], summaries[1]
	require.Equal(t, "0xbpool", weighted.Pool)
	require.Equal(t, uint64(1), weighted.SwapCount)
	require.Equal(t, "2.500000000000000000", weighted.Volume["0xa"])
	require.Empty(t, weighted.Fee)
	require.Nil(t, weighted.FeeRate0)

	require.Equal(t, "0xpair", classic.Pool)
	require.Equal(t, model.VariantClassic, classic.Variant)
	require.Equal(t, "1.000", classic.Volume["token0"])
	require.Equal(t, "0.003", classic.Fee["token0"])
	require.NotNil(t, classic.FeeRate0)
	require.Equal(t, "0.001500000000000000", *classic.FeeRate0)
	require.Nil(t, classic.FeeRate1)
}

func TestFormatTokenAmount(t *testing.T) {
	require.Equal(t, "0", formatTokenAmount(nil, 18))
	require.Equal(t, "42", formatTokenAmount(big.NewInt(42), 0))
	require.Equal(t, "-0.05", formatTokenAmount(big.NewInt(-5), 2))
}
