package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mevAMM/internal/model"
	"mevAMM/internal/poolerr"
	"mevAMM/internal/storage"
)

const (
	lpAccount     = "0x00000000000000000000000000000000000001a1"
	traderAccount = "0x00000000000000000000000000000000000a11ce"
	pairAddress   = "0x0000000000000000000000000000000000000a01"
	poolAddress   = "0x0000000000000000000000000000000000000b01"
)

const fullScenario = `{
  "tokens": [
    {"symbol": "X", "address": "0x00000000000000000000000000000000000000f0", "decimals": 0},
    {"symbol": "Y", "address": "0x00000000000000000000000000000000000000f1", "decimals": 0},
    {"symbol": "A", "address": "0x00000000000000000000000000000000000000aa", "decimals": 18},
    {"symbol": "B", "address": "0x00000000000000000000000000000000000000bb", "decimals": 18}
  ],
  "balances": [
    {"token": "X", "account": "0x00000000000000000000000000000000000001a1", "amount": "100000"},
    {"token": "Y", "account": "0x00000000000000000000000000000000000001a1", "amount": "100000"},
    {"token": "X", "account": "0x00000000000000000000000000000000000a11ce", "amount": "100000"},
    {"token": "A", "account": "0x000000000000000000000000000000000000c0de", "amount": "1000e18"},
    {"token": "B", "account": "0x000000000000000000000000000000000000c0de", "amount": "1000e18"},
    {"token": "A", "account": "0x00000000000000000000000000000000000a11ce", "amount": "1000e18"},
    {"token": "B", "account": "0x00000000000000000000000000000000000a11ce", "amount": "1000e18"}
  ],
  "oracles": {"ETH": "2e18"},
  "pair": {
    "address": "0x0000000000000000000000000000000000000a01",
    "factory": "0x0000000000000000000000000000000000000fac",
    "token0": "X",
    "token1": "Y"
  },
  "weighted": {
    "address": "0x0000000000000000000000000000000000000b01",
    "controller": "0x000000000000000000000000000000000000c0de",
    "factory": "0x0000000000000000000000000000000000000fab",
    "settler": "0x0000000000000000000000000000000000005e77",
    "vault_relayer": "0x000000000000000000000000000000000000fe1a",
    "chain_id": 1,
    "app_data": "0x0a99",
    "bind": [
      {"token": "A", "balance": "200e18", "denorm": "1e18"},
      {"token": "B", "balance": "200e18", "denorm": "1e18"}
    ]
  },
  "steps": [
    {"op": "add_liquidity", "from": "0x00000000000000000000000000000000000001a1", "amount0": "10000", "amount1": "10000"},
    {"op": "swap", "from": "0x00000000000000000000000000000000000a11ce", "token_in": "X", "amount_in": "1000"},
    {"op": "swap", "from": "0x00000000000000000000000000000000000a11ce", "token_in": "X", "amount_in": "1000", "amount_out": "1000", "expect_error": "K"},
    {"op": "remove_liquidity", "from": "0x00000000000000000000000000000000000001a1", "liquidity": "4500"},
    {"op": "weighted_swap_in", "from": "0x00000000000000000000000000000000000a11ce", "token_in": "A", "token_out": "B", "amount_in": "10e18", "oracle": "ETH"},
    {"op": "order", "from": "0x00000000000000000000000000000000000a11ce", "prices": ["1", "1"], "settle": true},
    {"op": "weighted_swap_in", "from": "0x00000000000000000000000000000000000a11ce", "token_in": "A", "token_out": "B", "amount_in": "1e18", "oracle": "DOGE", "expect_error": "UNKNOWN_ORACLE"}
  ]
}`

func fixedNow() time.Time {
	return time.Unix(1_700_000_000, 0).UTC()
}

func writeScenario(t *testing.T, body string) Scenario {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	sc, err := LoadScenario(path)
	require.NoError(t, err)
	return sc
}

func TestRunFullScenario(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	events := storage.NewJsonlStorage(filepath.Join(dir, "events.jsonl"))
	snapshots := storage.NewFileSnapshotStore(filepath.Join(dir, "snapshots.json"))

	runner := NewRunner(RunConfig{Now: fixedNow}, writeScenario(t, fullScenario), events, snapshots, zaptest.NewLogger(t))
	report, err := runner.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Steps, 7)

	add := report.Steps[0]
	require.Empty(t, add.Error)
	require.Equal(t, 2, add.Events)
	require.Equal(t, "9000", add.Detail["liquidity"])

	swap := report.Steps[1]
	require.Equal(t, "906", swap.Detail["amount_out"])
	require.Equal(t, 2, swap.Events)

	rejected := report.Steps[2]
	require.Equal(t, "K", rejected.Error)
	require.Zero(t, rejected.Events)

	remove := report.Steps[3]
	require.Equal(t, "4950", remove.Detail["amount0"])
	require.Equal(t, "4092", remove.Detail["amount1"])

	weightedSwap := report.Steps[4]
	require.Equal(t, "9523800453514307400", weightedSwap.Detail["amount_out"])
	require.Equal(t, 1, weightedSwap.Events)

	settled := report.Steps[5]
	require.Equal(t, "true", settled.Detail["settled"])
	require.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000aa").Hex(), settled.Detail["sell_token"])
	require.Equal(t, 1, settled.Events)
	require.Equal(t, settled.Detail["hash"], runner.Pool().Commitment().Hex())

	require.Contains(t, report.Steps[6].Error, poolerr.ErrUnknownOracle.Reason)

	// The rejected swap left the trader's input untouched.
	x := common.HexToAddress("0x00000000000000000000000000000000000000f0")
	trader := common.HexToAddress(traderAccount)
	require.Equal(t, uint256.NewInt(99_000), runner.Chain().BalanceOf(x, trader))

	require.NotNil(t, report.Pair)
	require.Equal(t, "6050", report.Pair.Reserve0)
	require.Equal(t, "5002", report.Pair.Reserve1)

	require.Len(t, report.Summaries, 2)
	pairSummary, poolSummary := report.Summaries[0], report.Summaries[1]
	require.Equal(t, common.HexToAddress(pairAddress).Hex(), pairSummary.Pool)
	require.Equal(t, model.VariantClassic, pairSummary.Variant)
	require.Equal(t, uint64(1), pairSummary.SwapCount)
	require.Equal(t, uint64(1), pairSummary.MintCount)
	require.Equal(t, uint64(1), pairSummary.BurnCount)
	require.Equal(t, "1000", pairSummary.Volume["token0"])
	require.Equal(t, "3", pairSummary.Fee["token0"])
	require.Equal(t, common.HexToAddress(poolAddress).Hex(), poolSummary.Pool)
	require.Equal(t, uint64(1), poolSummary.SwapCount)

	require.Len(t, report.Tokens, 4)
	require.Equal(t, "A", report.Tokens[2].Symbol)
	require.Equal(t, uint8(18), report.Tokens[2].Decimals)

	stored, err := events.ReadEvents()
	require.NoError(t, err)
	require.Len(t, stored, 8)

	snap, ok, err := snapshots.LoadSnapshot(ctx, common.HexToAddress(pairAddress).Hex())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, *report.Pair, snap)
}

const resumeScenario = `{
  "tokens": [
    {"symbol": "X", "address": "0x00000000000000000000000000000000000000f0", "decimals": 0},
    {"symbol": "Y", "address": "0x00000000000000000000000000000000000000f1", "decimals": 0}
  ],
  "pair": {
    "address": "0x0000000000000000000000000000000000000a01",
    "factory": "0x0000000000000000000000000000000000000fac",
    "token0": "X",
    "token1": "Y"
  },
  "steps": [
    {"op": "remove_liquidity", "from": "0x00000000000000000000000000000000000001a1", "liquidity": "4500"}
  ]
}`

func TestRunWeightedWithoutFee(t *testing.T) {
	sc := writeScenario(t, fullScenario)
	sc.Weighted.SwapFee = "0"
	sc.Steps = []Step{sc.Steps[4]}

	report, err := NewRunner(RunConfig{Now: fixedNow}, sc, storage.Multi{}, nil, nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "9523809523809523800", report.Steps[0].Detail["amount_out"])
}

func TestRunResumesFromSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	snapshots := storage.NewFileSnapshotStore(filepath.Join(dir, "snapshots.json"))

	first := NewRunner(RunConfig{Now: fixedNow}, writeScenario(t, fullScenario),
		storage.NewJsonlStorage(filepath.Join(dir, "first.jsonl")), snapshots, zaptest.NewLogger(t))
	_, err := first.Run(ctx)
	require.NoError(t, err)

	second := NewRunner(RunConfig{Now: fixedNow, Resume: true}, writeScenario(t, resumeScenario),
		storage.NewJsonlStorage(filepath.Join(dir, "second.jsonl")), snapshots, zaptest.NewLogger(t))
	report, err := second.Run(ctx)
	require.NoError(t, err)

	remove := report.Steps[0]
	require.Equal(t, "4950", remove.Detail["amount0"])
	require.Equal(t, "4092", remove.Detail["amount1"])
	require.Equal(t, "1100", report.Pair.Reserve0)
	require.Equal(t, "910", report.Pair.Reserve1)
	require.True(t, second.Pair().BalanceOf(common.HexToAddress(lpAccount)).IsZero())
	require.Equal(t, uint256.NewInt(1000), second.Pair().TotalSupply())
}

func TestRunAbortsOnUnexpectedError(t *testing.T) {
	sc := writeScenario(t, resumeScenario)
	sc.Steps = []Step{{Op: OpSwap, From: traderAccount, TokenIn: "X", AmountIn: "10"}}

	report, err := NewRunner(RunConfig{Now: fixedNow}, sc, storage.Multi{}, nil, nil).Run(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, poolerr.ErrInsufficientLiquidity)
	require.Empty(t, report.Steps)
}

func TestRunRequiresExpectedError(t *testing.T) {
	sc := writeScenario(t, fullScenario)
	sc.Steps = []Step{sc.Steps[0]}
	sc.Steps[0].ExpectError = "K"

	_, err := NewRunner(RunConfig{Now: fixedNow}, sc, storage.Multi{}, nil, nil).Run(context.Background())
	require.ErrorContains(t, err, `expected error "K"`)
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"":      "0",
		"1000":  "1000",
		"25e18": "25000000000000000000",
		"3E2":   "300",
	}
	for in, want := range cases {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got.Dec(), in)
	}
	for _, bad := range []string{"-1", "1.5", "1e-2", "1e78", "1e77"} {
		_, err := ParseAmount(bad)
		require.Error(t, err, bad)
	}
}

func TestMatchesExpected(t *testing.T) {
	require.True(t, matchesExpected(poolerr.ErrInvariantViolated, "K"))
	require.True(t, matchesExpected(poolerr.ErrSpotPriceAboveMaxPrice, "price_bound"))
	require.True(t, matchesExpected(poolerr.ErrTransferFailed, "TRANSFER"))
	require.False(t, matchesExpected(poolerr.ErrInvariantViolated, ""))
	require.False(t, matchesExpected(poolerr.ErrInvariantViolated, "price_bound"))
}
