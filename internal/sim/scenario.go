// Package sim replays JSON scenarios of liquidity, swap and order steps against pools hosted
// on an in-memory token chain.
package sim

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Step operations.
const (
	OpAddLiquidity    = "add_liquidity"
	OpRemoveLiquidity = "remove_liquidity"
	OpSwap            = "swap"
	OpTransfer        = "transfer"
	OpWeightedSwapIn  = "weighted_swap_in"
	OpWeightedSwapOut = "weighted_swap_out"
	OpOrder           = "order"
)

// Scenario is the file format replayed by Runner. Amounts are base-unit integers, optionally
// written with a decimal exponent ("25e18"). Tokens are referenced by symbol.
type Scenario struct {
	Tokens   []TokenSpec       `json:"tokens"`
	Balances []BalanceSpec     `json:"balances"`
	Oracles  map[string]string `json:"oracles"`
	Pair     *PairSpec         `json:"pair"`
	Weighted *WeightedSpec     `json:"weighted"`
	Steps    []Step            `json:"steps"`
}

type TokenSpec struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
}

type BalanceSpec struct {
	Token   string `json:"token"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type PairSpec struct {
	Address string `json:"address"`
	Factory string `json:"factory"`
	Token0  string `json:"token0"`
	Token1  string `json:"token1"`
	// SwapFee in parts per thousand; nil selects the default.
	SwapFee *uint64 `json:"swap_fee"`
}

type BindSpec struct {
	Token   string `json:"token"`
	Balance string `json:"balance"`
	Denorm  string `json:"denorm"`
}

type WeightedSpec struct {
	Address      string     `json:"address"`
	Controller   string     `json:"controller"`
	Factory      string     `json:"factory"`
	Settler      string     `json:"settler"`
	VaultRelayer string     `json:"vault_relayer"`
	ChainID      uint64     `json:"chain_id"`
	AppData      string     `json:"app_data"`
	SwapFee      string     `json:"swap_fee"`
	Bind         []BindSpec `json:"bind"`
}

// Step is one scenario operation. Fields not used by Op are ignored.
type Step struct {
	Op           string   `json:"op"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	Token        string   `json:"token"`
	TokenIn      string   `json:"token_in"`
	TokenOut     string   `json:"token_out"`
	Amount       string   `json:"amount"`
	Amount0      string   `json:"amount0"`
	Amount1      string   `json:"amount1"`
	AmountIn     string   `json:"amount_in"`
	AmountOut    string   `json:"amount_out"`
	MinAmountOut string   `json:"min_amount_out"`
	MaxAmountIn  string   `json:"max_amount_in"`
	Liquidity    string   `json:"liquidity"`
	Oracle       string   `json:"oracle"`
	Prices       []string `json:"prices"`
	Settle       bool     `json:"settle"`
	// ExpectError names the failure reason the step must end with, e.g. "K".
	ExpectError string `json:"expect_error"`
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	return sc, nil
}

// ParseAmount parses a base-unit integer such as "1000" or "25e18".
func ParseAmount(value string) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return new(uint256.Int), nil
	}
	mantissa, exponent := value, ""
	if idx := strings.IndexAny(value, "eE"); idx >= 0 {
		mantissa, exponent = value[:idx], value[idx+1:]
	}
	raw, ok := new(big.Int).SetString(mantissa, 10)
	if !ok || raw.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if exponent != "" {
		exp, ok := new(big.Int).SetString(exponent, 10)
		if !ok || exp.Sign() < 0 || exp.Cmp(big.NewInt(77)) > 0 {
			return nil, fmt.Errorf("invalid amount exponent %q", value)
		}
		raw.Mul(raw, new(big.Int).Exp(big.NewInt(10), exp, nil))
	}
	out, overflow := uint256.FromBig(raw)
	if overflow {
		return nil, fmt.Errorf("amount %q overflows 256 bits", value)
	}
	return out, nil
}

// ParseAddress parses a hex address.
func ParseAddress(field, value string) (common.Address, error) {
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", field, value)
	}
	return common.HexToAddress(value), nil
}
