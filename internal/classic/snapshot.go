package classic

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"mevAMM/internal/model"
)

// Snapshot captures the pair's committed state for persistence.
func (p *Pair) Snapshot() model.PairSnapshot {
	reserve0, reserve1 := p.reserves.Get()
	holders := p.lp.Holders()
	balances := make(map[string]string, len(holders))
	for owner, bal := range holders {
		if bal.IsZero() {
			continue
		}
		balances[owner.Hex()] = bal.Dec()
	}
	return model.PairSnapshot{
		Pool:       p.address.Hex(),
		Factory:    p.factory.Hex(),
		Token0:     p.token0.Hex(),
		Token1:     p.token1.Hex(),
		Reserve0:   reserve0.Dec(),
		Reserve1:   reserve1.Dec(),
		SwapFee:    p.SwapFee(),
		LPBalances: balances,
		Sequence:   p.sequence,
		UpdatedAt:  p.now().UTC().Format(time.RFC3339),
	}
}

// Restore loads a snapshot taken from a pair at the same address.
func (p *Pair) Restore(snap model.PairSnapshot) error {
	if !common.IsHexAddress(snap.Pool) || common.HexToAddress(snap.Pool) != p.address {
		return fmt.Errorf("snapshot pool %q does not match %s", snap.Pool, p.address.Hex())
	}
	if snap.SwapFee >= FeeScale {
		return fmt.Errorf("snapshot swap fee %d out of range", snap.SwapFee)
	}
	token0, err := parseAddress("token0", snap.Token0)
	if err != nil {
		return err
	}
	token1, err := parseAddress("token1", snap.Token1)
	if err != nil {
		return err
	}
	if token0 == token1 {
		return fmt.Errorf("snapshot tokens are identical")
	}
	factory, err := parseAddress("factory", snap.Factory)
	if err != nil {
		return err
	}
	reserve0, err := parseAmount("reserve0", snap.Reserve0)
	if err != nil {
		return err
	}
	reserve1, err := parseAmount("reserve1", snap.Reserve1)
	if err != nil {
		return err
	}
	balances := make(map[common.Address]*uint256.Int, len(snap.LPBalances))
	for owner, raw := range snap.LPBalances {
		addr, err := parseAddress("lp holder", owner)
		if err != nil {
			return err
		}
		bal, err := parseAmount("lp balance "+owner, raw)
		if err != nil {
			return err
		}
		balances[addr] = bal
	}
	if err := p.lp.Restore(balances); err != nil {
		return err
	}

	p.factory = factory
	p.token0 = token0
	p.token1 = token1
	p.initialized = true
	p.swapFee = uint256.NewInt(snap.SwapFee)
	p.reserves.Bootstrap(reserve0, reserve1)
	p.sequence = snap.Sequence
	return nil
}

func parseAddress(field, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("snapshot %s: invalid address %q", field, value)
	}
	return common.HexToAddress(value), nil
}

func parseAmount(field, value string) (*uint256.Int, error) {
	if value == "" {
		return new(uint256.Int), nil
	}
	raw, ok := new(big.Int).SetString(value, 10)
	if !ok || raw.Sign() < 0 {
		return nil, fmt.Errorf("snapshot %s: invalid amount %q", field, value)
	}
	out, overflow := uint256.FromBig(raw)
	if overflow {
		return nil, fmt.Errorf("snapshot %s: amount %q overflows 256 bits", field, value)
	}
	return out, nil
}
