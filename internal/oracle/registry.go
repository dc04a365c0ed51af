// Package oracle resolves named reference-price feeds and reads them live.
package oracle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"mevAMM/internal/poolerr"
)

// Default feed addresses.
var (
	ARBOracle = common.HexToAddress("0x91Fa05bCab98aD3DdEaE33DF7213EE8642e3c66c")
	BTCOracle = common.HexToAddress("0x898D1aB819a24880F636416df7D1493C94143262")
	ETHOracle = common.HexToAddress("0x898D1aB819a24880F636416df7D1493C94143262")
	GYDOracle = common.HexToAddress("0x88Ee016dadDCa8061bf6D566585dF6c8aBfED7bb")
)

// Registry maps oracle names to feed addresses. Names are case sensitive.
type Registry struct {
	entries map[string]common.Address
}

// DefaultRegistry returns the built-in ARB, BTC, ETH and GYD feeds.
func DefaultRegistry() *Registry {
	return &Registry{entries: map[string]common.Address{
		"ARB": ARBOracle,
		"BTC": BTCOracle,
		"ETH": ETHOracle,
		"GYD": GYDOracle,
	}}
}

// NewRegistry returns the default registry with overrides applied. Override values must be
// hex addresses.
func NewRegistry(overrides map[string]string) (*Registry, error) {
	r := DefaultRegistry()
	for name, raw := range overrides {
		name = strings.TrimSpace(name)
		raw = strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("oracle override with empty name")
		}
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("oracle %s: invalid address %q", name, raw)
		}
		r.entries[name] = common.HexToAddress(raw)
	}
	return r, nil
}

// Resolve returns the feed address registered under name.
func (r *Registry) Resolve(name string) (common.Address, error) {
	addr, ok := r.entries[name]
	if !ok {
		return common.Address{}, fmt.Errorf("oracle %q: %w", name, poolerr.ErrUnknownOracle)
	}
	return addr, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
