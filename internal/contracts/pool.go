package contracts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"

	"mevAMM/internal/token"
)

// DefaultPoolCacheSize bounds the number of pools whose final tokens are cached.
const DefaultPoolCacheSize = 256

// Pools reads weighted pools. It satisfies order.PoolReader. Final token lists never change
// once a pool is finalized, so they are cached; weights and balances are not.
type Pools struct {
	caller      token.Caller
	finalTokens *lru.Cache[common.Address, []common.Address]
	separators  *lru.Cache[common.Address, common.Hash]
}

func NewPools(caller token.Caller, cacheSize int) (*Pools, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultPoolCacheSize
	}
	finalTokens, err := lru.New[common.Address, []common.Address](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("final tokens cache: %w", err)
	}
	separators, err := lru.New[common.Address, common.Hash](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("domain separator cache: %w", err)
	}
	return &Pools{caller: caller, finalTokens: finalTokens, separators: separators}, nil
}

// FinalTokens returns pool.getFinalTokens().
func (p *Pools) FinalTokens(ctx context.Context, pool common.Address) ([]common.Address, error) {
	if tokens, ok := p.finalTokens.Get(pool); ok {
		return append([]common.Address(nil), tokens...), nil
	}
	parsed, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := callMethod(ctx, p.caller, pool, parsed, "getFinalTokens")
	if err != nil {
		return nil, err
	}
	tokens, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("getFinalTokens unexpected type %T", values[0])
	}
	p.finalTokens.Add(pool, tokens)
	return append([]common.Address(nil), tokens...), nil
}

// NormalizedWeight returns pool.getNormalizedWeight(token).
func (p *Pools) NormalizedWeight(ctx context.Context, pool, token common.Address) (*uint256.Int, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := callMethod(ctx, p.caller, pool, parsed, "getNormalizedWeight", token)
	if err != nil {
		return nil, err
	}
	return asUint256(values[0])
}

// DomainSeparator returns pool.SOLUTION_SETTLER_DOMAIN_SEPARATOR().
func (p *Pools) DomainSeparator(ctx context.Context, pool common.Address) (common.Hash, error) {
	if sep, ok := p.separators.Get(pool); ok {
		return sep, nil
	}
	parsed, err := PoolABI()
	if err != nil {
		return common.Hash{}, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := callMethod(ctx, p.caller, pool, parsed, "SOLUTION_SETTLER_DOMAIN_SEPARATOR")
	if err != nil {
		return common.Hash{}, err
	}
	sep, err := AsHash(values[0])
	if err != nil {
		return common.Hash{}, err
	}
	p.separators.Add(pool, sep)
	return sep, nil
}
