package contracts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"mevAMM/internal/token"
)

// Factory reads a pool factory. It satisfies order.Factory.
type Factory struct {
	caller  token.Caller
	address common.Address
}

func NewFactory(caller token.Caller, address common.Address) *Factory {
	return &Factory{caller: caller, address: address}
}

// IsPool returns factory.isBPool(pool).
func (f *Factory) IsPool(ctx context.Context, pool common.Address) (bool, error) {
	parsed, err := FactoryABI()
	if err != nil {
		return false, fmt.Errorf("parse factory abi: %w", err)
	}
	values, err := callMethod(ctx, f.caller, f.address, parsed, "isBPool", pool)
	if err != nil {
		return false, err
	}
	ok, isBool := values[0].(bool)
	if !isBool {
		return false, fmt.Errorf("isBPool unexpected type %T", values[0])
	}
	return ok, nil
}

// AppData returns factory.APP_DATA().
func (f *Factory) AppData(ctx context.Context) (common.Hash, error) {
	parsed, err := FactoryABI()
	if err != nil {
		return common.Hash{}, fmt.Errorf("parse factory abi: %w", err)
	}
	values, err := callMethod(ctx, f.caller, f.address, parsed, "APP_DATA")
	if err != nil {
		return common.Hash{}, err
	}
	return AsHash(values[0])
}
