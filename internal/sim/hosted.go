package sim

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"mevAMM/internal/contracts"
	"mevAMM/internal/memchain"
)

// chronicleHandler serves a fixed price from a hosted oracle account.
func chronicleHandler(price, age *uint256.Int) memchain.Handler {
	return func(_ context.Context, _ common.Address, data []byte) ([]byte, error) {
		parsed, err := contracts.ChronicleABI()
		if err != nil {
			return nil, err
		}
		method, err := methodOf(parsed, data)
		if err != nil {
			return nil, err
		}
		switch method.Name {
		case "read":
			return method.Outputs.Pack(price.ToBig())
		case "readWithAge":
			return method.Outputs.Pack(price.ToBig(), age.ToBig())
		default:
			return nil, memchain.ErrReverted
		}
	}
}

// factoryHandler serves a factory that deployed exactly the given pools.
func factoryHandler(pools map[common.Address]bool, appData common.Hash) memchain.Handler {
	return func(_ context.Context, _ common.Address, data []byte) ([]byte, error) {
		parsed, err := contracts.FactoryABI()
		if err != nil {
			return nil, err
		}
		method, err := methodOf(parsed, data)
		if err != nil {
			return nil, err
		}
		switch method.Name {
		case "isBPool":
			args, err := method.Inputs.Unpack(data[4:])
			if err != nil {
				return nil, err
			}
			pool, ok := args[0].(common.Address)
			if !ok {
				return nil, fmt.Errorf("isBPool: unexpected argument type %T", args[0])
			}
			return method.Outputs.Pack(pools[pool])
		case "APP_DATA":
			return method.Outputs.Pack([32]byte(appData))
		default:
			return nil, memchain.ErrReverted
		}
	}
}

func methodOf(parsed abi.ABI, data []byte) (*abi.Method, error) {
	if len(data) < 4 {
		return nil, memchain.ErrReverted
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil {
		return nil, memchain.ErrReverted
	}
	return method, nil
}
