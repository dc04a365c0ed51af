package contracts

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// PackCommit encodes commit(orderHash).
func PackCommit(orderHash common.Hash) ([]byte, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	return parsed.Pack("commit", orderHash)
}

// UnpackPoolCall decodes calldata addressed to a pool into its method name and arguments.
func UnpackPoolCall(data []byte) (string, []interface{}, error) {
	parsed, err := PoolABI()
	if err != nil {
		return "", nil, fmt.Errorf("parse pool abi: %w", err)
	}
	if len(data) < 4 {
		return "", nil, fmt.Errorf("calldata too short: %d bytes", len(data))
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil {
		return "", nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return "", nil, fmt.Errorf("unpack %s: %w", method.Name, err)
	}
	return method.Name, args, nil
}

// AsHash converts a decoded bytes32 argument.
func AsHash(value interface{}) (common.Hash, error) {
	switch v := value.(type) {
	case [32]byte:
		return common.Hash(v), nil
	case common.Hash:
		return v, nil
	default:
		return common.Hash{}, fmt.Errorf("unsupported bytes32 type %T", value)
	}
}
