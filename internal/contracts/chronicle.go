package contracts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"mevAMM/internal/token"
)

// Chronicle reads Chronicle-style price feeds. It satisfies oracle.Feed.
type Chronicle struct {
	caller token.Caller
}

func NewChronicle(caller token.Caller) *Chronicle {
	return &Chronicle{caller: caller}
}

// Read returns feed.read().
func (c *Chronicle) Read(ctx context.Context, feed common.Address) (*uint256.Int, error) {
	parsed, err := ChronicleABI()
	if err != nil {
		return nil, fmt.Errorf("parse chronicle abi: %w", err)
	}
	values, err := callMethod(ctx, c.caller, feed, parsed, "read")
	if err != nil {
		return nil, err
	}
	return asUint256(values[0])
}

// ReadWithAge returns feed.readWithAge().
func (c *Chronicle) ReadWithAge(ctx context.Context, feed common.Address) (*uint256.Int, *uint256.Int, error) {
	parsed, err := ChronicleABI()
	if err != nil {
		return nil, nil, fmt.Errorf("parse chronicle abi: %w", err)
	}
	values, err := callMethod(ctx, c.caller, feed, parsed, "readWithAge")
	if err != nil {
		return nil, nil, err
	}
	if len(values) != 2 {
		return nil, nil, fmt.Errorf("readWithAge returned %d values", len(values))
	}
	price, err := asUint256(values[0])
	if err != nil {
		return nil, nil, fmt.Errorf("price: %w", err)
	}
	age, err := asUint256(values[1])
	if err != nil {
		return nil, nil, fmt.Errorf("age: %w", err)
	}
	return price, age, nil
}
