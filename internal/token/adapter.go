// Package token moves and reads ERC20 balances through a raw call primitive.
package token

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"mevAMM/internal/poolerr"
)

// Caller issues a raw call from one account to a contract and returns its return data.
// A non-nil error means the call reverted or could not be delivered.
type Caller interface {
	Call(ctx context.Context, from, to common.Address, data []byte) ([]byte, error)
}

// Adapter performs token calls on behalf of a single account (the pool).
type Adapter struct {
	caller Caller
	self   common.Address
}

func NewAdapter(caller Caller, self common.Address) *Adapter {
	return &Adapter{caller: caller, self: self}
}

// Self returns the account the adapter calls from.
func (a *Adapter) Self() common.Address {
	return a.self
}

// BalanceOf reads token.balanceOf(owner).
func (a *Adapter) BalanceOf(ctx context.Context, token, owner common.Address) (*uint256.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	resp, err := a.caller.Call(ctx, a.self, token, data)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf %s: %w", token.Hex(), err)
	}
	values, err := parsed.Unpack("balanceOf", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("balanceOf return size %d", len(values))
	}
	raw, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf unexpected type %T", values[0])
	}
	bal, overflow := uint256.FromBig(raw)
	if overflow {
		return nil, fmt.Errorf("balanceOf %s: %w", raw, poolerr.ErrMath)
	}
	return bal, nil
}

// SafeTransfer sends value of token from the adapter's account to to.
func (a *Adapter) SafeTransfer(ctx context.Context, token, to common.Address, value *uint256.Int) error {
	parsed, err := ERC20ABI()
	if err != nil {
		return fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack("transfer", to, value.ToBig())
	if err != nil {
		return fmt.Errorf("pack transfer: %w", err)
	}
	return a.safeCall(ctx, token, data)
}

// SafeTransferFrom pulls value of token from from to to, spending the adapter's allowance.
func (a *Adapter) SafeTransferFrom(ctx context.Context, token, from, to common.Address, value *uint256.Int) error {
	parsed, err := ERC20ABI()
	if err != nil {
		return fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack("transferFrom", from, to, value.ToBig())
	if err != nil {
		return fmt.Errorf("pack transferFrom: %w", err)
	}
	return a.safeCall(ctx, token, data)
}

// Approve sets spender's allowance over the adapter account's token balance.
func (a *Adapter) Approve(ctx context.Context, token, spender common.Address, value *uint256.Int) error {
	parsed, err := ERC20ABI()
	if err != nil {
		return fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack("approve", spender, value.ToBig())
	if err != nil {
		return fmt.Errorf("pack approve: %w", err)
	}
	return a.safeCall(ctx, token, data)
}

// Invoke makes an arbitrary call to target with data, surfacing any revert.
func (a *Adapter) Invoke(ctx context.Context, target common.Address, data []byte) ([]byte, error) {
	return a.caller.Call(ctx, a.self, target, data)
}

func (a *Adapter) safeCall(ctx context.Context, token common.Address, data []byte) error {
	ret, err := a.caller.Call(ctx, a.self, token, data)
	if !TransferSucceeded(ret, err) {
		if err != nil {
			return fmt.Errorf("token %s: %w (%v)", token.Hex(), poolerr.ErrTransferFailed, err)
		}
		return fmt.Errorf("token %s: %w", token.Hex(), poolerr.ErrTransferFailed)
	}
	return nil
}

var abiTrue = common.LeftPadBytes([]byte{1}, 32)

// TransferSucceeded applies the token return convention: the call did not revert and it
// returned either nothing or exactly one 32-byte word encoding true.
func TransferSucceeded(ret []byte, err error) bool {
	if err != nil {
		return false
	}
	return len(ret) == 0 || bytes.Equal(ret, abiTrue)
}
