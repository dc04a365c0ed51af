// Package memchain is an in-memory token host: ERC20 balances, allowances and callable
// contracts behind the token.Caller interface, with a revertible journal.
//
// A Chain is not safe for concurrent use.
package memchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"mevAMM/internal/token"
)

// ErrReverted is returned for calls that revert.
var ErrReverted = errors.New("execution reverted")

// ReturnStyle selects what a token returns from transfer and transferFrom.
type ReturnStyle int

const (
	// ReturnTrue returns an ABI-encoded true.
	ReturnTrue ReturnStyle = iota
	// ReturnNothing returns empty data, like early non-standard tokens.
	ReturnNothing
	// ReturnFalse returns an ABI-encoded false without reverting.
	ReturnFalse
	// ReturnMalformed returns a short, non-boolean payload.
	ReturnMalformed
)

// Handler executes a call to a registered contract.
type Handler func(ctx context.Context, from common.Address, data []byte) ([]byte, error)

// Token is an ERC20 hosted by the chain.
type Token struct {
	Address  common.Address
	Symbol   string
	Name     string
	Decimals uint8
	Return   ReturnStyle
	Revert   bool

	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int
}

type journalEntry struct {
	token   *Token
	owner   common.Address
	spender *common.Address
	prev    *uint256.Int
}

// Chain hosts tokens and contract handlers.
type Chain struct {
	tokens    map[common.Address]*Token
	contracts map[common.Address]Handler
	journal   []journalEntry
}

func New() *Chain {
	return &Chain{
		tokens:    make(map[common.Address]*Token),
		contracts: make(map[common.Address]Handler),
	}
}

// DeployToken registers an ERC20 at address.
func (c *Chain) DeployToken(address common.Address, symbol string, decimals uint8) *Token {
	t := &Token{
		Address:    address,
		Symbol:     symbol,
		Decimals:   decimals,
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
	}
	c.tokens[address] = t
	return t
}

// Token returns the hosted token at address.
func (c *Chain) Token(address common.Address) (*Token, bool) {
	t, ok := c.tokens[address]
	return t, ok
}

// Register installs a contract handler at address.
func (c *Chain) Register(address common.Address, handler Handler) {
	c.contracts[address] = handler
}

// Snapshot returns an identifier for the current state.
func (c *Chain) Snapshot() int {
	return len(c.journal)
}

// RevertToSnapshot undoes every balance and allowance change made after id.
func (c *Chain) RevertToSnapshot(id int) {
	for i := len(c.journal) - 1; i >= id; i-- {
		entry := c.journal[i]
		if entry.spender != nil {
			entry.token.allowances[entry.owner][*entry.spender] = entry.prev
			continue
		}
		entry.token.balances[entry.owner] = entry.prev
	}
	c.journal = c.journal[:id]
}

// Atomic runs fn and reverts every change it made if it fails.
func (c *Chain) Atomic(fn func() error) error {
	id := c.Snapshot()
	if err := fn(); err != nil {
		c.RevertToSnapshot(id)
		return err
	}
	return nil
}

// BalanceOf returns owner's balance of token, zero for unknown tokens.
func (c *Chain) BalanceOf(tokenAddr, owner common.Address) *uint256.Int {
	t, ok := c.tokens[tokenAddr]
	if !ok {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(t.balance(owner))
}

// Mint credits amount of token to to.
func (c *Chain) Mint(tokenAddr, to common.Address, amount *uint256.Int) error {
	t, ok := c.tokens[tokenAddr]
	if !ok {
		return fmt.Errorf("unknown token %s", tokenAddr.Hex())
	}
	bal, overflow := new(uint256.Int).AddOverflow(t.balance(to), amount)
	if overflow {
		return fmt.Errorf("mint %s: balance overflow", t.Symbol)
	}
	c.setBalance(t, to, bal)
	return nil
}

// Transfer moves amount of token between two accounts outside of any contract call.
func (c *Chain) Transfer(tokenAddr, from, to common.Address, amount *uint256.Int) error {
	t, ok := c.tokens[tokenAddr]
	if !ok {
		return fmt.Errorf("unknown token %s", tokenAddr.Hex())
	}
	return c.move(t, from, to, amount)
}

// Approve sets spender's allowance over owner's token balance.
func (c *Chain) Approve(tokenAddr, owner, spender common.Address, amount *uint256.Int) error {
	t, ok := c.tokens[tokenAddr]
	if !ok {
		return fmt.Errorf("unknown token %s", tokenAddr.Hex())
	}
	c.setAllowance(t, owner, spender, amount)
	return nil
}

// Call implements token.Caller.
func (c *Chain) Call(ctx context.Context, from, to common.Address, data []byte) ([]byte, error) {
	if t, ok := c.tokens[to]; ok {
		id := c.Snapshot()
		ret, err := c.callToken(t, from, data)
		if err != nil {
			c.RevertToSnapshot(id)
			return nil, err
		}
		return ret, nil
	}
	if handler, ok := c.contracts[to]; ok {
		id := c.Snapshot()
		ret, err := handler(ctx, from, data)
		if err != nil {
			c.RevertToSnapshot(id)
			return nil, err
		}
		return ret, nil
	}
	// Plain accounts accept any call.
	return nil, nil
}

func (c *Chain) callToken(t *Token, from common.Address, data []byte) ([]byte, error) {
	if t.Revert {
		return nil, ErrReverted
	}
	parsed, err := token.ERC20ABI()
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, ErrReverted
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil {
		return nil, ErrReverted
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, ErrReverted
	}

	switch method.Name {
	case "balanceOf":
		return method.Outputs.Pack(t.balance(args[0].(common.Address)).ToBig())
	case "transfer":
		amount, err := toUint256(args[1])
		if err != nil {
			return nil, err
		}
		if err := c.move(t, from, args[0].(common.Address), amount); err != nil {
			return nil, err
		}
		return transferReturn(t.Return, method)
	case "transferFrom":
		owner := args[0].(common.Address)
		amount, err := toUint256(args[2])
		if err != nil {
			return nil, err
		}
		allowed := t.allowance(owner, from)
		if allowed.Lt(amount) {
			return nil, ErrReverted
		}
		if err := c.move(t, owner, args[1].(common.Address), amount); err != nil {
			return nil, err
		}
		c.setAllowance(t, owner, from, new(uint256.Int).Sub(allowed, amount))
		return transferReturn(t.Return, method)
	case "allowance":
		return method.Outputs.Pack(t.allowance(args[0].(common.Address), args[1].(common.Address)).ToBig())
	case "decimals":
		return method.Outputs.Pack(t.Decimals)
	case "symbol":
		return method.Outputs.Pack(t.Symbol)
	case "name":
		if t.Name == "" {
			return method.Outputs.Pack(t.Symbol)
		}
		return method.Outputs.Pack(t.Name)
	case "approve":
		amount, err := toUint256(args[1])
		if err != nil {
			return nil, err
		}
		c.setAllowance(t, from, args[0].(common.Address), amount)
		return method.Outputs.Pack(true)
	default:
		return nil, ErrReverted
	}
}

func transferReturn(style ReturnStyle, method *abi.Method) ([]byte, error) {
	switch style {
	case ReturnNothing:
		return nil, nil
	case ReturnFalse:
		return method.Outputs.Pack(false)
	case ReturnMalformed:
		return []byte{0x01}, nil
	default:
		return method.Outputs.Pack(true)
	}
}

func (c *Chain) move(t *Token, from, to common.Address, amount *uint256.Int) error {
	fromBal := t.balance(from)
	if fromBal.Lt(amount) {
		return fmt.Errorf("%s transfer amount exceeds balance: %w", t.Symbol, ErrReverted)
	}
	c.setBalance(t, from, new(uint256.Int).Sub(fromBal, amount))
	toBal, overflow := new(uint256.Int).AddOverflow(t.balance(to), amount)
	if overflow {
		return fmt.Errorf("%s balance overflow: %w", t.Symbol, ErrReverted)
	}
	c.setBalance(t, to, toBal)
	return nil
}

func (c *Chain) setBalance(t *Token, owner common.Address, value *uint256.Int) {
	c.journal = append(c.journal, journalEntry{token: t, owner: owner, prev: t.balances[owner]})
	t.balances[owner] = value
}

func (c *Chain) setAllowance(t *Token, owner, spender common.Address, value *uint256.Int) {
	byOwner, ok := t.allowances[owner]
	if !ok {
		byOwner = make(map[common.Address]*uint256.Int)
		t.allowances[owner] = byOwner
	}
	s := spender
	c.journal = append(c.journal, journalEntry{token: t, owner: owner, spender: &s, prev: byOwner[spender]})
	byOwner[spender] = value
}

func (t *Token) balance(owner common.Address) *uint256.Int {
	if bal, ok := t.balances[owner]; ok && bal != nil {
		return bal
	}
	return new(uint256.Int)
}

func (t *Token) allowance(owner, spender common.Address) *uint256.Int {
	if byOwner, ok := t.allowances[owner]; ok {
		if amount, ok := byOwner[spender]; ok && amount != nil {
			return amount
		}
	}
	return new(uint256.Int)
}

func toUint256(value interface{}) (*uint256.Int, error) {
	raw, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected amount type %T: %w", value, ErrReverted)
	}
	out, overflow := uint256.FromBig(raw)
	if overflow {
		return nil, ErrReverted
	}
	return out, nil
}
