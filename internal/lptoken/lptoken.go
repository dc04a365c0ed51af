// Package lptoken keeps the liquidity-provider share ledger of a pool.
package lptoken

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"mevAMM/internal/poolerr"
)

const (
	Name     = "LpToken"
	Symbol   = "Lp"
	Decimals = 18
)

// Supply tracks LP units. The sum of all holder balances always equals TotalSupply.
type Supply struct {
	total      uint256.Int
	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int
}

func NewSupply() *Supply {
	return &Supply{
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

// TotalSupply returns a copy of the minted total.
func (s *Supply) TotalSupply() *uint256.Int {
	return new(uint256.Int).Set(&s.total)
}

// BalanceOf returns a copy of owner's balance.
func (s *Supply) BalanceOf(owner common.Address) *uint256.Int {
	if bal, ok := s.balances[owner]; ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

// Allowance returns how much spender may move on behalf of owner.
func (s *Supply) Allowance(owner, spender common.Address) *uint256.Int {
	if byOwner, ok := s.allowances[owner]; ok {
		if amount, ok := byOwner[spender]; ok {
			return new(uint256.Int).Set(amount)
		}
	}
	return new(uint256.Int)
}

// Holders returns every address with a recorded balance, zero balances included.
func (s *Supply) Holders() map[common.Address]*uint256.Int {
	out := make(map[common.Address]*uint256.Int, len(s.balances))
	for owner, bal := range s.balances {
		out[owner] = new(uint256.Int).Set(bal)
	}
	return out
}

// Mint creates value units for to.
func (s *Supply) Mint(to common.Address, value *uint256.Int) error {
	total, overflow := new(uint256.Int).AddOverflow(&s.total, value)
	if overflow {
		return fmt.Errorf("mint %s to %s: %w", value, to.Hex(), poolerr.ErrSupplyOverflow)
	}
	// Balances are bounded by the total, so the credit cannot overflow once the total fits.
	s.total.Set(total)
	s.credit(to, value)
	return nil
}

// Burn destroys value units held by from.
func (s *Supply) Burn(from common.Address, value *uint256.Int) error {
	if err := s.debit(from, value); err != nil {
		return fmt.Errorf("burn %s from %s: %w", value, from.Hex(), err)
	}
	s.total.Sub(&s.total, value)
	return nil
}

// Transfer moves value units from one holder to another.
func (s *Supply) Transfer(from, to common.Address, value *uint256.Int) error {
	if err := s.debit(from, value); err != nil {
		return fmt.Errorf("transfer %s from %s: %w", value, from.Hex(), err)
	}
	s.credit(to, value)
	return nil
}

// Approve sets the amount spender may move on behalf of owner.
func (s *Supply) Approve(owner, spender common.Address, value *uint256.Int) {
	byOwner, ok := s.allowances[owner]
	if !ok {
		byOwner = make(map[common.Address]*uint256.Int)
		s.allowances[owner] = byOwner
	}
	byOwner[spender] = new(uint256.Int).Set(value)
}

// TransferFrom moves value units from owner to to, spending spender's allowance.
func (s *Supply) TransferFrom(spender, owner, to common.Address, value *uint256.Int) error {
	allowed := s.Allowance(owner, spender)
	if allowed.Lt(value) {
		return fmt.Errorf("transfer from %s by %s: %w", owner.Hex(), spender.Hex(), poolerr.ErrInsufficientAllowance)
	}
	if err := s.Transfer(owner, to, value); err != nil {
		return err
	}
	s.Approve(owner, spender, allowed.Sub(allowed, value))
	return nil
}

// Restore replaces all balances, recomputing the total supply.
func (s *Supply) Restore(balances map[common.Address]*uint256.Int) error {
	var total uint256.Int
	restored := make(map[common.Address]*uint256.Int, len(balances))
	for owner, bal := range balances {
		if _, overflow := total.AddOverflow(&total, bal); overflow {
			return fmt.Errorf("restore %s: %w", owner.Hex(), poolerr.ErrSupplyOverflow)
		}
		restored[owner] = new(uint256.Int).Set(bal)
	}
	s.total.Set(&total)
	s.balances = restored
	return nil
}

func (s *Supply) credit(to common.Address, value *uint256.Int) {
	bal, ok := s.balances[to]
	if !ok {
		bal = new(uint256.Int)
		s.balances[to] = bal
	}
	bal.Add(bal, value)
}

func (s *Supply) debit(from common.Address, value *uint256.Int) error {
	bal, ok := s.balances[from]
	if !ok || bal.Lt(value) {
		return poolerr.ErrInsufficientBalance
	}
	bal.Sub(bal, value)
	return nil
}
