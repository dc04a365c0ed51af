// Package ledger holds the committed reserve snapshot of a two-asset pool.
package ledger

import "github.com/holiman/uint256"

// Reserves is the last committed balance snapshot of a two-asset pool.
// It never calls token contracts; callers supply balances they read themselves.
type Reserves struct {
	reserve0 uint256.Int
	reserve1 uint256.Int
}

// Get returns copies of the committed reserves.
func (r *Reserves) Get() (*uint256.Int, *uint256.Int) {
	return new(uint256.Int).Set(&r.reserve0), new(uint256.Int).Set(&r.reserve1)
}

// Update commits balance0/balance1 only when both prior reserves are strictly positive and
// reports whether it did.
func (r *Reserves) Update(balance0, balance1, oldReserve0, oldReserve1 *uint256.Int) bool {
	if oldReserve0.IsZero() || oldReserve1.IsZero() {
		return false
	}
	r.reserve0.Set(balance0)
	r.reserve1.Set(balance1)
	return true
}

// Bootstrap commits the first reserves of a pool after its bootstrap mint.
func (r *Reserves) Bootstrap(balance0, balance1 *uint256.Int) {
	r.reserve0.Set(balance0)
	r.reserve1.Set(balance1)
}

// Initialized reports whether both reserves are positive.
func (r *Reserves) Initialized() bool {
	return !r.reserve0.IsZero() && !r.reserve1.IsZero()
}
