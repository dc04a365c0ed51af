// Package bnum implements checked 256-bit integer and 18-decimal fixed-point arithmetic.
//
// Fixed-point values are scaled by One (10^18). Every operation reports overflow, underflow
// and division by zero as poolerr math errors instead of wrapping.
package bnum

import (
	"fmt"

	"github.com/holiman/uint256"

	"mevAMM/internal/poolerr"
)

const (
	// Decimals is the fixed-point scale exponent.
	Decimals = 18
)

var (
	// One is the fixed-point unit (BONE).
	One = uint256.NewInt(1_000_000_000_000_000_000)

	// PowPrecision bounds the last series term kept by Pow's fractional approximation.
	PowPrecision = uint256.NewInt(100_000_000)

	// MinPowBase and MaxPowBase bound the base accepted by Pow.
	MinPowBase = uint256.NewInt(1)
	MaxPowBase = new(uint256.Int).Sub(new(uint256.Int).Mul(uint256.NewInt(2), One), uint256.NewInt(1))

	halfOne = new(uint256.Int).Rsh(One, 1)
	two     = uint256.NewInt(2)
	three   = uint256.NewInt(3)
)

// Zero returns a fresh zero value.
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// FromUint64 returns x as a 256-bit integer.
func FromUint64(x uint64) *uint256.Int {
	return uint256.NewInt(x)
}

// Ether returns x * One.
func Ether(x uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(x), One)
}

// Add returns a + b.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	c, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("add overflow: %w", poolerr.ErrMath)
	}
	return c, nil
}

// Sub returns a - b, failing when b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	c, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, fmt.Errorf("sub underflow: %w", poolerr.ErrMath)
	}
	return c, nil
}

// SubSign returns |a - b| and whether the true result is negative.
func SubSign(a, b *uint256.Int) (*uint256.Int, bool) {
	if a.Cmp(b) >= 0 {
		return new(uint256.Int).Sub(a, b), false
	}
	return new(uint256.Int).Sub(b, a), true
}

// SaturatingSub returns a - b, or zero when b > a.
func SaturatingSub(a, b *uint256.Int) *uint256.Int {
	c, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return new(uint256.Int)
	}
	return c
}

// MulInt returns the integer product a * b.
func MulInt(a, b *uint256.Int) (*uint256.Int, error) {
	c, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("mul overflow: %w", poolerr.ErrMath)
	}
	return c, nil
}

// DivInt returns the truncated integer quotient a / b.
func DivInt(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, poolerr.ErrDivisionByZero
	}
	return new(uint256.Int).Div(a, b), nil
}

// MulDiv returns a * b / c, truncated, with a checked intermediate product.
func MulDiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	product, err := MulInt(a, b)
	if err != nil {
		return nil, err
	}
	return DivInt(product, c)
}

// CeilDiv returns a / b rounded up.
func CeilDiv(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, poolerr.ErrDivisionByZero
	}
	q, r := new(uint256.Int).DivMod(a, b, new(uint256.Int))
	if r.IsZero() {
		return q, nil
	}
	return Add(q, uint256.NewInt(1))
}

// MulDivUp returns a * b / c rounded up.
func MulDivUp(a, b, c *uint256.Int) (*uint256.Int, error) {
	product, err := MulInt(a, b)
	if err != nil {
		return nil, err
	}
	return CeilDiv(product, c)
}

// Min returns the smaller of a and b.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a
	}
	return b
}

// Sqrt returns floor(sqrt(y)) using the Babylonian iteration, stopping once the next iterate
// no longer decreases.
func Sqrt(y *uint256.Int) (*uint256.Int, error) {
	if y.IsZero() {
		return new(uint256.Int), nil
	}
	if !y.Gt(three) {
		return uint256.NewInt(1), nil
	}

	z := new(uint256.Int).Set(y)
	x, err := Add(new(uint256.Int).Div(y, two), uint256.NewInt(1))
	if err != nil {
		return nil, err
	}
	for x.Lt(z) {
		z.Set(x)
		sum, err := Add(new(uint256.Int).Div(y, x), x)
		if err != nil {
			return nil, err
		}
		x = sum.Div(sum, two)
	}
	return z, nil
}
