package bnum

import (
	"fmt"

	"github.com/holiman/uint256"

	"mevAMM/internal/poolerr"
)

// Mul returns the fixed-point product a * b / One, rounded half up.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	c0, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("bmul overflow: %w", poolerr.ErrMath)
	}
	c1, overflow := c0.AddOverflow(c0, halfOne)
	if overflow {
		return nil, fmt.Errorf("bmul overflow: %w", poolerr.ErrMath)
	}
	return c1.Div(c1, One), nil
}

// Div returns the fixed-point quotient a * One / b, rounded half up.
func Div(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, fmt.Errorf("bdiv: %w", poolerr.ErrDivisionByZero)
	}
	c0, overflow := new(uint256.Int).MulOverflow(a, One)
	if overflow {
		return nil, fmt.Errorf("bdiv overflow: %w", poolerr.ErrMath)
	}
	c1, overflow := c0.AddOverflow(c0, new(uint256.Int).Rsh(b, 1))
	if overflow {
		return nil, fmt.Errorf("bdiv overflow: %w", poolerr.ErrMath)
	}
	return c1.Div(c1, b), nil
}

// Floor truncates a fixed-point value to a whole multiple of One.
func Floor(a *uint256.Int) *uint256.Int {
	q := new(uint256.Int).Div(a, One)
	return q.Mul(q, One)
}

// Powi raises a fixed-point base to a whole exponent by repeated squaring.
func Powi(a *uint256.Int, n uint64) (*uint256.Int, error) {
	base := new(uint256.Int).Set(a)
	z := new(uint256.Int).Set(One)
	if n%2 != 0 {
		z.Set(a)
	}

	var err error
	for n /= 2; n != 0; n /= 2 {
		base, err = Mul(base, base)
		if err != nil {
			return nil, err
		}
		if n%2 != 0 {
			z, err = Mul(z, base)
			if err != nil {
				return nil, err
			}
		}
	}
	return z, nil
}

// Pow raises a fixed-point base in [MinPowBase, MaxPowBase] to a fixed-point exponent.
//
// The whole part of the exponent is computed exactly with Powi, the fractional part with the
// binomial series of PowApprox truncated at PowPrecision. The result carries a relative error
// below 1e-10 plus one unit of rounding per fixed-point multiplication.
func Pow(base, exp *uint256.Int) (*uint256.Int, error) {
	if base.Lt(MinPowBase) {
		return nil, poolerr.ErrPowBaseTooLow
	}
	if base.Gt(MaxPowBase) {
		return nil, poolerr.ErrPowBaseTooHigh
	}

	whole := Floor(exp)
	remain := new(uint256.Int).Sub(exp, whole)

	wholeExp := new(uint256.Int).Div(whole, One)
	if !wholeExp.IsUint64() {
		return nil, fmt.Errorf("bpow exponent too large: %w", poolerr.ErrMath)
	}
	wholePow, err := Powi(base, wholeExp.Uint64())
	if err != nil {
		return nil, err
	}
	if remain.IsZero() {
		return wholePow, nil
	}

	partial, err := PowApprox(base, remain, PowPrecision)
	if err != nil {
		return nil, err
	}
	return Mul(wholePow, partial)
}

// PowApprox evaluates base^exp for a fractional exp with the series
// sum_k (exp choose k) * (base - 1)^k, stopping when a term falls below precision.
func PowApprox(base, exp, precision *uint256.Int) (*uint256.Int, error) {
	x, xneg := SubSign(base, One)
	term := new(uint256.Int).Set(One)
	sum := new(uint256.Int).Set(One)
	negative := false

	for i := uint64(1); !term.Lt(precision); i++ {
		bigK, err := MulInt(uint256.NewInt(i), One)
		if err != nil {
			return nil, err
		}
		kMinusOne := new(uint256.Int).Sub(bigK, One)
		c, cneg := SubSign(exp, kMinusOne)

		cx, err := Mul(c, x)
		if err != nil {
			return nil, err
		}
		term, err = Mul(term, cx)
		if err != nil {
			return nil, err
		}
		term, err = Div(term, bigK)
		if err != nil {
			return nil, err
		}
		if term.IsZero() {
			break
		}

		if xneg {
			negative = !negative
		}
		if cneg {
			negative = !negative
		}
		if negative {
			sum, err = Sub(sum, term)
		} else {
			sum, err = Add(sum, term)
		}
		if err != nil {
			return nil, err
		}
	}
	return sum, nil
}
