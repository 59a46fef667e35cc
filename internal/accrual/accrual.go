package accrual

import (
	"errors"

	"github.com/holiman/uint256"
)

// Scale is the fixed-point unit: all principals, rates and growth factors
// are expressed in parts per 1e18.
var Scale = uint256.MustFromDecimal("1000000000000000000")

// ErrOverflow is returned when a principal/rate/duration product exceeds
// the 256-bit arithmetic bound. The caller must abort the operation rather
// than let a wrapped value reach the ledger.
var ErrOverflow = errors.New("arithmetic overflow")

// GrowthFactor returns Scale + rate*elapsed, the linear (non-compounding)
// multiplier a balance earns after `elapsed` time units at `rate`.
func GrowthFactor(rate *uint256.Int, elapsed uint64) (*uint256.Int, error) {
	interest, overflow := new(uint256.Int).MulOverflow(rate, uint256.NewInt(elapsed))
	if overflow {
		return nil, ErrOverflow
	}
	factor, overflow := new(uint256.Int).AddOverflow(Scale, interest)
	if overflow {
		return nil, ErrOverflow
	}
	return factor, nil
}

// EffectiveBalance returns principal * GrowthFactor(rate, elapsed) / Scale:
// the principal plus interest accrued over `elapsed` but not yet settled.
// The result is never below the principal.
func EffectiveBalance(principal, rate *uint256.Int, elapsed uint64) (*uint256.Int, error) {
	factor, err := GrowthFactor(rate, elapsed)
	if err != nil {
		return nil, err
	}
	if factor.Eq(Scale) {
		// No growth, no multiplication. This also keeps principals near
		// the 256-bit bound settleable at zero elapsed time.
		return principal.Clone(), nil
	}
	gross, overflow := new(uint256.Int).MulOverflow(principal, factor)
	if overflow {
		return nil, ErrOverflow
	}
	return gross.Div(gross, Scale), nil
}
