package ledger

import "github.com/holiman/uint256"

// Amount is a tagged debit/transfer request: either an exact figure or the
// caller's full settled balance. An explicit variant avoids overloading a
// numeric maximum that could collide with a legitimate large amount.
type Amount struct {
	full  bool
	value *uint256.Int
}

// Exact requests precisely v units.
func Exact(v *uint256.Int) Amount {
	return Amount{value: v}
}

// FullBalance requests whatever the settled principal is at call time.
func FullBalance() Amount {
	return Amount{full: true}
}

// resolve pins the request against the settled principal.
func (a Amount) resolve(settledPrincipal *uint256.Int) *uint256.Int {
	if a.full {
		return settledPrincipal.Clone()
	}
	if a.value == nil {
		return uint256.NewInt(0)
	}
	return a.value.Clone()
}
