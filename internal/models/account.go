package models

import "github.com/holiman/uint256"

// Account is a single yield-bearing balance record.
// Principal is the settled balance; interest accrued since LastAccrualTime
// at AssignedRate exists only implicitly until the next settlement.
type Account struct {
	ID              string       `json:"id"`                // opaque account identity
	Principal       *uint256.Int `json:"principal"`         // settled balance, 1e18 fixed-point
	AssignedRate    *uint256.Int `json:"assigned_rate"`     // per-account rate captured at last zero-base credit
	LastAccrualTime uint64       `json:"last_accrual_time"` // accrual clock, reset on every settlement
}

// Clone returns a deep copy so stores can hand out accounts without
// exposing their internal state to mutation.
func (a *Account) Clone() *Account {
	return &Account{
		ID:              a.ID,
		Principal:       a.Principal.Clone(),
		AssignedRate:    a.AssignedRate.Clone(),
		LastAccrualTime: a.LastAccrualTime,
	}
}
