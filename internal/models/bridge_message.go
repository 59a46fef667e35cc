package models

import (
	"time"

	"github.com/holiman/uint256"
)

// BridgeMessage is the payload carried between ledger instances: the value
// burned on the source side plus the rate metadata the destination needs to
// resume identical accrual.
type BridgeMessage struct {
	ID      string       `json:"id"`      // unique message identifier, applied at most once
	Account string       `json:"account"` // destination account identity
	Amount  *uint256.Int `json:"amount"`  // value in transit, 1e18 fixed-point
	Rate    *uint256.Int `json:"rate"`    // sender's assigned rate at debit time
}

// DeadLetter records an inbound bridge message that could not be credited.
// The value was already debited on the source ledger, so the message must
// survive for manual reconciliation instead of being dropped.
type DeadLetter struct {
	Message    BridgeMessage `json:"message"`
	Reason     string        `json:"reason"`
	ReceivedAt time.Time     `json:"received_at"`
}
