package events

import (
	"time"

	"github.com/holiman/uint256"
)

type DepositCompleted struct {
	Account    string       `json:"account"`
	Amount     *uint256.Int `json:"amount"`
	OccurredAt time.Time    `json:"occurred_at"`
}
