package interfaces

import (
	"context"

	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/models"
)

// DeadLetterStore durably records inbound bridge messages that failed to
// apply, so the value debited on the source side is never silently lost.
type DeadLetterStore interface {
	Record(ctx context.Context, letter models.DeadLetter) error
	GetDeadLetters(ctx context.Context) ([]models.DeadLetter, error)
}
