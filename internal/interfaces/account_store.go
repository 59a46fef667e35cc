package interfaces

import (
	"context"

	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/models"
)

// AccountStore is the keyed storage the ledger owns its accounts through.
// GetByID returns (nil, nil) for an identity that was never credited.
type AccountStore interface {
	GetByID(ctx context.Context, accountId string) (*models.Account, error)
	Save(ctx context.Context, account *models.Account) error
	GetAccounts(ctx context.Context) ([]models.Account, error)
}
