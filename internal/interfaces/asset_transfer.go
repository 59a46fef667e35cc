package interfaces

import (
	"context"

	"github.com/holiman/uint256"
)

// AssetTransfer is the base-asset payout primitive the exchange vault
// consumes. Custody of the asset itself is outside the ledger core.
type AssetTransfer interface {
	Send(ctx context.Context, to string, amount *uint256.Int) error
}
