package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	interfaces "github.com/sheikh-saqib/yield-bearing-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/logx"
	modelevents "github.com/sheikh-saqib/yield-bearing-ledger-system/internal/models/events"
)

// ErrPayoutFailed means the base-asset transfer during a redeem failed.
// The preceding debit is rolled back, so the redeem is all-or-nothing.
var ErrPayoutFailed = errors.New("asset payout failed")

// DepositsTopic is where completed deposits are published.
const DepositsTopic = "vault_deposits"

// ExchangeVault converts base-asset deposits into ledger credits and ledger
// debits into base-asset payouts, 1:1 nominal. Custody of the base asset
// lives behind the injected AssetTransfer.
type ExchangeVault struct {
	ledger *ledger.Ledger
	assets interfaces.AssetTransfer
	events interfaces.EventPublisher
}

func NewExchangeVault(l *ledger.Ledger, assets interfaces.AssetTransfer, events interfaces.EventPublisher) *ExchangeVault {
	return &ExchangeVault{
		ledger: l,
		assets: assets,
		events: events,
	}
}

// Deposit credits the caller with the deposited amount and emits a deposit
// event. A publish failure is logged, never unwound: the credit stands.
func (v *ExchangeVault) Deposit(ctx context.Context, caller string, amount *uint256.Int) error {
	if err := v.ledger.Credit(ctx, caller, amount); err != nil {
		return err
	}

	if v.events != nil {
		event := modelevents.DepositCompleted{
			Account:    caller,
			Amount:     amount.Clone(),
			OccurredAt: time.Now(),
		}
		if err := v.events.Publish(DepositsTopic, event); err != nil {
			logx.Warn("VAULT", fmt.Sprintf("deposit event for %s not published: %v", caller, err))
		}
	}
	return nil
}

// Redeem debits the caller first, then pays out the base asset. The order
// matters: debiting before the external call prevents a reentrant
// double-spend. If the payout fails, the debit is re-credited with the
// caller's prior assigned rate so the ledger state is exactly restored.
func (v *ExchangeVault) Redeem(ctx context.Context, caller string, req ledger.Amount) (*uint256.Int, error) {
	rate, err := v.ledger.AssignedRate(ctx, caller)
	if err != nil {
		return nil, err
	}

	debited, err := v.ledger.Debit(ctx, caller, req)
	if err != nil {
		return nil, err
	}

	if err := v.assets.Send(ctx, caller, debited); err != nil {
		// Roll back with the captured rate: a plain credit would re-assign
		// the current global rate to a freshly emptied account.
		if rbErr := v.ledger.CreditWithRate(ctx, caller, debited, rate); rbErr != nil {
			logx.Error("VAULT", fmt.Sprintf("payout rollback for %s failed: %v", caller, rbErr))
			return nil, fmt.Errorf("%w: %v (rollback also failed: %v)", ErrPayoutFailed, err, rbErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrPayoutFailed, err)
	}
	return debited, nil
}
