package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	interfaces "github.com/sheikh-saqib/yield-bearing-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/logx"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/models"
)

// Gateway is one ledger instance's end of the bridging protocol. Outbound
// it burns value locally and produces exactly one well-formed message per
// successful debit; inbound it applies each message at most once, crediting
// with the rate the value held on the source ledger.
type Gateway struct {
	ledger      *ledger.Ledger
	transport   interfaces.BridgeTransport
	deadLetters interfaces.DeadLetterStore

	mu      sync.Mutex
	applied map[string]struct{} // message ids already consumed
}

func NewGateway(l *ledger.Ledger, transport interfaces.BridgeTransport, deadLetters interfaces.DeadLetterStore) *Gateway {
	return &Gateway{
		ledger:      l,
		transport:   transport,
		deadLetters: deadLetters,
		applied:     make(map[string]struct{}),
	}
}

// Send debits the caller and hands a bridge message to the transport. The
// caller's assigned rate is read before the debit so the destination can
// reproduce identical accrual. A rejected publish rolls the debit back;
// after an accepted publish the transfer is fire-and-forget locally.
func (g *Gateway) Send(ctx context.Context, caller, destinationInstance, destinationAccount string, req ledger.Amount) (models.BridgeMessage, error) {
	rate, err := g.ledger.AssignedRate(ctx, caller)
	if err != nil {
		return models.BridgeMessage{}, err
	}

	debited, err := g.ledger.Debit(ctx, caller, req)
	if err != nil {
		return models.BridgeMessage{}, err
	}

	msg := models.BridgeMessage{
		ID:      uuid.New().String(),
		Account: destinationAccount,
		Amount:  debited,
		Rate:    rate,
	}

	if err := g.transport.Publish(ctx, destinationInstance, msg); err != nil {
		// Nothing left the instance; restore the burned value with the
		// captured rate so the caller keeps accruing as before.
		if rbErr := g.ledger.CreditWithRate(ctx, caller, debited, rate); rbErr != nil {
			logx.Error("BRIDGE", fmt.Sprintf("publish rollback for %s failed: %v", caller, rbErr))
			return models.BridgeMessage{}, fmt.Errorf("publish rejected: %v (rollback also failed: %w)", err, rbErr)
		}
		return models.BridgeMessage{}, fmt.Errorf("publish rejected: %w", err)
	}

	logx.Info("BRIDGE", fmt.Sprintf("message %s: %s units to %s@%s", msg.ID, debited.Dec(), destinationAccount, destinationInstance))
	return msg, nil
}

// OnMessage applies an inbound bridge message. Replays of an already-applied
// id are dropped. A credit failure (overflow) is dead-lettered for manual
// reconciliation: the value was already burned on the source side, so the
// message must never be silently discarded. A failed id is released again,
// so re-delivering the message after reconciliation applies it normally.
func (g *Gateway) OnMessage(ctx context.Context, msg models.BridgeMessage) error {
	// Reserve the id before crediting so a concurrent replay cannot
	// double-apply; the reservation is dropped below if the credit fails.
	g.mu.Lock()
	if _, seen := g.applied[msg.ID]; seen {
		g.mu.Unlock()
		logx.Warn("BRIDGE", fmt.Sprintf("duplicate message %s dropped", msg.ID))
		return nil
	}
	g.applied[msg.ID] = struct{}{}
	g.mu.Unlock()

	if err := g.ledger.CreditWithRate(ctx, msg.Account, msg.Amount, msg.Rate); err != nil {
		g.mu.Lock()
		delete(g.applied, msg.ID)
		g.mu.Unlock()

		letter := models.DeadLetter{
			Message:    msg,
			Reason:     err.Error(),
			ReceivedAt: time.Now(),
		}
		if dlErr := g.deadLetters.Record(ctx, letter); dlErr != nil {
			logx.Error("BRIDGE", fmt.Sprintf("message %s lost: credit failed (%v) and dead-letter failed (%v)", msg.ID, err, dlErr))
			return fmt.Errorf("inbound credit: %v (dead-letter also failed: %w)", err, dlErr)
		}
		logx.Error("BRIDGE", fmt.Sprintf("message %s dead-lettered: %v", msg.ID, err))
		return fmt.Errorf("inbound credit: %w", err)
	}
	return nil
}

// Compile-time check: the gateway is the transport's inbound handler.
var _ interfaces.MessageHandler = (*Gateway)(nil)
