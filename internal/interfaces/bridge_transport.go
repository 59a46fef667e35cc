package interfaces

import (
	"context"

	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/models"
)

// BridgeTransport hands an outbound bridge message to the external relay.
// Delivery guarantees (at-most-once, eventual, per-message atomic) are the
// relay's contract, not the ledger's.
type BridgeTransport interface {
	Publish(ctx context.Context, destinationInstance string, msg models.BridgeMessage) error
}

// MessageHandler is the inbound side: the relay invokes it once per
// delivered message.
type MessageHandler interface {
	OnMessage(ctx context.Context, msg models.BridgeMessage) error
}
