package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/accrual"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/models"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopTransport delivers published messages straight into another gateway,
// standing in for the external relay between two instances.
type loopTransport struct {
	remote   *Gateway
	rejected bool
	sent     []models.BridgeMessage
}

func (lt *loopTransport) Publish(ctx context.Context, destinationInstance string, msg models.BridgeMessage) error {
	if lt.rejected {
		return errors.New("relay rejected the message")
	}
	lt.sent = append(lt.sent, msg)
	if lt.remote != nil {
		return lt.remote.OnMessage(ctx, msg)
	}
	return nil
}

func units(whole uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(whole), accrual.Scale)
}

// newInstance builds an independent ledger+gateway pair, the way one
// network's deployment would run.
func newInstance(rate uint64, transport *loopTransport) (*ledger.Ledger, *Gateway) {
	l := ledger.NewLedger(memory.NewMemoryAccountStore(), uint256.NewInt(rate), func() uint64 { return 1 })
	return l, NewGateway(l, transport, memory.NewMemoryDeadLetterStore())
}

func TestBridgeRoundTrip(t *testing.T) {
	ctx := context.Background()

	transport := &loopTransport{}
	sourceLedger, sourceGateway := newInstance(500, transport)
	destLedger, destGateway := newInstance(100, &loopTransport{})
	transport.remote = destGateway

	require.NoError(t, sourceLedger.Credit(ctx, "alice", units(10)))

	msg, err := sourceGateway.Send(ctx, "alice", "chain-2", "bob", ledger.Exact(units(4)))
	require.NoError(t, err)
	assert.Equal(t, units(4), msg.Amount)
	assert.Equal(t, uint256.NewInt(500), msg.Rate)

	// value conserved end to end
	sourceBal, err := sourceLedger.EffectiveBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, units(6), sourceBal)

	destBal, err := destLedger.EffectiveBalance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, units(4), destBal)

	// rate continuity: bob accrues at alice's rate, not chain-2's global 100
	rate, err := destLedger.AssignedRate(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(500), rate)
}

func TestSendInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	transport := &loopTransport{}
	sourceLedger, sourceGateway := newInstance(0, transport)

	require.NoError(t, sourceLedger.Credit(ctx, "alice", units(1)))

	_, err := sourceGateway.Send(ctx, "alice", "chain-2", "bob", ledger.Exact(units(5)))
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Empty(t, transport.sent, "no message may exist without a debit")
}

func TestSendRejectedPublishRollsBack(t *testing.T) {
	ctx := context.Background()
	transport := &loopTransport{rejected: true}
	sourceLedger, sourceGateway := newInstance(500, transport)

	require.NoError(t, sourceLedger.Credit(ctx, "alice", units(10)))

	_, err := sourceGateway.Send(ctx, "alice", "chain-2", "bob", ledger.FullBalance())
	require.Error(t, err)

	balance, err := sourceLedger.EffectiveBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, units(10), balance)

	rate, err := sourceLedger.AssignedRate(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(500), rate)
}

func TestDuplicateInboundDropped(t *testing.T) {
	ctx := context.Background()
	destLedger, destGateway := newInstance(0, &loopTransport{})

	msg := models.BridgeMessage{
		ID:      "msg-1",
		Account: "bob",
		Amount:  units(4),
		Rate:    uint256.NewInt(500),
	}

	require.NoError(t, destGateway.OnMessage(ctx, msg))
	require.NoError(t, destGateway.OnMessage(ctx, msg)) // replay

	balance, err := destLedger.EffectiveBalance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, units(4), balance, "a replayed message must credit once")
}

func TestInboundOverflowDeadLettered(t *testing.T) {
	ctx := context.Background()

	deadLetters := memory.NewMemoryDeadLetterStore()
	destLedger := ledger.NewLedger(memory.NewMemoryAccountStore(), uint256.NewInt(0), func() uint64 { return 1 })
	destGateway := NewGateway(destLedger, &loopTransport{}, deadLetters)

	require.NoError(t, destLedger.Credit(ctx, "bob", new(uint256.Int).SetAllOne()))

	msg := models.BridgeMessage{
		ID:      "msg-overflow",
		Account: "bob",
		Amount:  uint256.NewInt(1),
		Rate:    uint256.NewInt(0),
	}

	err := destGateway.OnMessage(ctx, msg)
	assert.ErrorIs(t, err, accrual.ErrOverflow)

	letters, dlErr := deadLetters.GetDeadLetters(ctx)
	require.NoError(t, dlErr)
	require.Len(t, letters, 1)
	assert.Equal(t, "msg-overflow", letters[0].Message.ID)
}

func TestDeadLetteredMessageCanBeRedelivered(t *testing.T) {
	ctx := context.Background()

	destLedger, destGateway := newInstance(0, &loopTransport{})
	require.NoError(t, destLedger.Credit(ctx, "bob", new(uint256.Int).SetAllOne()))

	msg := models.BridgeMessage{
		ID:      "msg-retry",
		Account: "bob",
		Amount:  units(4),
		Rate:    uint256.NewInt(0),
	}

	// first delivery overflows and is dead-lettered
	err := destGateway.OnMessage(ctx, msg)
	assert.ErrorIs(t, err, accrual.ErrOverflow)

	// reconciliation makes room, then the relay re-delivers the message
	_, err = destLedger.Debit(ctx, "bob", ledger.Exact(units(100)))
	require.NoError(t, err)
	before, err := destLedger.EffectiveBalance(ctx, "bob")
	require.NoError(t, err)

	require.NoError(t, destGateway.OnMessage(ctx, msg))

	after, err := destLedger.EffectiveBalance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, new(uint256.Int).Add(before, units(4)), after,
		"a failed id must not block the retried credit")
}
