package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	interfaces "github.com/sheikh-saqib/yield-bearing-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/logx"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/models"
)

// Consumer reads this instance's bridge topic and feeds each message to the
// gateway. Handler failures are logged and consumption continues: a failed
// message was already dead-lettered by the gateway.
type Consumer struct {
	reader  *kafka.Reader
	handler interfaces.MessageHandler
}

func NewConsumer(brokers []string, topic, groupId string, handler interfaces.MessageHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupId,
		}),
		handler: handler,
	}
}

// Run blocks until the context is cancelled or the reader fails.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return fmt.Errorf("bridge consumer stopped: %w", err)
		}

		var msg models.BridgeMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			logx.Error("BRIDGE", fmt.Sprintf("malformed payload at offset %d: %v", m.Offset, err))
			continue
		}

		if err := c.handler.OnMessage(ctx, msg); err != nil {
			logx.Error("BRIDGE", fmt.Sprintf("message %s not applied: %v", msg.ID, err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
