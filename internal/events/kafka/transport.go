package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	interfaces "github.com/sheikh-saqib/yield-bearing-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/models"
)

// Transport carries bridge messages between ledger instances over Kafka.
// Each instance consumes the topic "<prefix><its own instance id>"; a
// publish targets the destination instance's topic. Keying by destination
// account keeps per-account ordering within a partition.
type Transport struct {
	writer      *kafka.Writer
	topicPrefix string
}

func NewTransport(brokers []string, topicPrefix string) *Transport {
	return &Transport{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
		topicPrefix: topicPrefix,
	}
}

func (t *Transport) Publish(ctx context.Context, destinationInstance string, msg models.BridgeMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return t.writer.WriteMessages(ctx, kafka.Message{
		Topic: t.topicPrefix + destinationInstance,
		Key:   []byte(msg.Account),
		Value: data,
	})
}

func (t *Transport) Close() error {
	return t.writer.Close()
}

var _ interfaces.BridgeTransport = (*Transport)(nil)
