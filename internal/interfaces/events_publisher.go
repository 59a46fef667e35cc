package interfaces

// EventPublisher emits domain events (vault deposits) to interested
// consumers; failures to publish never roll back ledger state.
type EventPublisher interface {
	Publish(topic string, event any) error
}
