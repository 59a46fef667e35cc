package memory

import (
	"context"
	"sync"

	interfaces "github.com/sheikh-saqib/yield-bearing-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/models"
)

// MemoryDeadLetterStore keeps failed inbound bridge messages in memory for
// the reconciliation endpoint to expose.
type MemoryDeadLetterStore struct {
	mu      sync.Mutex
	letters []models.DeadLetter
}

func NewMemoryDeadLetterStore() *MemoryDeadLetterStore {
	return &MemoryDeadLetterStore{
		letters: make([]models.DeadLetter, 0),
	}
}

func (m *MemoryDeadLetterStore) Record(ctx context.Context, letter models.DeadLetter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.letters = append(m.letters, letter)
	return nil
}

func (m *MemoryDeadLetterStore) GetDeadLetters(ctx context.Context) ([]models.DeadLetter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]models.DeadLetter, len(m.letters))
	copy(copied, m.letters)
	return copied, nil
}

// Compile-time check: ensure MemoryDeadLetterStore implements DeadLetterStore
var _ interfaces.DeadLetterStore = (*MemoryDeadLetterStore)(nil)
