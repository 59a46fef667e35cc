package memory

import (
	"context"
	"sync"

	interfaces "github.com/sheikh-saqib/yield-bearing-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/models"
)

// MemoryAccountStore is an in-memory implementation of interfaces.AccountStore.
// It keeps accounts in a map keyed by identity and is safe for concurrent use.
type MemoryAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
}

// NewMemoryAccountStore creates and returns a new MemoryAccountStore instance.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts: make(map[string]*models.Account),
	}
}

// GetByID returns a copy of the stored account, or (nil, nil) if the
// identity was never saved.
func (m *MemoryAccountStore) GetByID(ctx context.Context, accountId string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, exists := m.accounts[accountId]
	if !exists {
		return nil, nil
	}
	// return a copy so external code can't modify internal state
	return account.Clone(), nil
}

// Save upserts the account. The stored record is a copy of the argument.
func (m *MemoryAccountStore) Save(ctx context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts[account.ID] = account.Clone()
	return nil
}

// GetAccounts returns copies of every stored account.
func (m *MemoryAccountStore) GetAccounts(ctx context.Context) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]models.Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		copied = append(copied, *account.Clone())
	}
	return copied, nil
}

// Compile-time check: ensure MemoryAccountStore implements AccountStore
var _ interfaces.AccountStore = (*MemoryAccountStore)(nil)
