package memory

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetByIDUnknownAccount(t *testing.T) {
	store := NewMemoryAccountStore()

	account, err := store.GetByID(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	store := NewMemoryAccountStore()
	ctx := context.Background()

	saved := &models.Account{
		ID:              "alice",
		Principal:       uint256.NewInt(1234),
		AssignedRate:    uint256.NewInt(5),
		LastAccrualTime: 42,
	}
	require.NoError(t, store.Save(ctx, saved))

	loaded, err := store.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestReturnedAccountsAreCopies(t *testing.T) {
	store := NewMemoryAccountStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.Account{
		ID:              "alice",
		Principal:       uint256.NewInt(100),
		AssignedRate:    uint256.NewInt(1),
		LastAccrualTime: 1,
	}))

	first, err := store.GetByID(ctx, "alice")
	require.NoError(t, err)
	first.Principal.SetUint64(999) // mutate the copy

	second, err := store.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(100), second.Principal)
}

func TestGetAccounts(t *testing.T) {
	store := NewMemoryAccountStore()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(ctx, &models.Account{
			ID:              id,
			Principal:       uint256.NewInt(1),
			AssignedRate:    uint256.NewInt(0),
			LastAccrualTime: 0,
		}))
	}

	accounts, err := store.GetAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 3)
}
