package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/holiman/uint256"
	interfaces "github.com/sheikh-saqib/yield-bearing-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/models"
)

// PostgresAccountStore persists accounts as
// (id, principal, assigned_rate, last_accrual_time). The uint256 columns
// are stored as decimal text to keep the full 256-bit range.
type PostgresAccountStore struct {
	db *sql.DB
}

func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{
		db: db,
	}
}

// EnsureSchema creates the accounts table if it does not exist yet.
func (p *PostgresAccountStore) EnsureSchema(ctx context.Context) error {
	const query = `CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		principal TEXT NOT NULL,
		assigned_rate TEXT NOT NULL,
		last_accrual_time BIGINT NOT NULL
	)`

	_, err := p.db.ExecContext(ctx, query)
	return err
}

func (p *PostgresAccountStore) GetByID(ctx context.Context, accountId string) (*models.Account, error) {
	const query = `SELECT id, principal, assigned_rate, last_accrual_time FROM accounts
	WHERE id = $1`

	var (
		account      models.Account
		rawPrincipal string
		rawRate      string
	)
	err := p.db.QueryRowContext(ctx, query, accountId).Scan(
		&account.ID,
		&rawPrincipal,
		&rawRate,
		&account.LastAccrualTime,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if account.Principal, err = uint256.FromDecimal(rawPrincipal); err != nil {
		return nil, fmt.Errorf("corrupt principal for %s: %w", accountId, err)
	}
	if account.AssignedRate, err = uint256.FromDecimal(rawRate); err != nil {
		return nil, fmt.Errorf("corrupt assigned rate for %s: %w", accountId, err)
	}
	return &account, nil
}

func (p *PostgresAccountStore) Save(ctx context.Context, account *models.Account) error {
	const query = `INSERT INTO accounts (id, principal, assigned_rate, last_accrual_time)
	VALUES ($1,$2,$3,$4)
	ON CONFLICT (id) DO UPDATE SET principal = $2, assigned_rate = $3, last_accrual_time = $4`

	_, err := p.db.ExecContext(ctx, query,
		account.ID,
		account.Principal.Dec(),
		account.AssignedRate.Dec(),
		account.LastAccrualTime,
	)
	return err
}

func (p *PostgresAccountStore) GetAccounts(ctx context.Context) ([]models.Account, error) {
	const query = `SELECT id, principal, assigned_rate, last_accrual_time FROM accounts`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var (
			account      models.Account
			rawPrincipal string
			rawRate      string
		)
		if err := rows.Scan(&account.ID, &rawPrincipal, &rawRate, &account.LastAccrualTime); err != nil {
			return nil, err
		}
		if account.Principal, err = uint256.FromDecimal(rawPrincipal); err != nil {
			return nil, fmt.Errorf("corrupt principal for %s: %w", account.ID, err)
		}
		if account.AssignedRate, err = uint256.FromDecimal(rawRate); err != nil {
			return nil, fmt.Errorf("corrupt assigned rate for %s: %w", account.ID, err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

var _ interfaces.AccountStore = (*PostgresAccountStore)(nil)
