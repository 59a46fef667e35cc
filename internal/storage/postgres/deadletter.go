package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/holiman/uint256"
	interfaces "github.com/sheikh-saqib/yield-bearing-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/yield-bearing-ledger-system/internal/models"
)

// PostgresDeadLetterStore persists failed inbound bridge messages. The
// value behind a dead-lettered message was already burned on the source
// ledger, so the record must survive a process restart: once the transport
// has consumed the message, this row is the only trace of it.
type PostgresDeadLetterStore struct {
	db *sql.DB
}

func NewPostgresDeadLetterStore(db *sql.DB) *PostgresDeadLetterStore {
	return &PostgresDeadLetterStore{
		db: db,
	}
}

// EnsureSchema creates the dead_letters table if it does not exist yet.
func (p *PostgresDeadLetterStore) EnsureSchema(ctx context.Context) error {
	const query = `CREATE TABLE IF NOT EXISTS dead_letters (
		message_id TEXT PRIMARY KEY,
		account TEXT NOT NULL,
		amount TEXT NOT NULL,
		rate TEXT NOT NULL,
		reason TEXT NOT NULL,
		received_at TIMESTAMPTZ NOT NULL
	)`

	_, err := p.db.ExecContext(ctx, query)
	return err
}

func (p *PostgresDeadLetterStore) Record(ctx context.Context, letter models.DeadLetter) error {
	const query = `INSERT INTO dead_letters (message_id, account, amount, rate, reason, received_at)
	VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (message_id) DO NOTHING`

	_, err := p.db.ExecContext(ctx, query,
		letter.Message.ID,
		letter.Message.Account,
		letter.Message.Amount.Dec(),
		letter.Message.Rate.Dec(),
		letter.Reason,
		letter.ReceivedAt,
	)
	return err
}

func (p *PostgresDeadLetterStore) GetDeadLetters(ctx context.Context) ([]models.DeadLetter, error) {
	const query = `SELECT message_id, account, amount, rate, reason, received_at FROM dead_letters`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var letters []models.DeadLetter
	for rows.Next() {
		var (
			letter    models.DeadLetter
			rawAmount string
			rawRate   string
		)
		if err := rows.Scan(
			&letter.Message.ID,
			&letter.Message.Account,
			&rawAmount,
			&rawRate,
			&letter.Reason,
			&letter.ReceivedAt,
		); err != nil {
			return nil, err
		}
		if letter.Message.Amount, err = uint256.FromDecimal(rawAmount); err != nil {
			return nil, fmt.Errorf("corrupt amount for message %s: %w", letter.Message.ID, err)
		}
		if letter.Message.Rate, err = uint256.FromDecimal(rawRate); err != nil {
			return nil, fmt.Errorf("corrupt rate for message %s: %w", letter.Message.ID, err)
		}
		letters = append(letters, letter)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return letters, nil
}

var _ interfaces.DeadLetterStore = (*PostgresDeadLetterStore)(nil)
