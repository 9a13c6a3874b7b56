package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dileep812/credit-score/internal/gateway"
)

// TxJournalRepository keeps a durable record of every mined submission so a
// session can list what it sent and with which outcome.
type TxJournalRepository struct {
	pool *pgxpool.Pool
}

func NewTxJournalRepository(pool *pgxpool.Pool) *TxJournalRepository {
	return &TxJournalRepository{pool: pool}
}

func (r *TxJournalRepository) Record(ctx context.Context, entry gateway.JournalEntry) error {
	q := `
INSERT INTO tx_journal (id, address, operation, tx_hash, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err := r.pool.Exec(ctx, q,
		entry.ID, entry.Address, entry.Operation, entry.TxHash, entry.Status, entry.CreatedAt,
	)
	return err
}

func (r *TxJournalRepository) ListByAddress(ctx context.Context, address string, limit int) ([]gateway.JournalEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `
SELECT id, address, operation, tx_hash, status, created_at
FROM tx_journal
WHERE address = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.pool.Query(ctx, q, address, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []gateway.JournalEntry
	for rows.Next() {
		var e gateway.JournalEntry
		if err := rows.Scan(&e.ID, &e.Address, &e.Operation, &e.TxHash, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
