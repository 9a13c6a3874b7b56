package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const contractAddressKey = "contract_address"

// SettingsRepository persists single-row keyed settings, currently just the
// configured contract address.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

func (r *SettingsRepository) GetContractAddress(ctx context.Context) (string, bool, error) {
	q := `SELECT value FROM settings WHERE key = $1`
	var value string
	err := r.pool.QueryRow(ctx, q, contractAddressKey).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *SettingsRepository) SetContractAddress(ctx context.Context, addr string) error {
	q := `
INSERT INTO settings (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
`
	_, err := r.pool.Exec(ctx, q, contractAddressKey, addr)
	return err
}
