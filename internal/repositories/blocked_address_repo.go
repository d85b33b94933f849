package repositories

import (
	"context"

	"github.com/mkowalczyk/authguard/internal/database"
)

// BlockedAddressRepository is the Postgres-backed durable store for the
// guard's block list. Addresses have no expiry column on purpose: a block
// stands until removed through the admin surface.
type BlockedAddressRepository struct {
	db *database.DB
}

// NewBlockedAddressRepository creates a new BlockedAddressRepository
func NewBlockedAddressRepository(db *database.DB) *BlockedAddressRepository {
	return &BlockedAddressRepository{db: db}
}

// Load returns every blocked address.
func (r *BlockedAddressRepository) Load(ctx context.Context) ([]string, error) {
	query := `SELECT address FROM blocked_addresses ORDER BY blocked_at`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var address string
		if err := rows.Scan(&address); err != nil {
			return nil, err
		}
		addresses = append(addresses, address)
	}

	return addresses, rows.Err()
}

// Save replaces the stored set with the given addresses.
func (r *BlockedAddressRepository) Save(ctx context.Context, addresses []string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return database.MapPostgresError(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM blocked_addresses`); err != nil {
		return database.MapPostgresError(err)
	}

	for _, address := range addresses {
		if _, err := tx.Exec(ctx,
			`INSERT INTO blocked_addresses (address) VALUES ($1) ON CONFLICT (address) DO NOTHING`,
			address,
		); err != nil {
			return database.MapPostgresError(err)
		}
	}

	return tx.Commit(ctx)
}
