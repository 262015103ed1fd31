package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGCatalogStore: lock baris produk (FOR UPDATE) -> hitung -> tulis balik.
// Tiap produk transaksi pendek sendiri; antar produk tidak ada ordering.
type PGCatalogStore struct{ DB *pgxpool.Pool }

func (s *PGCatalogStore) ApplySale(ctx context.Context, productID string, qty int) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var stock, sold int
	err = tx.QueryRow(ctx, `SELECT stock, sold FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&stock, &sold)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrItemMissing
	}
	if err != nil {
		return err
	}

	newStock, newSold := NextCounters(stock, sold, qty)
	if _, err := tx.Exec(ctx, `UPDATE products SET stock=$2, sold=$3, updated_at=now() WHERE id=$1`,
		productID, newStock, newSold); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
