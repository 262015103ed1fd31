package inventory

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

var ErrItemMissing = errors.New("inventory: catalog item missing")

type ItemDelta struct {
	ProductID string
	Qty       int
}

// CatalogStore mengeksekusi read-modify-write counter stock/sold satu produk.
// Semua mutasi counter katalog lewat sini — batas idempotensi ada di satu tempat.
type CatalogStore interface {
	ApplySale(ctx context.Context, productID string, qty int) error
}

type Updater struct {
	Store CatalogStore
}

// ApplyOrderSuccess menerapkan delta stock/sold untuk tiap line item order yang
// pembayarannya sukses. Item yang gagal (produk sudah dihapus, dsb) di-log dan
// di-skip: pembayaran sudah diterima gateway, status order tetap harus success
// walaupun katalognya berantakan. Mengembalikan jumlah item yang berhasil.
func (u *Updater) ApplyOrderSuccess(ctx context.Context, orderID string, items []ItemDelta) int {
	applied := 0
	for _, it := range items {
		if err := u.Store.ApplySale(ctx, it.ProductID, it.Qty); err != nil {
			lvl := log.WithFields(log.Fields{
				"order_id":   orderID,
				"product_id": it.ProductID,
				"qty":        it.Qty,
			})
			if errors.Is(err, ErrItemMissing) {
				lvl.Warn("catalog item missing, skip stock update")
			} else {
				lvl.WithError(err).Error("stock update failed, skip item")
			}
			continue
		}
		applied++
	}
	return applied
}

// NextCounters menghitung counter baru: stock turun sebanyak qty (mentok di 0),
// sold naik sebanyak qty.
func NextCounters(stock, sold, qty int) (newStock, newSold int) {
	newStock = stock - qty
	if newStock < 0 {
		newStock = 0
	}
	return newStock, sold + qty
}
