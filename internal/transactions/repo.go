package transactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound      = errors.New("transaction not found")
	ErrInvalidStatus = errors.New("invalid status")
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) GetByOrderID(ctx context.Context, orderID string) (*Order, error) {
	var (
		o       Order
		details []byte
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, order_id, user_id, payment_method, status, total_cents, payment_details, created_at, updated_at
		FROM transactions WHERE order_id=$1`, orderID).
		Scan(&o.ID, &o.OrderID, &o.UserID, &o.PaymentMethod, &o.Status, &o.TotalCents, &details, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		var d PaymentDetails
		if err := json.Unmarshal(details, &d); err != nil {
			return nil, fmt.Errorf("decode payment_details: %w", err)
		}
		o.Details = &d
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, qty, price_cents, amount_cents
		FROM transaction_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ProductID, &it.Qty, &it.PriceCents, &it.AmountCents); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

// SetStatus menulis status non-success (atau no-op update) plus metadata bila ada.
// details nil = biarkan payment_details lama (COALESCE).
func (r *Repo) SetStatus(ctx context.Context, orderID string, st Status, details *PaymentDetails) error {
	b, err := marshalDetails(details)
	if err != nil {
		return err
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE transactions
		SET status=$2, payment_details=COALESCE($3, payment_details), updated_at=now()
		WHERE order_id=$1`, orderID, string(st), b)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimSuccess adalah gerbang idempotensi: compare-and-swap di kolom status.
// Update hanya kena kalau status sebelumnya BUKAN success, jadi dari sekian
// reconciler yang balapan (poll user + webhook) cuma satu yang dapat claimed=true
// dan berhak menjalankan side effect inventory.
func (r *Repo) ClaimSuccess(ctx context.Context, orderID string, details *PaymentDetails) (claimed bool, err error) {
	b, err := marshalDetails(details)
	if err != nil {
		return false, err
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE transactions
		SET status=$2, payment_details=COALESCE($3, payment_details), updated_at=now()
		WHERE order_id=$1 AND status <> $2`, orderID, string(StatusSuccess), b)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// SavePaymentDetails menyimpan metadata tanpa menyentuh status
// (dipakai saat token gateway tidak dikenal, atau success->success).
func (r *Repo) SavePaymentDetails(ctx context.Context, orderID string, details *PaymentDetails) error {
	if details == nil {
		return nil
	}
	b, err := marshalDetails(details)
	if err != nil {
		return err
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE transactions SET payment_details=$2, updated_at=now() WHERE order_id=$1`, orderID, b)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalDetails(d *PaymentDetails) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode payment_details: %w", err)
	}
	return b, nil
}
