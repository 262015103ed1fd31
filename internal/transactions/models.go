package transactions

import "time"

type PaymentMethod string

const (
	PaymentPaid PaymentMethod = "paid"
	PaymentFree PaymentMethod = "free"
)

type Order struct {
	ID            string
	OrderID       string // external id, e.g. "ORDER-1693526400123"
	UserID        string
	PaymentMethod PaymentMethod
	Status        Status // lihat status.go
	TotalCents    int
	Details       *PaymentDetails
	Items         []LineItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type LineItem struct {
	ProductID   string `json:"product_id"`
	Qty         int    `json:"qty"`
	PriceCents  int    `json:"price_cents"`
	AmountCents int    `json:"amount_cents"`
}

// PaymentDetails adalah metadata pembayaran dari gateway, disimpan apa adanya
// sebagai jsonb. Semua field string supaya merge "non-empty wins" sederhana.
type PaymentDetails struct {
	PaymentType     string `json:"payment_type,omitempty"`
	Bank            string `json:"bank,omitempty"`
	VANumber        string `json:"va_number,omitempty"`
	TransactionID   string `json:"transaction_id,omitempty"`
	TransactionTime string `json:"transaction_time,omitempty"`
	SettlementTime  string `json:"settlement_time,omitempty"`
	GrossAmount     string `json:"gross_amount,omitempty"`
	Currency        string `json:"currency,omitempty"`
}

// Merge menimpa field lama hanya jika gateway mengirim nilainya.
// Field yang tidak dikirim gateway tidak pernah di-null-kan.
func (d *PaymentDetails) Merge(in PaymentDetails) {
	if in.PaymentType != "" {
		d.PaymentType = in.PaymentType
	}
	if in.Bank != "" {
		d.Bank = in.Bank
	}
	if in.VANumber != "" {
		d.VANumber = in.VANumber
	}
	if in.TransactionID != "" {
		d.TransactionID = in.TransactionID
	}
	if in.TransactionTime != "" {
		d.TransactionTime = in.TransactionTime
	}
	if in.SettlementTime != "" {
		d.SettlementTime = in.SettlementTime
	}
	if in.GrossAmount != "" {
		d.GrossAmount = in.GrossAmount
	}
	if in.Currency != "" {
		d.Currency = in.Currency
	}
}

// View adalah bentuk respons API: { _id, order_id, status, payment_details|null, updated_at }
type View struct {
	ID             string          `json:"_id"`
	OrderID        string          `json:"order_id"`
	Status         Status          `json:"status"`
	PaymentDetails *PaymentDetails `json:"payment_details"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (o *Order) View() View {
	return View{
		ID:             o.ID,
		OrderID:        o.OrderID,
		Status:         o.Status,
		PaymentDetails: o.Details,
		UpdatedAt:      o.UpdatedAt,
	}
}
