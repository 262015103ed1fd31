package midtrans

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
)

// Notification adalah payload HTTP POST dari gateway saat status transaksi berubah.
type Notification struct {
	TransactionID     string     `json:"transaction_id"`
	OrderID           string     `json:"order_id"`
	StatusCode        string     `json:"status_code"`
	TransactionStatus string     `json:"transaction_status"`
	FraudStatus       string     `json:"fraud_status,omitempty"`
	PaymentType       string     `json:"payment_type"`
	TransactionTime   string     `json:"transaction_time"`
	SettlementTime    string     `json:"settlement_time,omitempty"`
	GrossAmount       string     `json:"gross_amount"`
	Currency          string     `json:"currency"`
	SignatureKey      string     `json:"signature_key"`
	Bank              string     `json:"bank,omitempty"`
	VANumbers         []VANumber `json:"va_numbers,omitempty"`
}

func (n *Notification) FirstVA() (bank, number string) {
	if len(n.VANumbers) > 0 {
		return n.VANumbers[0].Bank, n.VANumbers[0].VANumber
	}
	return n.Bank, ""
}

// Signature menghitung sha512(order_id + status_code + gross_amount + server_key),
// skema signature_key notifikasi Midtrans.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// ValidSignature membandingkan signature notifikasi dalam constant time.
func (n *Notification) ValidSignature(serverKey string) bool {
	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(n.SignatureKey)) == 1
}
