package midtrans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrTransactionNotFound: gateway belum punya record untuk order ini.
// Ini bukan error bisnis — order baru / belum pernah dibayar memang begitu.
var ErrTransactionNotFound = errors.New("midtrans: transaction not found")

const DefaultBaseURL = "https://api.sandbox.midtrans.com"

type StatusClient struct {
	BaseURL   string
	ServerKey string
	HTTP      *http.Client
}

func NewStatusClient(baseURL, serverKey string) *StatusClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &StatusClient{
		BaseURL:   baseURL,
		ServerKey: serverKey,
		// gateway lambat tidak boleh menggantung request user
		HTTP: &http.Client{Timeout: 5 * time.Second},
	}
}

type VANumber struct {
	Bank     string `json:"bank"`
	VANumber string `json:"va_number"`
}

type StatusResponse struct {
	StatusCode        string     `json:"status_code"`
	StatusMessage     string     `json:"status_message"`
	TransactionID     string     `json:"transaction_id"`
	OrderID           string     `json:"order_id"`
	TransactionStatus string     `json:"transaction_status"`
	FraudStatus       string     `json:"fraud_status,omitempty"`
	PaymentType       string     `json:"payment_type"`
	TransactionTime   string     `json:"transaction_time"`
	SettlementTime    string     `json:"settlement_time,omitempty"`
	GrossAmount       string     `json:"gross_amount"`
	Currency          string     `json:"currency"`
	Bank              string     `json:"bank,omitempty"`
	VANumbers         []VANumber `json:"va_numbers,omitempty"`
}

// FirstVA mengambil nomor VA pertama (bank transfer cuma kirim satu).
func (r *StatusResponse) FirstVA() (bank, number string) {
	if r.Bank != "" {
		bank = r.Bank
	}
	if len(r.VANumbers) > 0 {
		return r.VANumbers[0].Bank, r.VANumbers[0].VANumber
	}
	return bank, ""
}

// TransactionStatus menanyakan status otoritatif sebuah order_id ke gateway.
func (c *StatusClient) TransactionStatus(ctx context.Context, orderID string) (*StatusResponse, error) {
	url := fmt.Sprintf("%s/v2/%s/status", c.BaseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.ServerKey, "")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("midtrans status lookup: %w", err)
	}
	defer resp.Body.Close()

	var sr StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("midtrans decode response: %w", err)
	}
	// gateway balas 200 dengan status_code "404" ataupun HTTP 404 beneran
	if resp.StatusCode == http.StatusNotFound || sr.StatusCode == "404" {
		return nil, ErrTransactionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("midtrans status lookup: http %d: %s", resp.StatusCode, sr.StatusMessage)
	}
	return &sr, nil
}
