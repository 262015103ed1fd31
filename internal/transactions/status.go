package transactions

import "fmt"

type Status string

const (
	StatusPending  Status = "pending"
	StatusSuccess  Status = "success"
	StatusExpired  Status = "expired"
	StatusCanceled Status = "canceled"
)

// ParseStatus memvalidasi input status dari request manual update.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusSuccess, StatusExpired, StatusCanceled:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// MapGatewayStatus memetakan transaction_status dari gateway ke status lokal.
// Token yang tidak dikenal -> ok=false: status lokal dibiarkan apa adanya,
// jangan sampai token baru dari gateway merusak state.
func MapGatewayStatus(token string) (Status, bool) {
	switch token {
	case "pending":
		return StatusPending, true
	case "settlement", "success":
		return StatusSuccess, true
	case "expire":
		return StatusExpired, true
	case "cancel", "deny":
		return StatusCanceled, true
	}
	return "", false
}
