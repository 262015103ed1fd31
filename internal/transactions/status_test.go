package transactions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapGatewayStatus(t *testing.T) {
	cases := []struct {
		token string
		want  Status
		known bool
	}{
		{"pending", StatusPending, true},
		{"settlement", StatusSuccess, true},
		{"success", StatusSuccess, true},
		{"expire", StatusExpired, true},
		{"cancel", StatusCanceled, true},
		{"deny", StatusCanceled, true},
		{"refund", "", false},
		{"capture", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		t.Run("token_"+c.token, func(t *testing.T) {
			got, known := MapGatewayStatus(c.token)
			assert.Equal(t, c.known, known)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"pending", "success", "expired", "canceled"} {
		st, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), st)
	}

	_, err := ParseStatus("paid")
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ParseStatus("")
	require.ErrorIs(t, err, ErrInvalidStatus)
}
