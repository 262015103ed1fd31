package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StatusCache menyimpan view status transaksi per order supaya GET cepat.
// Best-effort dua arah: redis mati bukan alasan gagalin request.
type StatusCache struct{ RDB *redis.Client }

func (c *StatusCache) Get(ctx context.Context, orderID string) ([]byte, bool) {
	s, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Result()
	if err != nil || s == "" {
		return nil, false
	}
	return []byte(s), true
}

func (c *StatusCache) Set(ctx context.Context, orderID string, payload []byte) {
	_ = c.RDB.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), payload, TTLStatusCache).Err()
}
