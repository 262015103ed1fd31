package redisx

import "time"

const (
	// Sesi login: session:{token} -> {"user_id":"...","role":"..."}
	KeySession = "session:%s"

	// Rate limit fixed window: ratelimit:{identity}:{window}
	KeyRateLimit = "ratelimit:%s:%d"

	// Cache view status order: order_status:{order_id} -> {"user_id":...,"view":{...}}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLRateLimit = time.Minute
	// pendek: status gateway bisa berubah kapan saja, cache cuma meredam polling agresif
	TTLStatusCache = 15 * time.Second
	TTLDedup       = 48 * time.Hour
)
