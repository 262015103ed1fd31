package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/anandaputra/tokodigi/internal/reconcile"
	"github.com/anandaputra/tokodigi/internal/redisx"
)

type ctxKey int

const identityKey ctxKey = 0

// IdentityFrom mengambil identitas hasil SessionAuth dari context.
func IdentityFrom(ctx context.Context) (reconcile.Identity, bool) {
	id, ok := ctx.Value(identityKey).(reconcile.Identity)
	return id, ok
}

// WithIdentity dipakai test untuk menyuntik identitas tanpa middleware.
func WithIdentity(ctx context.Context, id reconcile.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

type sessionRecord struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

// SessionAuth memverifikasi bearer token lewat lookup sesi di redis.
// Verifikasi token adalah kolaborator eksternal buat subsistem ini — di sini
// cuma "verify token" sebagai satu panggilan.
func SessionAuth(rdb *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			raw, err := rdb.Get(r.Context(), fmt.Sprintf(redisx.KeySession, token)).Result()
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}
			var rec sessionRecord
			if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.UserID == "" {
				writeError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}
			id := reconcile.Identity{UserID: rec.UserID, Role: rec.Role}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// RateLimit: fixed window per identitas (user login, fallback IP) di redis,
// supaya limit tetap konsisten walau instance API lebih dari satu.
func RateLimit(rdb *redis.Client, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who := r.RemoteAddr
			if id, ok := IdentityFrom(r.Context()); ok {
				who = id.UserID
			}
			window := time.Now().Unix() / 60
			key := fmt.Sprintf(redisx.KeyRateLimit, who, window)

			n, err := rdb.Incr(r.Context(), key).Result()
			if err != nil {
				// redis bermasalah: jangan blokir trafik gara-gara limiter
				log.WithError(err).Warn("rate limit store unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if n == 1 {
				_ = rdb.Expire(r.Context(), key, redisx.TTLRateLimit).Err()
			}
			if n > int64(perMinute) {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
