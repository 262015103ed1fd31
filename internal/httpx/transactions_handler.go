package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/anandaputra/tokodigi/internal/midtrans"
	"github.com/anandaputra/tokodigi/internal/reconcile"
	"github.com/anandaputra/tokodigi/internal/transactions"
)

// Reconciler adalah potongan reconcile.Service yang dipakai handler.
type Reconciler interface {
	Reconcile(ctx context.Context, id reconcile.Identity, orderID string) (*transactions.Order, error)
	Override(ctx context.Context, id reconcile.Identity, orderID, status string) (*transactions.Order, error)
	HandleNotification(ctx context.Context, n *midtrans.Notification) (*transactions.Order, error)
}

// ViewCache meredam polling status yang terlalu rajin; redisx.StatusCache
// implementasinya. Boleh nil (cache mati ≠ endpoint mati).
type ViewCache interface {
	Get(ctx context.Context, orderID string) ([]byte, bool)
	Set(ctx context.Context, orderID string, payload []byte)
}

type TransactionsHandler struct {
	Service   Reconciler
	Redis     *redis.Client
	Cache     ViewCache
	RateLimit int // request per menit per identitas
}

// cachedView menyertakan pemilik order supaya cache hit tetap melewati cek
// kepemilikan — non-owner jatuh ke service dan dapat 403 seperti biasa.
type cachedView struct {
	UserID string            `json:"user_id"`
	View   transactions.View `json:"view"`
}

func (h *TransactionsHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(SessionAuth(h.Redis))
		r.Use(RateLimit(h.Redis, h.RateLimit))
		r.Get("/transactions/midtrans-status", h.midtransStatus)
		r.Put("/transactions/update", h.update)
	})
	// webhook gateway: tanpa sesi, diverifikasi via signature_key
	r.Post("/transactions/notification", h.notification)
}

type updateReq struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

func (h *TransactionsHandler) midtransStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "missing order_id")
		return
	}
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// 1) coba cache; hanya valid untuk pemilik (atau admin)
	if h.Cache != nil {
		if b, ok := h.Cache.Get(ctx, orderID); ok {
			var cv cachedView
			if err := json.Unmarshal(b, &cv); err == nil && (id.Role == reconcile.RoleAdmin || id.UserID == cv.UserID) {
				writeJSON(w, http.StatusOK, cv.View)
				return
			}
		}
	}

	// 2) rekonsiliasi penuh lewat gateway
	ord, err := h.Service.Reconcile(ctx, id, orderID)
	if err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	h.refreshCache(ctx, ord)
	writeJSON(w, http.StatusOK, ord.View())
}

func (h *TransactionsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.OrderID == "" || req.Status == "" {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	ord, err := h.Service.Override(ctx, id, req.OrderID, req.Status)
	if err != nil {
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	h.refreshCache(ctx, ord)
	writeJSON(w, http.StatusOK, ord.View())
}

// refreshCache menimpa entri cache dengan state terbaru setelah mutasi status.
func (h *TransactionsHandler) refreshCache(ctx context.Context, ord *transactions.Order) {
	if h.Cache == nil {
		return
	}
	if b, err := json.Marshal(cachedView{UserID: ord.UserID, View: ord.View()}); err == nil {
		h.Cache.Set(ctx, ord.OrderID, b)
	}
}

func (h *TransactionsHandler) notification(w http.ResponseWriter, r *http.Request) {
	var n midtrans.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if n.OrderID == "" {
		writeError(w, http.StatusBadRequest, "missing order_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	ord, err := h.Service.HandleNotification(ctx, &n)
	if err != nil {
		log.WithField("order_id", n.OrderID).WithError(err).Warn("notification rejected")
		writeError(w, statusFromErr(err), err.Error())
		return
	}
	h.refreshCache(ctx, ord)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "order_status": string(ord.Status)})
}

func statusFromErr(err error) int {
	switch {
	case errors.Is(err, transactions.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reconcile.ErrForbidden), errors.Is(err, reconcile.ErrBadSignature):
		return http.StatusForbidden
	case errors.Is(err, transactions.ErrInvalidStatus):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
