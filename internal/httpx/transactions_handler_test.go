package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anandaputra/tokodigi/internal/midtrans"
	"github.com/anandaputra/tokodigi/internal/reconcile"
	"github.com/anandaputra/tokodigi/internal/transactions"
)

type fakeReconciler struct {
	order *transactions.Order
	err   error

	gotOrderID     string
	gotStatus      string
	gotID          reconcile.Identity
	reconcileCalls int
}

func (f *fakeReconciler) Reconcile(_ context.Context, id reconcile.Identity, orderID string) (*transactions.Order, error) {
	f.gotID, f.gotOrderID = id, orderID
	f.reconcileCalls++
	return f.order, f.err
}

func (f *fakeReconciler) Override(_ context.Context, id reconcile.Identity, orderID, status string) (*transactions.Order, error) {
	f.gotID, f.gotOrderID, f.gotStatus = id, orderID, status
	return f.order, f.err
}

func (f *fakeReconciler) HandleNotification(_ context.Context, n *midtrans.Notification) (*transactions.Order, error) {
	f.gotOrderID = n.OrderID
	return f.order, f.err
}

func pendingOrder() *transactions.Order {
	return &transactions.Order{
		ID:        "64f0c2",
		OrderID:   "ORDER-1",
		UserID:    "user-1",
		Status:    transactions.StatusPending,
		UpdatedAt: time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC),
	}
}

func authed(r *http.Request, id reconcile.Identity) *http.Request {
	return r.WithContext(WithIdentity(r.Context(), id))
}

type fakeCache struct{ entries map[string][]byte }

func newFakeCache() *fakeCache { return &fakeCache{entries: map[string][]byte{}} }

func (f *fakeCache) Get(_ context.Context, orderID string) ([]byte, bool) {
	b, ok := f.entries[orderID]
	return b, ok
}

func (f *fakeCache) Set(_ context.Context, orderID string, payload []byte) {
	f.entries[orderID] = payload
}

func TestMidtransStatusOK(t *testing.T) {
	f := &fakeReconciler{order: pendingOrder()}
	h := &TransactionsHandler{Service: f}

	r := httptest.NewRequest(http.MethodGet, "/transactions/midtrans-status?order_id=ORDER-1", nil)
	w := httptest.NewRecorder()
	h.midtransStatus(w, authed(r, reconcile.Identity{UserID: "user-1"}))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "64f0c2", body["_id"])
	assert.Equal(t, "ORDER-1", body["order_id"])
	assert.Equal(t, "pending", body["status"])
	assert.Contains(t, body, "payment_details")
	assert.Equal(t, "ORDER-1", f.gotOrderID)
	assert.Equal(t, "user-1", f.gotID.UserID)
}

func TestMidtransStatusCachesView(t *testing.T) {
	f := &fakeReconciler{order: pendingOrder()}
	cache := newFakeCache()
	h := &TransactionsHandler{Service: f, Cache: cache}

	do := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/transactions/midtrans-status?order_id=ORDER-1", nil)
		w := httptest.NewRecorder()
		h.midtransStatus(w, authed(r, reconcile.Identity{UserID: "user-1"}))
		return w
	}

	first := do()
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, 1, f.reconcileCalls)
	require.Contains(t, cache.entries, "ORDER-1")

	// polling kedua dalam TTL dilayani dari cache, gateway tidak disentuh lagi
	second := do()
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, f.reconcileCalls)

	var body map[string]any
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, "ORDER-1", body["order_id"])
	assert.Equal(t, "pending", body["status"])
}

func TestMidtransStatusCacheRespectsOwnership(t *testing.T) {
	f := &fakeReconciler{err: reconcile.ErrForbidden}
	cache := newFakeCache()
	b, err := json.Marshal(cachedView{UserID: "user-1", View: pendingOrder().View()})
	require.NoError(t, err)
	cache.Set(context.Background(), "ORDER-1", b)
	h := &TransactionsHandler{Service: f, Cache: cache}

	// cache hit milik user-1 tidak boleh bocor ke user lain
	r := httptest.NewRequest(http.MethodGet, "/transactions/midtrans-status?order_id=ORDER-1", nil)
	w := httptest.NewRecorder()
	h.midtransStatus(w, authed(r, reconcile.Identity{UserID: "intruder"}))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 1, f.reconcileCalls)
}

func TestUpdateRefreshesCache(t *testing.T) {
	ord := pendingOrder()
	ord.Status = transactions.StatusCanceled
	f := &fakeReconciler{order: ord}
	cache := newFakeCache()
	h := &TransactionsHandler{Service: f, Cache: cache}

	body := `{"order_id":"ORDER-1","status":"canceled"}`
	r := httptest.NewRequest(http.MethodPut, "/transactions/update", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.update(w, authed(r, reconcile.Identity{UserID: "user-1"}))
	require.Equal(t, http.StatusOK, w.Code)

	raw, ok := cache.Get(context.Background(), "ORDER-1")
	require.True(t, ok, "mutasi status harus menyegarkan cache")
	var cv cachedView
	require.NoError(t, json.Unmarshal(raw, &cv))
	assert.Equal(t, transactions.StatusCanceled, cv.View.Status)
	assert.Equal(t, "user-1", cv.UserID)
}

func TestMidtransStatusMissingOrderID(t *testing.T) {
	h := &TransactionsHandler{Service: &fakeReconciler{}}
	r := httptest.NewRequest(http.MethodGet, "/transactions/midtrans-status", nil)
	w := httptest.NewRecorder()
	h.midtransStatus(w, authed(r, reconcile.Identity{UserID: "user-1"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMidtransStatusUnauthenticated(t *testing.T) {
	h := &TransactionsHandler{Service: &fakeReconciler{}}
	r := httptest.NewRequest(http.MethodGet, "/transactions/midtrans-status?order_id=ORDER-1", nil)
	w := httptest.NewRecorder()
	h.midtransStatus(w, r) // tanpa identitas di context
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMidtransStatusErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not_found", transactions.ErrNotFound, http.StatusNotFound},
		{"forbidden", reconcile.ErrForbidden, http.StatusForbidden},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := &TransactionsHandler{Service: &fakeReconciler{err: c.err}}
			r := httptest.NewRequest(http.MethodGet, "/transactions/midtrans-status?order_id=X", nil)
			w := httptest.NewRecorder()
			h.midtransStatus(w, authed(r, reconcile.Identity{UserID: "user-1"}))
			assert.Equal(t, c.code, w.Code)
		})
	}
}

func TestUpdateOK(t *testing.T) {
	ord := pendingOrder()
	ord.Status = transactions.StatusCanceled
	f := &fakeReconciler{order: ord}
	h := &TransactionsHandler{Service: f}

	body := `{"order_id":"ORDER-3","status":"canceled"}`
	r := httptest.NewRequest(http.MethodPut, "/transactions/update", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.update(w, authed(r, reconcile.Identity{UserID: "user-1"}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ORDER-3", f.gotOrderID)
	assert.Equal(t, "canceled", f.gotStatus)
}

func TestUpdateInvalidStatus(t *testing.T) {
	h := &TransactionsHandler{Service: &fakeReconciler{err: transactions.ErrInvalidStatus}}
	body := `{"order_id":"ORDER-3","status":"paid"}`
	r := httptest.NewRequest(http.MethodPut, "/transactions/update", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.update(w, authed(r, reconcile.Identity{UserID: "user-1"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateMissingFields(t *testing.T) {
	h := &TransactionsHandler{Service: &fakeReconciler{}}
	r := httptest.NewRequest(http.MethodPut, "/transactions/update", strings.NewReader(`{"order_id":"ORDER-3"}`))
	w := httptest.NewRecorder()
	h.update(w, authed(r, reconcile.Identity{UserID: "user-1"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateForbidden(t *testing.T) {
	h := &TransactionsHandler{Service: &fakeReconciler{err: reconcile.ErrForbidden}}
	body := `{"order_id":"ORDER-3","status":"canceled"}`
	r := httptest.NewRequest(http.MethodPut, "/transactions/update", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.update(w, authed(r, reconcile.Identity{UserID: "other"}))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNotificationOK(t *testing.T) {
	ord := pendingOrder()
	ord.Status = transactions.StatusSuccess
	f := &fakeReconciler{order: ord}
	h := &TransactionsHandler{Service: f}

	body := `{"order_id":"ORDER-1","status_code":"200","gross_amount":"1500.00","transaction_status":"settlement","signature_key":"sig"}`
	r := httptest.NewRequest(http.MethodPost, "/transactions/notification", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.notification(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "success", resp["order_status"])
}

func TestNotificationBadSignature(t *testing.T) {
	h := &TransactionsHandler{Service: &fakeReconciler{err: reconcile.ErrBadSignature}}
	body := `{"order_id":"ORDER-1","signature_key":"forged"}`
	r := httptest.NewRequest(http.MethodPost, "/transactions/notification", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.notification(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
