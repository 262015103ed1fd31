package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"github.com/anandaputra/tokodigi/internal/inventory"
	kafkax "github.com/anandaputra/tokodigi/internal/kafka"
	"github.com/anandaputra/tokodigi/internal/midtrans"
	"github.com/anandaputra/tokodigi/internal/transactions"
)

var (
	ErrForbidden    = errors.New("not allowed to access this transaction")
	ErrBadSignature = errors.New("invalid notification signature")
)

const RoleAdmin = "admin"

type Identity struct {
	UserID string
	Role   string
}

// System dipakai jalur webhook: bukan user, boleh menyentuh semua order.
var System = Identity{Role: RoleAdmin}

func (id Identity) owns(o *transactions.Order) bool {
	return id.Role == RoleAdmin || id.UserID == o.UserID
}

type OrderStore interface {
	GetByOrderID(ctx context.Context, orderID string) (*transactions.Order, error)
	SetStatus(ctx context.Context, orderID string, st transactions.Status, details *transactions.PaymentDetails) error
	ClaimSuccess(ctx context.Context, orderID string, details *transactions.PaymentDetails) (bool, error)
	SavePaymentDetails(ctx context.Context, orderID string, details *transactions.PaymentDetails) error
}

type GatewayStatus interface {
	TransactionStatus(ctx context.Context, orderID string) (*midtrans.StatusResponse, error)
}

type InventoryUpdater interface {
	ApplyOrderSuccess(ctx context.Context, orderID string, items []inventory.ItemDelta) int
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Service adalah satu-satunya titik orkestrasi rekonsiliasi: load order, cek
// kepemilikan, tanya gateway, map status, gerbang idempotensi, persist.
type Service struct {
	Store       OrderStore
	Gateway     GatewayStatus
	Inventory   InventoryUpdater
	Producer    Publisher // payment.settled; boleh nil (notifier mati ≠ rekonsiliasi mati)
	ServerKey   string
	ServiceName string
}

// Reconcile menyamakan status order lokal dengan status otoritatif gateway.
// Kegagalan gateway itu soft: poller user tidak boleh dapat 5xx cuma karena
// gateway lagi tidak bisa dihubungi — balikan state tersimpan apa adanya.
func (s *Service) Reconcile(ctx context.Context, id Identity, orderID string) (*transactions.Order, error) {
	ord, err := s.Store.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !id.owns(ord) {
		return nil, ErrForbidden
	}

	// order gratis tidak pernah mampir ke gateway
	if ord.PaymentMethod == transactions.PaymentFree {
		return ord, nil
	}

	resp, err := s.Gateway.TransactionStatus(ctx, orderID)
	if err != nil {
		if errors.Is(err, midtrans.ErrTransactionNotFound) {
			log.WithField("order_id", orderID).Debug("gateway has no record yet")
		} else {
			log.WithField("order_id", orderID).WithError(err).Warn("gateway lookup failed, keeping stored status")
		}
		return ord, nil
	}

	details := mergedDetails(ord, detailsFromStatus(resp))
	st, known := transactions.MapGatewayStatus(resp.TransactionStatus)
	if !known {
		log.WithFields(log.Fields{"order_id": orderID, "token": resp.TransactionStatus}).
			Warn("unknown gateway status token, leaving status untouched")
		if err := s.Store.SavePaymentDetails(ctx, orderID, details); err != nil {
			return nil, err
		}
		ord.Details = details
		return ord, nil
	}
	return s.applyStatus(ctx, ord, st, details)
}

// Override: jalur manual/admin. Gerbang idempotensi yang sama dengan Reconcile —
// side effect inventory cuma jalan di transisi pertama menuju success.
func (s *Service) Override(ctx context.Context, id Identity, orderID, rawStatus string) (*transactions.Order, error) {
	st, err := transactions.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	ord, err := s.Store.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !id.owns(ord) {
		return nil, ErrForbidden
	}
	return s.applyStatus(ctx, ord, st, nil)
}

// HandleNotification memproses webhook gateway. Signature dicek dulu; setelah
// itu jalurnya sama persis dengan Reconcile memakai identitas sistem.
func (s *Service) HandleNotification(ctx context.Context, n *midtrans.Notification) (*transactions.Order, error) {
	if !n.ValidSignature(s.ServerKey) {
		return nil, ErrBadSignature
	}
	ord, err := s.Store.GetByOrderID(ctx, n.OrderID)
	if err != nil {
		return nil, err
	}

	details := mergedDetails(ord, detailsFromNotification(n))
	st, known := transactions.MapGatewayStatus(n.TransactionStatus)
	if !known {
		log.WithFields(log.Fields{"order_id": n.OrderID, "token": n.TransactionStatus}).
			Warn("unknown gateway status token in notification")
		if err := s.Store.SavePaymentDetails(ctx, n.OrderID, details); err != nil {
			return nil, err
		}
		ord.Details = details
		return ord, nil
	}
	return s.applyStatus(ctx, ord, st, details)
}

// applyStatus adalah langkah persist + gerbang idempotensi.
// Untuk success: ClaimSuccess (CAS di kolom status) menentukan siapa yang boleh
// menjalankan side effect. Claim dulu baru inventory — kalau urutannya dibalik,
// dua reconciler yang balapan bisa dua-duanya mengurangi stok.
func (s *Service) applyStatus(ctx context.Context, ord *transactions.Order, st transactions.Status, details *transactions.PaymentDetails) (*transactions.Order, error) {
	if st != transactions.StatusSuccess {
		if err := s.Store.SetStatus(ctx, ord.OrderID, st, details); err != nil {
			return nil, err
		}
		ord.Status = st
		if details != nil {
			ord.Details = details
		}
		ord.UpdatedAt = time.Now().UTC()
		return ord, nil
	}

	claimed, err := s.Store.ClaimSuccess(ctx, ord.OrderID, details)
	if err != nil {
		return nil, err
	}
	if claimed {
		log.WithFields(log.Fields{"order_id": ord.OrderID, "items": len(ord.Items)}).
			Info("payment settled, applying inventory side effects")
		applied := s.Inventory.ApplyOrderSuccess(ctx, ord.OrderID, itemDeltas(ord.Items))
		if applied < len(ord.Items) {
			log.WithFields(log.Fields{"order_id": ord.OrderID, "applied": applied, "total": len(ord.Items)}).
				Warn("some line items skipped during inventory update")
		}
		s.publishSettled(ord, details)
	} else if details != nil {
		// sudah success sebelumnya: metadata baru tetap disimpan, inventory tidak
		if err := s.Store.SavePaymentDetails(ctx, ord.OrderID, details); err != nil {
			return nil, err
		}
	}
	ord.Status = transactions.StatusSuccess
	if details != nil {
		ord.Details = details
	}
	ord.UpdatedAt = time.Now().UTC()
	return ord, nil
}

func (s *Service) publishSettled(ord *transactions.Order, details *transactions.PaymentDetails) {
	if s.Producer == nil {
		return
	}
	p := transactions.PaymentSettledPayload{
		OrderID:    ord.OrderID,
		UserID:     ord.UserID,
		TotalCents: ord.TotalCents,
	}
	if details != nil {
		p.PaymentType = details.PaymentType
		p.SettledAt = details.SettlementTime
	}
	ev := transactions.Envelope{
		EventID:       uuid.NewString(),
		EventType:     transactions.EventPaymentSettled,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: ord.OrderID,
		Payload:       kafkax.MustMarshal(p),
	}
	s.Producer.Publish(transactions.PartitionKey(ord.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(transactions.EventPaymentSettled)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func itemDeltas(items []transactions.LineItem) []inventory.ItemDelta {
	out := make([]inventory.ItemDelta, 0, len(items))
	for _, it := range items {
		out = append(out, inventory.ItemDelta{ProductID: it.ProductID, Qty: it.Qty})
	}
	return out
}

// mergedDetails: clone metadata lama lalu timpa dengan field yang dikirim gateway.
// Field yang gateway tidak kirim tidak pernah hilang.
func mergedDetails(ord *transactions.Order, in transactions.PaymentDetails) *transactions.PaymentDetails {
	d := transactions.PaymentDetails{}
	if ord.Details != nil {
		d = *ord.Details
	}
	d.Merge(in)
	return &d
}

func detailsFromStatus(r *midtrans.StatusResponse) transactions.PaymentDetails {
	bank, va := r.FirstVA()
	return transactions.PaymentDetails{
		PaymentType:     r.PaymentType,
		Bank:            bank,
		VANumber:        va,
		TransactionID:   r.TransactionID,
		TransactionTime: r.TransactionTime,
		SettlementTime:  r.SettlementTime,
		GrossAmount:     r.GrossAmount,
		Currency:        r.Currency,
	}
}

func detailsFromNotification(n *midtrans.Notification) transactions.PaymentDetails {
	bank, va := n.FirstVA()
	return transactions.PaymentDetails{
		PaymentType:     n.PaymentType,
		Bank:            bank,
		VANumber:        va,
		TransactionID:   n.TransactionID,
		TransactionTime: n.TransactionTime,
		SettlementTime:  n.SettlementTime,
		GrossAmount:     n.GrossAmount,
		Currency:        n.Currency,
	}
}
