package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	kafkax "github.com/anandaputra/tokodigi/internal/kafka"
	"github.com/anandaputra/tokodigi/internal/redisx"
	"github.com/anandaputra/tokodigi/internal/transactions"
)

// Mailer adalah kolaborator eksternal; pengiriman email sebenarnya di luar
// subsistem ini.
type Mailer interface {
	SendPaymentReceipt(ctx context.Context, userID string, p transactions.PaymentSettledPayload) error
}

// LogMailer cuma mencatat — dipakai kalau backend email belum dikonfigurasi.
type LogMailer struct{}

func (LogMailer) SendPaymentReceipt(_ context.Context, userID string, p transactions.PaymentSettledPayload) error {
	log.WithFields(log.Fields{"user_id": userID, "order_id": p.OrderID, "total_cents": p.TotalCents}).
		Info("payment receipt (log only)")
	return nil
}

type Service struct {
	Redis       *redis.Client
	Mailer      Mailer
	ServiceName string
}

// HandlePaymentSettled: dipasang sebagai handler consumer.
func (s *Service) HandlePaymentSettled(ctx context.Context, m kafkago.Message) error {
	var env transactions.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != transactions.EventPaymentSettled {
		return nil
	} // ignore

	// dedup via redis (pakai event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[transactions.PaymentSettledPayload](env.Payload)
	if err != nil {
		return err
	}

	// email best-effort: gagal kirim jangan bikin offset di-replay terus
	if err := s.Mailer.SendPaymentReceipt(ctx, p.UserID, p); err != nil {
		log.WithField("order_id", p.OrderID).WithError(err).Warn("send receipt failed")
	}
	return nil
}
