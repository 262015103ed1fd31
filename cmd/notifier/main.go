package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/anandaputra/tokodigi/internal/config"
	kafkax "github.com/anandaputra/tokodigi/internal/kafka"
	"github.com/anandaputra/tokodigi/internal/notifier"
	"github.com/anandaputra/tokodigi/internal/redisx"
	"github.com/anandaputra/tokodigi/internal/transactions"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()
	log.SetFormatter(&log.JSONFormatter{})

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Service
	svc := &notifier.Service{
		Redis:       rdb,
		Mailer:      notifier.LogMailer{},
		ServiceName: cfg.ServiceName + "-notifier",
	}

	// Consumer
	group := getenv("NOTIFIER_GROUP", "payment-notifier")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, transactions.TopicPaymentSettled, workers)

	go func() {
		log.WithFields(log.Fields{"group": group, "topic": transactions.TopicPaymentSettled, "workers": workers}).
			Info("notifier consumer started")
		if err := cons.Start(ctx, svc.HandlePaymentSettled); err != nil {
			log.WithError(err).Error("consumer exit")
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumer...")
	cancel()
}
