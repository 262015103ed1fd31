package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/anandaputra/tokodigi/internal/config"
	"github.com/anandaputra/tokodigi/internal/httpx"
	"github.com/anandaputra/tokodigi/internal/inventory"
	kafkax "github.com/anandaputra/tokodigi/internal/kafka"
	"github.com/anandaputra/tokodigi/internal/midtrans"
	"github.com/anandaputra/tokodigi/internal/postgres"
	"github.com/anandaputra/tokodigi/internal/reconcile"
	"github.com/anandaputra/tokodigi/internal/redisx"
	"github.com/anandaputra/tokodigi/internal/transactions"
)

func main() {
	_ = godotenv.Load()
	log.SetFormatter(&log.JSONFormatter{})

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer (payment.settled)
	prod := kafkax.NewProducer(cfg.KafkaBrokers, transactions.TopicPaymentSettled, 1024)
	prod.Start(ctx)

	// Service
	svc := &reconcile.Service{
		Store:       &transactions.Repo{DB: db},
		Gateway:     midtrans.NewStatusClient(cfg.MidtransBaseURL, cfg.MidtransServerKey),
		Inventory:   &inventory.Updater{Store: &inventory.PGCatalogStore{DB: db}},
		Producer:    prod,
		ServerKey:   cfg.MidtransServerKey,
		ServiceName: cfg.ServiceName,
	}

	// Router & handler
	router := httpx.NewRouter()
	th := &httpx.TransactionsHandler{
		Service:   svc,
		Redis:     rdb,
		Cache:     &redisx.StatusCache{RDB: rdb},
		RateLimit: cfg.RateLimitPerMin,
	}
	th.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	prod.WaitClosed() // drain
}
