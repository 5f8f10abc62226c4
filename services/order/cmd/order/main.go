package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	pkgconfig "github.com/Skotchmaster/bookstore/pkg/config"
	pkgdb "github.com/Skotchmaster/bookstore/pkg/db"
	"github.com/Skotchmaster/bookstore/pkg/events"
	"github.com/Skotchmaster/bookstore/pkg/logging"
	loggingmw "github.com/Skotchmaster/bookstore/pkg/middleware/logging"
	"github.com/Skotchmaster/bookstore/pkg/middleware/metrics"

	ordercfg "github.com/Skotchmaster/bookstore/services/order/internal/config"
	"github.com/Skotchmaster/bookstore/services/order/internal/httpserver"
	"github.com/Skotchmaster/bookstore/services/order/internal/repo"
	"github.com/Skotchmaster/bookstore/services/order/internal/service"
)

func main() {
	pkgconfig.LoadDotEnv("services/order/.env")

	cfg := ordercfg.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db open: %v", err)
	}
	if err := repo.Migrate(db); err != nil {
		cancel()
		log.Fatalf("%v", err)
	}
	if err := repo.SeedGateways(ctx, db, service.DefaultGateways()); err != nil {
		cancel()
		log.Fatalf("seed gateways: %v", err)
	}
	cancel()

	var publisher events.Publisher = events.Nop{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
		publisher = producer
	} else {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	mail := &service.EmailDispatcher{
		Mailer: &service.KafkaMailer{Publisher: publisher, Topic: cfg.EmailTopic},
		Logger: logger.With("component", "mail"),
	}

	svcs := service.NewServices(&repo.GormRepo{DB: db}, service.Runtime{Events: publisher, Mail: mail},
		cfg.Currency, service.DirProofStore{Dir: cfg.ProofDir})

	e := echo.New()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(metrics.Middleware(cfg.ServiceName))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		OrderHandler: &httpserver.OrderHTTP{Orders: svcs.Orders, Pricing: svcs.Pricing, Cart: svcs.Cart},
		PaymentHandler: &httpserver.PaymentHTTP{
			Svc:         svcs.Payments,
			Orders:      svcs.Orders,
			WebhookHash: cfg.FlutterwaveWebhookHash,
		},
		BankTransferHandler: &httpserver.BankTransferHTTP{Svc: svcs.BankTransfers, MaxUploadBytes: cfg.ProofMaxBytes},
		LibraryHandler:      &httpserver.LibraryHTTP{Svc: svcs.Library},
		JWTSecret:           cfg.JWTAccessSecret,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		log.Printf("order listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	mail.Wait()

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka_close_error", "error", err)
		}
	}
	_ = pkgdb.Close(db)

	log.Println("order stopped")
}
