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

	cartcfg "github.com/Skotchmaster/bookstore/services/cart/internal/config"
	"github.com/Skotchmaster/bookstore/services/cart/internal/httpserver"
	"github.com/Skotchmaster/bookstore/services/cart/internal/repo"
	"github.com/Skotchmaster/bookstore/services/cart/internal/service"
)

func main() {
	pkgconfig.LoadDotEnv("services/cart/.env")

	cfg := cartcfg.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := repo.Migrate(db); err != nil {
		log.Fatalf("%v", err)
	}

	var publisher events.Publisher = events.Nop{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		if producer, err = events.NewProducer(cfg.KafkaBrokers); err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
		publisher = producer
	} else {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	cartService := &service.CartService{
		Repo:            &repo.GormRepo{DB: db},
		Events:          publisher,
		MaxLineQuantity: cfg.MaxLineQuantity,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(metrics.Middleware(cfg.ServiceName))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		CartHandler: &httpserver.CartHTTP{Svc: cartService},
		JWTSecret:   cfg.JWTAccessSecret,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		log.Printf("cart listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown_error", "error", err)
	}
	if producer != nil {
		_ = producer.Close()
	}
	_ = pkgdb.Close(db)

	log.Println("cart stopped")
}
