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

	catalogcfg "github.com/Skotchmaster/bookstore/services/catalog/internal/config"
	"github.com/Skotchmaster/bookstore/services/catalog/internal/httpserver"
	"github.com/Skotchmaster/bookstore/services/catalog/internal/repo"
	"github.com/Skotchmaster/bookstore/services/catalog/internal/search"
	"github.com/Skotchmaster/bookstore/services/catalog/internal/service"
)

func main() {
	pkgconfig.LoadDotEnv("services/catalog/.env")

	cfg := catalogcfg.Load()

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

	svc := &service.CatalogService{Repo: &repo.GormRepo{DB: db}, Topic: cfg.BookTopic}
	if cfg.ElasticURL != "" {
		client, err := search.NewClient(ctx, cfg.ElasticURL, cfg.ElasticUser, cfg.ElasticPassword)
		if err != nil {
			cancel()
			log.Fatalf("elasticsearch: %v", err)
		}
		svc.Index = &search.Elastic{Client: client, Index: cfg.SearchIndex}
	} else {
		logger.Warn("search_index_disabled", "reason", "ES_URL is empty")
	}
	cancel()

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		if producer, err = events.NewProducer(cfg.KafkaBrokers); err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
		svc.Events = producer
	} else {
		logger.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	e := echo.New()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(metrics.Middleware(cfg.ServiceName))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		CatalogHandler: &httpserver.CatalogHTTP{Svc: svc},
		JWTSecret:      cfg.JWTAccessSecret,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		log.Printf("catalog listening on %s", srv.Addr)
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
	if producer != nil {
		_ = producer.Close()
	}
	_ = pkgdb.Close(db)

	log.Println("catalog stopped")
}
