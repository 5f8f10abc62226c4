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

	gatewaycfg "github.com/Skotchmaster/bookstore/gateway/internal/config"
	"github.com/Skotchmaster/bookstore/gateway/internal/httpserver"
	"github.com/Skotchmaster/bookstore/gateway/internal/middleware"
	pkgconfig "github.com/Skotchmaster/bookstore/pkg/config"
	"github.com/Skotchmaster/bookstore/pkg/logging"
	loggingmw "github.com/Skotchmaster/bookstore/pkg/middleware/logging"
	"github.com/Skotchmaster/bookstore/pkg/middleware/metrics"
)

func main() {
	pkgconfig.LoadDotEnv("gateway/.env")

	cfg := gatewaycfg.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	csrf := middleware.DefaultCSRFConfig()
	csrf.Secure = cfg.CSRFSecure
	csrf.SkipPrefixes = []string{"/health/", "/metrics", "/api/v1/webhooks/"}

	e := echo.New()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(metrics.Middleware(cfg.ServiceName))
	e.Use(echomw.Secure())
	e.Use(echomw.CORS())
	e.Use(middleware.CSRF(csrf))

	if err := httpserver.Register(e, &httpserver.Deps{
		CatalogURL: cfg.CatalogURL,
		CartURL:    cfg.CartURL,
		OrderURL:   cfg.OrderURL,
	}); err != nil {
		log.Fatalf("routes: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		log.Printf("gateway listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctx)

	log.Println("gateway stopped")
}
