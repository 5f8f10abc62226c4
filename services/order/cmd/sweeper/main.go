// Command sweeper expires pending bank transfers whose deadline has passed.
// It runs once and exits, so it can be scheduled by cron or a Kubernetes CronJob.
package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	pkgconfig "github.com/Skotchmaster/bookstore/pkg/config"
	pkgdb "github.com/Skotchmaster/bookstore/pkg/db"
	"github.com/Skotchmaster/bookstore/pkg/events"
	"github.com/Skotchmaster/bookstore/pkg/logging"

	ordercfg "github.com/Skotchmaster/bookstore/services/order/internal/config"
	"github.com/Skotchmaster/bookstore/services/order/internal/repo"
	"github.com/Skotchmaster/bookstore/services/order/internal/service"
)

func main() {
	pkgconfig.LoadDotEnv("services/order/.env")

	if err := run(ordercfg.Load()); err != nil {
		log.Fatalf("sweeper: %v", err)
	}
}

func run(cfg ordercfg.ServiceConfig) error {
	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName, "job", "transfer_sweeper")
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logging.IntoContext(ctx, logger)

	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pkgdb.Close(db)

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		defer producer.Close()
		publisher = producer
	}

	mail := &service.EmailDispatcher{
		Mailer: &service.KafkaMailer{Publisher: publisher, Topic: cfg.EmailTopic},
		Logger: logger,
	}
	svcs := service.NewServices(&repo.GormRepo{DB: db}, service.Runtime{Events: publisher, Mail: mail},
		cfg.Currency, service.DirProofStore{Dir: cfg.ProofDir})

	n, err := svcs.BankTransfers.CleanupExpiredTransfers(ctx)
	mail.Wait()
	if err != nil {
		logger.Error("sweep_failed", "error", err)
		return err
	}
	logger.Info("sweep_done", "expired", n)
	return nil
}
