// Package reconciler содержит воркер отложенной сверки подписок:
// читает задачи из очереди RabbitMQ и периодически подметает
// зависшие строки из долговечной таблицы.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/billing-gateway/internal/backendfn"
	"github.com/magabrotheeeer/billing-gateway/internal/config"
	"github.com/magabrotheeeer/billing-gateway/internal/rabbitmq"
	reconcileservice "github.com/magabrotheeeer/billing-gateway/internal/services/reconcile"
	"github.com/magabrotheeeer/billing-gateway/internal/storage/repository"
)

// App представляет приложение воркера сверки.
type App struct {
	reconcileService *reconcileservice.Service
	conn             *amqp.Connection
	ch               *amqp.Channel
	db               *repository.Storage
	sweepInterval    time.Duration
	sweepBatch       int
	logger           *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения воркера сверки.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.AddressRabbit, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	queues := rabbitmq.GetReconciliationQueues()
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	backend := backendfn.NewClient(cfg.Backend)

	reconcileService := reconcileservice.NewService(db, backend, logger, prometheus.DefaultRegisterer)

	return &App{
		reconcileService: reconcileService,
		conn:             conn,
		ch:               ch,
		db:               db,
		sweepInterval:    cfg.SweepInterval,
		sweepBatch:       cfg.SweepBatch,
		logger:           logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run запускает потребителя очереди и фоновый цикл подметания.
func (a *App) Run(ctx context.Context) error {
	if err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.TaskQueueName, a.reconcileService.HandleTask); err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	go a.reconcileService.Run(ctx, a.sweepInterval, a.sweepBatch)

	<-ctx.Done()

	a.logger.Info("shutting down reconciler service")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close storage", slog.Any("err", err))
	}

	return nil
}
