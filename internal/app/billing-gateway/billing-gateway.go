// Package billinggateway собирает HTTP-сервис оформления подписок:
// локальное состояние, клиент backend-функций, бизнес-логику и маршруты.
package billinggateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/billing-gateway/internal/backendfn"
	"github.com/magabrotheeeer/billing-gateway/internal/config"
	"github.com/magabrotheeeer/billing-gateway/internal/diaglog"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/jwt"
	"github.com/magabrotheeeer/billing-gateway/internal/livemode"
	"github.com/magabrotheeeer/billing-gateway/internal/localstate"
	"github.com/magabrotheeeer/billing-gateway/internal/migrations"
	"github.com/magabrotheeeer/billing-gateway/internal/models"
	"github.com/magabrotheeeer/billing-gateway/internal/plans"
	"github.com/magabrotheeeer/billing-gateway/internal/rabbitmq"
	checkoutservice "github.com/magabrotheeeer/billing-gateway/internal/services/checkout"
	eligibilityservice "github.com/magabrotheeeer/billing-gateway/internal/services/eligibility"
	reconcileservice "github.com/magabrotheeeer/billing-gateway/internal/services/reconcile"
	"github.com/magabrotheeeer/billing-gateway/internal/storage/repository"
)

// App представляет HTTP-приложение шлюза оформления подписок.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New создает новый экземпляр приложения.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	mode := livemode.Detect(cfg.PublishableKey)
	if mode.IsLive() {
		logger.Warn("LIVE payment credentials detected: real money, test actions are disabled")
	}
	if cfg.DemoMode() {
		logger.Warn("payment publishable key is missing, checkout is disabled")
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	local, err := localstate.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.AddressRabbit, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetReconciliationQueues())
	if err != nil {
		return nil, err
	}
	queue := rabbitmq.NewQueue(ch)

	backend := backendfn.NewClient(cfg.Backend)
	diag := diaglog.New(ctx, cfg.DiagLogCapacity, local, cfg.Presence(), logger)
	if mode.IsLive() {
		diag.Log(models.LevelWarn, "livemode", "live payment credentials detected, test actions are disabled", nil)
	}
	registry := plans.New(cfg.Payment)
	maker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	eligibilityService := eligibilityservice.NewService(backend, local, diag, logger)
	checkoutService := checkoutservice.NewService(local, backend, eligibilityService,
		db, queue, registry, diag, logger, !cfg.DemoMode())
	reconcileService := reconcileservice.NewService(db, backend, logger, prometheus.DefaultRegisterer)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, &Services{
		Checkout:    checkoutService,
		Eligibility: eligibilityService,
		Reconcile:   reconcileService,
		Plans:       registry,
		Diag:        diag,
		Backend:     backend,
		Maker:       maker,
		Mode:        mode,
		AdminHash:   cfg.AdminKeyHash,
		Limiter:     rate.NewLimiter(10, 30),
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.ch.Close(); closeErr != nil {
			a.logger.Error("failed to close rabbitmq channel", slog.Any("err", closeErr))
		}
		if closeErr := a.conn.Close(); closeErr != nil {
			a.logger.Error("failed to close rabbitmq connection", slog.Any("err", closeErr))
		}
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close database", slog.Any("err", closeErr))
		}
		return err
	}
}
