// Package reconcile содержит фоновую сверку локального и удалённого
// состояния подписок. Задачи появляются, когда удалённая запись после
// успешного списания не прошла: обработчик повторяет её до ограниченного
// числа попыток, после чего задача помечается для ручного разбора.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/billing-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gateway/internal/models"
)

// MaxAttempts — предел повторов удалённой записи для одной задачи.
const MaxAttempts = 5

// Repository описывает хранилище отложенных задач сверки.
type Repository interface {
	ListPending(ctx context.Context, limit int) ([]*models.PendingReconciliation, error)
	IncrementAttempts(ctx context.Context, id int) (int, error)
	MarkResolved(ctx context.Context, id int) error
	MarkManual(ctx context.Context, id int) error
	ResolveByUser(ctx context.Context, userUID string) (int, error)
}

// Backend описывает удалённые backend-функции, нужные сверке.
type Backend interface {
	HandlePaymentSuccess(ctx context.Context, userUID, planID, paymentIntentID string) error
	FixSubscription(ctx context.Context, userUID, planID string) error
}

// Service повторяет незавершённые удалённые записи подписок.
type Service struct {
	repo     Repository
	backend  Backend
	log      *slog.Logger
	attempts *prometheus.CounterVec
}

// NewService создает новый экземпляр Service и регистрирует метрики.
func NewService(repo Repository, backend Backend, log *slog.Logger, reg prometheus.Registerer) *Service {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliation_attempts_total",
		Help: "Number of reconciliation attempts by result.",
	}, []string{"result"})
	reg.MustRegister(attempts)
	return &Service{
		repo:     repo,
		backend:  backend,
		log:      log,
		attempts: attempts,
	}
}

// HandleTask обрабатывает одну задачу сверки из очереди сообщений.
//
// Возврат ошибки означает, что сообщение нужно вернуть в очередь.
// Исчерпание попыток ошибкой не считается: задача помечается для
// ручного разбора и сообщение подтверждается.
func (s *Service) HandleTask(ctx context.Context, body []byte) error {
	var task models.ReconciliationTask
	if err := json.Unmarshal(body, &task); err != nil {
		s.log.Error("failed to unmarshal reconciliation task", sl.Err(err))
		// Повтор не поможет, сообщение подтверждается.
		s.attempts.WithLabelValues("malformed").Inc()
		return nil
	}

	err := s.backend.HandlePaymentSuccess(ctx, task.UserUID, task.PlanID, task.PaymentIntentID)
	if err == nil {
		s.attempts.WithLabelValues("resolved").Inc()
		if err := s.repo.MarkResolved(ctx, task.PendingID); err != nil {
			s.log.Error("failed to mark task resolved", sl.Err(err))
			return err
		}
		s.log.Info("reconciliation task resolved",
			slog.Int("pending_id", task.PendingID),
			slog.String("user_uid", task.UserUID))
		return nil
	}

	s.log.Warn("reconciliation attempt failed", sl.Err(err),
		slog.Int("pending_id", task.PendingID))
	s.attempts.WithLabelValues("failed").Inc()

	attempts, repoErr := s.repo.IncrementAttempts(ctx, task.PendingID)
	if repoErr != nil {
		s.log.Error("failed to increment attempts", sl.Err(repoErr))
		return repoErr
	}
	if attempts >= MaxAttempts {
		s.attempts.WithLabelValues("manual").Inc()
		if err := s.repo.MarkManual(ctx, task.PendingID); err != nil {
			s.log.Error("failed to mark task for manual review", sl.Err(err))
			return err
		}
		s.log.Error("reconciliation attempts exhausted, manual review required",
			slog.Int("pending_id", task.PendingID),
			slog.String("user_uid", task.UserUID))
		return nil
	}
	return err
}

// Sweep отрабатывает задачи, оставшиеся без сообщения в очереди:
// например когда публикация задачи не удалась вместе с удалённой записью.
func (s *Service) Sweep(ctx context.Context, limit int) error {
	const op = "reconcile.Sweep"

	pending, err := s.repo.ListPending(ctx, limit)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, p := range pending {
		task := models.ReconciliationTask{
			PendingID:       p.ID,
			UserUID:         p.UserUID,
			PlanID:          p.PlanID,
			PaymentIntentID: p.PaymentIntentID,
		}
		body, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := s.HandleTask(ctx, body); err != nil {
			s.log.Warn("sweep attempt failed, task stays pending", sl.Err(err),
				slog.Int("pending_id", p.ID))
		}
	}
	return nil
}

// Run периодически запускает обход незавершённых задач до отмены контекста.
func (s *Service) Run(ctx context.Context, interval time.Duration, batch int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.log.Info("starting reconciliation sweep")
			if err := s.Sweep(ctx, batch); err != nil {
				s.log.Error("reconciliation sweep failed", sl.Err(err))
			}
		}
	}
}

// ManualFix принудительно выравнивает удалённую подписку пользователя
// и закрывает его задачи сверки. Используется оператором.
func (s *Service) ManualFix(ctx context.Context, userUID, planID string) error {
	const op = "reconcile.ManualFix"

	if err := s.backend.FixSubscription(ctx, userUID, planID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	closed, err := s.repo.ResolveByUser(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.attempts.WithLabelValues("manual_fix").Inc()
	s.log.Info("subscription fixed manually",
		slog.String("user_uid", userUID),
		slog.String("plan", planID),
		slog.Int("closed_tasks", closed))
	return nil
}
