// Package checkout содержит бизнес-логику оформления подписки:
// выбор тарифа, регистрацию пробного периода, завершение оплаты
// и сверку локального состояния с удалённым хранилищем.
//
// Ключевая асимметрия: локальное состояние всегда обновляется оптимистично
// до обращения к удалённому хранилищу, и сбой удалённой записи после
// успешного списания никогда не показывается пользователю как ошибка —
// деньги уже списаны, продукт должен быть выдан. Такой сбой фиксируется
// в диагностическом журнале и ставится в долговечную очередь сверки.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/billing-gateway/internal/backendfn"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gateway/internal/models"
	"github.com/magabrotheeeer/billing-gateway/internal/plans"
)

// TrialDuration — длительность пробного периода.
const TrialDuration = 14 * 24 * time.Hour

// LocalState описывает локальное состояние сессии.
type LocalState interface {
	SaveUser(ctx context.Context, sid string, user models.User) error
	GetUser(ctx context.Context, sid string) (*models.User, bool, error)
	RemoveUser(ctx context.Context, sid string) error
	SaveSelection(ctx context.Context, sid string, sel models.Selection) error
	GetSelection(ctx context.Context, sid string) (*models.Selection, bool, error)
	ClearSelection(ctx context.Context, sid string) error
}

// Backend описывает вызовы удалённых backend-функций, нужные оформлению.
type Backend interface {
	CreatePaymentIntent(ctx context.Context, amount int, currency string, metadata map[string]string) (*backendfn.PaymentIntent, error)
	CreateSubscription(ctx context.Context, userUID, priceID string) (*backendfn.SubscriptionInfo, error)
	HandlePaymentSuccess(ctx context.Context, userUID, planID, paymentIntentID string) error
	GetSubscription(ctx context.Context, userUID string) (*backendfn.SubscriptionInfo, error)
}

// Evaluator описывает проверку права на пробный период.
type Evaluator interface {
	Evaluate(ctx context.Context, email string) (*models.EligibilityCheck, error)
}

// PendingRepository описывает долговечную очередь отложенной сверки.
type PendingRepository interface {
	CreatePending(ctx context.Context, p models.PendingReconciliation) (int, error)
}

// TaskPublisher описывает публикацию задачи сверки в очередь сообщений.
type TaskPublisher interface {
	PublishReconciliationTask(task models.ReconciliationTask) error
}

// DiagLogger описывает диагностический журнал платёжных событий.
type DiagLogger interface {
	Log(level models.LogLevel, component, message string, data any)
}

// Service реализует поток оформления подписки.
type Service struct {
	local      LocalState
	backend    Backend
	evaluator  Evaluator
	pending    PendingRepository
	publisher  TaskPublisher
	plans      *plans.Registry
	diag       DiagLogger
	log        *slog.Logger
	configured bool // Настроен ли платёжный провайдер
	now        func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(local LocalState, backend Backend, evaluator Evaluator,
	pending PendingRepository, publisher TaskPublisher, registry *plans.Registry,
	diag DiagLogger, log *slog.Logger, processorConfigured bool) *Service {
	return &Service{
		local:      local,
		backend:    backend,
		evaluator:  evaluator,
		pending:    pending,
		publisher:  publisher,
		plans:      registry,
		diag:       diag,
		log:        log,
		configured: processorConfigured,
		now:        time.Now,
	}
}

// SelectPlan фиксирует намерение пользователя и выбирает маршрут оформления.
// Побочных эффектов за пределами локального состояния нет.
func (s *Service) SelectPlan(ctx context.Context, sid, planID string, skipTrial bool) (*models.Selection, error) {
	const op = "checkout.SelectPlan"
	if _, ok := s.plans.Get(planID); !ok {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrPlanUnknown, planID)
	}

	route := models.RouteTrial
	if skipTrial {
		route = models.RouteCheckout
	}
	sel := models.Selection{
		PlanID:    planID,
		SkipTrial: skipTrial,
		Route:     route,
		CreatedAt: s.now(),
	}
	if err := s.local.SaveSelection(ctx, sid, sel); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.diag.Log(models.LevelInfo, "checkout", "plan selected", map[string]any{
		"plan":  planID,
		"route": route,
	})
	return &sel, nil
}

// CompleteTrialSignup регистрирует пробный период.
//
// Предусловие: проверка права на пробный период не должна запрещать регистрацию.
// Пользователь создаётся только в локальном состоянии; в удалённое хранилище
// он попадает при первой платной конверсии.
func (s *Service) CompleteTrialSignup(ctx context.Context, sid string, req models.DummyTrialSignupRequest) (*models.User, error) {
	const op = "checkout.CompleteTrialSignup"

	check, err := s.evaluator.Evaluate(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !check.Allowed {
		s.diag.Log(models.LevelInfo, "checkout", "trial signup rejected by eligibility", map[string]any{
			"email":  req.Email,
			"score":  check.RiskScore,
			"reason": check.Reason,
		})
		return nil, fmt.Errorf("%s: %w: %s", op, ErrEligibilityDenied, check.Reason)
	}

	now := s.now()
	trialEnd := now.Add(TrialDuration)
	user := models.User{
		UID:          uuid.NewString(),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		Tier:         models.TierTrial,
		TrialEndDate: &trialEnd,
		CreatedAt:    now,
	}
	if err := s.local.SaveUser(ctx, sid, user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("trial signup completed", slog.String("user_uid", user.UID))
	s.diag.Log(models.LevelInfo, "checkout", "trial signup completed", map[string]any{
		"user_uid":              user.UID,
		"trial_end":             trialEnd,
		"payment_method_needed": check.RequiresPaymentMethod,
	})
	return &user, nil
}

// CheckoutStart — данные для подтверждения оплаты на стороне клиента.
type CheckoutStart struct {
	Payment      models.PaymentResult `json:"payment"`
	ClientSecret string               `json:"client_secret,omitempty"` // Секрет платёжного намерения для подтверждения
}

// StartCheckout подготавливает оплату выбранного тарифа.
//
// Для пользователя с уже привязанным способом оплаты подписка оформляется
// у провайдера сразу, без нового ввода карты. Иначе создаётся платёжное
// намерение, итог подтверждения которого клиент возвращает через
// CompleteCheckout.
func (s *Service) StartCheckout(ctx context.Context, sid string) (*CheckoutStart, error) {
	const op = "checkout.StartCheckout"

	if !s.configured {
		return nil, fmt.Errorf("%s: %w", op, ErrProcessorNotConfigured)
	}
	sel, found, err := s.local.GetSelection(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSelection)
	}
	plan, ok := s.plans.Get(sel.PlanID)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrPlanUnknown, sel.PlanID)
	}

	user, foundUser, err := s.local.GetUser(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if foundUser && user.PaymentMethodAdded {
		// Списание выполняет сам провайдер, поэтому локальный тариф
		// обновляется только после успешного оформления подписки.
		sub, err := s.backend.CreateSubscription(ctx, user.UID, plan.PriceID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		user.Tier = models.SubscriptionTier(plan.ID)
		user.TrialEndDate = nil
		if err := s.local.SaveUser(ctx, sid, *user); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := s.local.ClearSelection(ctx, sid); err != nil {
			s.log.Warn("failed to clear selection", sl.Err(err))
		}
		s.diag.Log(models.LevelInfo, "checkout", "subscription created with saved payment method", map[string]any{
			"user_uid": user.UID,
			"plan":     plan.ID,
			"status":   sub.Status,
		})
		return &CheckoutStart{
			Payment: models.PaymentResult{Status: models.PaymentStatusSucceeded},
		}, nil
	}

	intent, err := s.backend.CreatePaymentIntent(ctx, plan.PriceMonthly, "usd", map[string]string{
		"plan_id":  plan.ID,
		"price_id": plan.PriceID,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.diag.Log(models.LevelInfo, "checkout", "payment intent created", map[string]any{
		"plan":              plan.ID,
		"payment_intent_id": intent.ID,
	})
	return &CheckoutStart{
		Payment: models.PaymentResult{
			Status:          models.PaymentStatusRequiresAction,
			PaymentIntentID: intent.ID,
		},
		ClientSecret: intent.ClientSecret,
	}, nil
}

// CompleteCheckout завершает оформление по итогу платежа.
//
// Порядок жёсткий: сначала оптимистичное обновление локального состояния,
// затем попытка удалённой записи. Сбой удалённой записи не откатывает
// локальное обновление и не возвращается вызывающему как ошибка.
func (s *Service) CompleteCheckout(ctx context.Context, sid string, req models.DummyCheckoutRequest) (*models.User, error) {
	const op = "checkout.CompleteCheckout"

	if !s.configured {
		return nil, fmt.Errorf("%s: %w", op, ErrProcessorNotConfigured)
	}
	plan, ok := s.plans.Get(req.PlanID)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrPlanUnknown, req.PlanID)
	}
	if req.Status != models.PaymentStatusSucceeded {
		err := mapPaymentFailure(req.Status, req.ErrorCode)
		s.diag.Log(models.LevelInfo, "checkout", "payment not succeeded", map[string]any{
			"status":     req.Status,
			"error_code": req.ErrorCode,
		})
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, found, err := s.local.GetUser(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		// Прямая оплата без пробного периода: пользователь создаётся здесь.
		user = &models.User{
			UID:       uuid.NewString(),
			Email:     req.Email,
			CreatedAt: s.now(),
		}
	}

	user.Tier = models.SubscriptionTier(plan.ID)
	user.TrialEndDate = nil
	user.PaymentMethodAdded = true

	// Локальная запись всегда предшествует удалённой.
	if err := s.local.SaveUser(ctx, sid, *user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.diag.Log(models.LevelInfo, "checkout", "local state updated optimistically", map[string]any{
		"user_uid": user.UID,
		"plan":     plan.ID,
	})

	if err := s.backend.HandlePaymentSuccess(ctx, user.UID, plan.ID, req.PaymentIntentID); err != nil {
		s.handleRemoteFailure(ctx, user.UID, plan.ID, req.PaymentIntentID, err)
	} else {
		s.diag.Log(models.LevelInfo, "checkout", "remote subscription updated", map[string]any{
			"user_uid": user.UID,
			"plan":     plan.ID,
		})
	}

	if err := s.local.ClearSelection(ctx, sid); err != nil {
		s.log.Warn("failed to clear selection", sl.Err(err))
	}
	return user, nil
}

// handleRemoteFailure фиксирует расхождение локального и удалённого состояния
// и ставит долговечную задачу сверки. Ошибка не доходит до пользователя.
func (s *Service) handleRemoteFailure(ctx context.Context, userUID, planID, paymentIntentID string, cause error) {
	s.log.Error("remote update failed after successful charge", sl.Err(cause))
	s.diag.Log(models.LevelError, "checkout", "remote update failed after successful charge", map[string]any{
		"user_uid":          userUID,
		"plan":              planID,
		"payment_intent_id": paymentIntentID,
	})

	id, err := s.pending.CreatePending(ctx, models.PendingReconciliation{
		UserUID:         userUID,
		PlanID:          planID,
		PaymentIntentID: paymentIntentID,
		Status:          models.ReconciliationPending,
	})
	if err != nil {
		s.log.Error("failed to enqueue pending reconciliation", sl.Err(err))
		return
	}
	task := models.ReconciliationTask{
		PendingID:       id,
		UserUID:         userUID,
		PlanID:          planID,
		PaymentIntentID: paymentIntentID,
	}
	if err := s.publisher.PublishReconciliationTask(task); err != nil {
		// Задача уже в таблице, фоновый обход подберёт её без сообщения.
		s.log.Warn("failed to publish reconciliation task", sl.Err(err))
	}
}

// Cancel сбрасывает незавершённое оформление. Запущенные сетевые запросы
// не отменяются, их результаты просто игнорируются.
func (s *Service) Cancel(ctx context.Context, sid string) error {
	const op = "checkout.Cancel"
	if err := s.local.ClearSelection(ctx, sid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.diag.Log(models.LevelInfo, "checkout", "checkout cancelled", nil)
	return nil
}

// Logout уничтожает локальное состояние сессии: пользователя и выбор тарифа.
// Удалённое хранилище не затрагивается.
func (s *Service) Logout(ctx context.Context, sid string) error {
	const op = "checkout.Logout"
	if err := s.local.RemoveUser(ctx, sid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.local.ClearSelection(ctx, sid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.diag.Log(models.LevelInfo, "checkout", "session logged out", nil)
	return nil
}

// EnsureActive возвращает пользователя сессии и признак действующего доступа.
//
// Истёкшему пробному периоду локальная копия не доверяет: состояние
// перепроверяется в удалённом хранилище и локальная копия обновляется.
func (s *Service) EnsureActive(ctx context.Context, sid string) (*models.User, bool, error) {
	const op = "checkout.EnsureActive"

	user, found, err := s.local.GetUser(ctx, sid)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, false, fmt.Errorf("%s: %w", op, ErrNoLocalUser)
	}

	if !user.TrialExpired(s.now()) {
		active := user.Tier != models.TierNone
		return user, active, nil
	}

	info, err := s.backend.GetSubscription(ctx, user.UID)
	if err != nil {
		// Перепроверка не удалась: просроченный локальный тариф не продлевается.
		s.log.Warn("failed to re-check expired trial", sl.Err(err))
		s.diag.Log(models.LevelWarn, "checkout", "stale trial re-check failed", map[string]any{
			"user_uid": user.UID,
		})
		return user, false, nil
	}

	tier := models.SubscriptionTier(info.PlanID)
	if !tier.Valid() || tier == models.TierTrial {
		tier = models.TierNone
	}
	user.Tier = tier
	user.TrialEndDate = nil
	user.PaymentMethodAdded = info.PaymentMethodAdded
	if err := s.local.SaveUser(ctx, sid, *user); err != nil {
		s.log.Warn("failed to refresh local user", sl.Err(err))
	}
	s.diag.Log(models.LevelInfo, "checkout", "stale trial refreshed from remote", map[string]any{
		"user_uid": user.UID,
		"tier":     user.Tier,
	})
	return user, user.Tier != models.TierNone, nil
}
