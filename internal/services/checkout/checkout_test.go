package checkout

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/billing-gateway/internal/backendfn"
	"github.com/magabrotheeeer/billing-gateway/internal/config"
	"github.com/magabrotheeeer/billing-gateway/internal/models"
	"github.com/magabrotheeeer/billing-gateway/internal/plans"
)

// fakeLocal — локальное состояние в памяти с записью порядка операций.
type fakeLocal struct {
	users      map[string]models.User
	selections map[string]models.Selection
	calls      []string
	saveErr    error
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{
		users:      make(map[string]models.User),
		selections: make(map[string]models.Selection),
	}
}

func (f *fakeLocal) SaveUser(_ context.Context, sid string, user models.User) error {
	f.calls = append(f.calls, "SaveUser")
	if f.saveErr != nil {
		return f.saveErr
	}
	f.users[sid] = user
	return nil
}

func (f *fakeLocal) GetUser(_ context.Context, sid string) (*models.User, bool, error) {
	u, ok := f.users[sid]
	if !ok {
		return nil, false, nil
	}
	return &u, true, nil
}

func (f *fakeLocal) RemoveUser(_ context.Context, sid string) error {
	f.calls = append(f.calls, "RemoveUser")
	delete(f.users, sid)
	return nil
}

func (f *fakeLocal) SaveSelection(_ context.Context, sid string, sel models.Selection) error {
	f.selections[sid] = sel
	return nil
}

func (f *fakeLocal) GetSelection(_ context.Context, sid string) (*models.Selection, bool, error) {
	s, ok := f.selections[sid]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (f *fakeLocal) ClearSelection(_ context.Context, sid string) error {
	delete(f.selections, sid)
	return nil
}

// fakeBackend — backend-функции с управляемыми ответами и записью порядка.
type fakeBackend struct {
	calls        *[]string
	successErr   error
	sub          *backendfn.SubscriptionInfo
	subErr       error
	intent       *backendfn.PaymentIntent
	intentErr    error
	createdSub   *backendfn.SubscriptionInfo
	createSubErr error
	lastPriceID  string
}

func (f *fakeBackend) CreatePaymentIntent(_ context.Context, _ int, _ string, _ map[string]string) (*backendfn.PaymentIntent, error) {
	*f.calls = append(*f.calls, "CreatePaymentIntent")
	return f.intent, f.intentErr
}

func (f *fakeBackend) CreateSubscription(_ context.Context, _, priceID string) (*backendfn.SubscriptionInfo, error) {
	*f.calls = append(*f.calls, "CreateSubscription")
	f.lastPriceID = priceID
	return f.createdSub, f.createSubErr
}

func (f *fakeBackend) HandlePaymentSuccess(_ context.Context, _, _, _ string) error {
	*f.calls = append(*f.calls, "HandlePaymentSuccess")
	return f.successErr
}

func (f *fakeBackend) GetSubscription(_ context.Context, _ string) (*backendfn.SubscriptionInfo, error) {
	return f.sub, f.subErr
}

type fakeEvaluator struct {
	check *models.EligibilityCheck
	err   error
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _ string) (*models.EligibilityCheck, error) {
	return f.check, f.err
}

type fakePending struct {
	created []models.PendingReconciliation
	err     error
}

func (f *fakePending) CreatePending(_ context.Context, p models.PendingReconciliation) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.created = append(f.created, p)
	return len(f.created), nil
}

type fakePublisher struct {
	tasks []models.ReconciliationTask
	err   error
}

func (f *fakePublisher) PublishReconciliationTask(task models.ReconciliationTask) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

type fakeDiag struct {
	entries []models.LogEntry
}

func (d *fakeDiag) Log(level models.LogLevel, component, message string, data any) {
	d.entries = append(d.entries, models.LogEntry{Level: level, Component: component, Message: message, Data: data})
}

func (d *fakeDiag) hasLevel(level models.LogLevel) bool {
	for _, e := range d.entries {
		if e.Level == level {
			return true
		}
	}
	return false
}

type fixture struct {
	svc     *Service
	local   *fakeLocal
	backend *fakeBackend
	pending *fakePending
	pub     *fakePublisher
	diag    *fakeDiag
}

func newFixture(t *testing.T, eval Evaluator, configured bool) *fixture {
	t.Helper()
	local := newFakeLocal()
	backend := &fakeBackend{calls: &local.calls}
	pending := &fakePending{}
	pub := &fakePublisher{}
	diag := &fakeDiag{}
	registry := plans.New(config.Payment{PriceStarter: "p1", PriceProfessional: "p2", PriceEnterprise: "p3"})
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc := NewService(local, backend, eval, pending, pub, registry, diag, logger, configured)
	return &fixture{svc: svc, local: local, backend: backend, pending: pending, pub: pub, diag: diag}
}

func TestSelectPlan(t *testing.T) {
	f := newFixture(t, &fakeEvaluator{}, true)

	sel, err := f.svc.SelectPlan(context.Background(), "sid", "starter", false)
	require.NoError(t, err)
	assert.Equal(t, models.RouteTrial, sel.Route)

	sel, err = f.svc.SelectPlan(context.Background(), "sid", "professional", true)
	require.NoError(t, err)
	assert.Equal(t, models.RouteCheckout, sel.Route)

	_, err = f.svc.SelectPlan(context.Background(), "sid", "nonexistent", false)
	assert.ErrorIs(t, err, ErrPlanUnknown)
}

func TestCompleteTrialSignup(t *testing.T) {
	eval := &fakeEvaluator{check: &models.EligibilityCheck{RiskScore: 10, Allowed: true}}
	f := newFixture(t, eval, true)

	user, err := f.svc.CompleteTrialSignup(context.Background(), "sid", models.DummyTrialSignupRequest{
		Email:       "new@example.com",
		DisplayName: "New User",
	})
	require.NoError(t, err)

	assert.Equal(t, models.TierTrial, user.Tier)
	require.NotNil(t, user.TrialEndDate)
	assert.WithinDuration(t, time.Now().Add(TrialDuration), *user.TrialEndDate, time.Minute)
	assert.NoError(t, user.Validate())

	// Пользователь существует только локально.
	saved, ok := f.local.users["sid"]
	require.True(t, ok)
	assert.Equal(t, user.UID, saved.UID)
	assert.NotContains(t, f.local.calls, "HandlePaymentSuccess")
}

func TestCompleteTrialSignup_ОтказПоРиску(t *testing.T) {
	eval := &fakeEvaluator{check: &models.EligibilityCheck{RiskScore: 90, Allowed: false, Reason: "risk too high"}}
	f := newFixture(t, eval, true)

	_, err := f.svc.CompleteTrialSignup(context.Background(), "sid", models.DummyTrialSignupRequest{
		Email: "bad@example.com", DisplayName: "X",
	})
	assert.ErrorIs(t, err, ErrEligibilityDenied)
	assert.Empty(t, f.local.users)
}

func TestCompleteCheckout_ЛокальнаяЗаписьРаньшеУдалённой(t *testing.T) {
	f := newFixture(t, &fakeEvaluator{}, true)

	_, err := f.svc.CompleteCheckout(context.Background(), "sid", models.DummyCheckoutRequest{
		PlanID:          "starter",
		Email:           "buyer@example.com",
		PaymentIntentID: "pi_1",
		Status:          models.PaymentStatusSucceeded,
	})
	require.NoError(t, err)

	// Порядок вызовов: сначала SaveUser, затем HandlePaymentSuccess.
	require.Contains(t, f.local.calls, "SaveUser")
	require.Contains(t, f.local.calls, "HandlePaymentSuccess")
	saveIdx, remoteIdx := -1, -1
	for i, c := range f.local.calls {
		if c == "SaveUser" && saveIdx == -1 {
			saveIdx = i
		}
		if c == "HandlePaymentSuccess" {
			remoteIdx = i
		}
	}
	assert.Less(t, saveIdx, remoteIdx)
}

func TestCompleteCheckout_СбойУдалённойЗаписиНеФатален(t *testing.T) {
	f := newFixture(t, &fakeEvaluator{}, true)
	f.backend.successErr = errors.New("network error")

	user, err := f.svc.CompleteCheckout(context.Background(), "sid", models.DummyCheckoutRequest{
		PlanID:          "professional",
		Email:           "buyer@example.com",
		PaymentIntentID: "pi_2",
		Status:          models.PaymentStatusSucceeded,
	})
	// Пользователь не видит ошибку: списание прошло, продукт выдан.
	require.NoError(t, err)
	assert.Equal(t, models.TierProfessional, user.Tier)
	assert.True(t, user.PaymentMethodAdded)

	// Локальное состояние обновлено и не откачено.
	saved := f.local.users["sid"]
	assert.Equal(t, models.TierProfessional, saved.Tier)

	// Запись об ошибке и долговечная задача сверки.
	assert.True(t, f.diag.hasLevel(models.LevelError))
	require.Len(t, f.pending.created, 1)
	assert.Equal(t, "pi_2", f.pending.created[0].PaymentIntentID)
	require.Len(t, f.pub.tasks, 1)
	assert.Equal(t, 1, f.pub.tasks[0].PendingID)
}

func TestCompleteCheckout_ОшибкиПровайдера(t *testing.T) {
	tests := []struct {
		name      string
		errorCode string
		wantErr   error
	}{
		{name: "карта отклонена", errorCode: "card_declined", wantErr: ErrCardDeclined},
		{name: "карта просрочена", errorCode: "expired_card", wantErr: ErrCardExpired},
		{name: "недостаточно средств", errorCode: "insufficient_funds", wantErr: ErrInsufficientFunds},
		{name: "прочая ошибка валидации", errorCode: "processing_error", wantErr: ErrPaymentValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &fakeEvaluator{}, true)

			_, err := f.svc.CompleteCheckout(context.Background(), "sid", models.DummyCheckoutRequest{
				PlanID:          "starter",
				PaymentIntentID: "pi_3",
				Status:          models.PaymentStatusFailed,
				ErrorCode:       tt.errorCode,
			})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, Retryable(err))
			assert.Empty(t, f.local.users)
		})
	}
}

func TestCompleteCheckout_ТребуетсяПодтверждение(t *testing.T) {
	f := newFixture(t, &fakeEvaluator{}, true)

	// Неподтверждённый платёж не завершает оформление независимо от кода ошибки.
	_, err := f.svc.CompleteCheckout(context.Background(), "sid", models.DummyCheckoutRequest{
		PlanID:          "starter",
		PaymentIntentID: "pi_ra",
		Status:          models.PaymentStatusRequiresAction,
	})
	assert.ErrorIs(t, err, ErrPaymentValidation)
	assert.True(t, Retryable(err))
	assert.Empty(t, f.local.users)
}

func TestCompleteCheckout_ПровайдерНеНастроен(t *testing.T) {
	f := newFixture(t, &fakeEvaluator{}, false)

	_, err := f.svc.CompleteCheckout(context.Background(), "sid", models.DummyCheckoutRequest{
		PlanID:          "starter",
		PaymentIntentID: "pi_4",
		Status:          models.PaymentStatusSucceeded,
	})
	assert.ErrorIs(t, err, ErrProcessorNotConfigured)
	assert.False(t, Retryable(err))
}

func TestStartCheckout_НовымСпособомОплаты(t *testing.T) {
	f := newFixture(t, &fakeEvaluator{}, true)
	f.backend.intent = &backendfn.PaymentIntent{
		ID:           "pi_new",
		ClientSecret: "pi_new_secret",
		Amount:       900,
		Currency:     "usd",
	}
	_, err := f.svc.SelectPlan(context.Background(), "sid", "starter", true)
	require.NoError(t, err)

	res, err := f.svc.StartCheckout(context.Background(), "sid")
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusRequiresAction, res.Payment.Status)
	assert.Equal(t, "pi_new", res.Payment.PaymentIntentID)
	assert.Equal(t, "pi_new_secret", res.ClientSecret)
	assert.Contains(t, f.local.calls, "CreatePaymentIntent")
	assert.NotContains(t, f.local.calls, "CreateSubscription")

	// Выбор тарифа сохраняется до подтверждения платежа.
	_, found, err := f.local.GetSelection(context.Background(), "sid")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestStartCheckout_ПривязаннымСпособомОплаты(t *testing.T) {
	f := newFixture(t, &fakeEvaluator{}, true)
	f.backend.createdSub = &backendfn.SubscriptionInfo{
		UserUID: "uid-1",
		PlanID:  "professional",
		Status:  "active",
	}
	f.local.users["sid"] = models.User{
		UID:                "uid-1",
		Email:              "user@example.com",
		Tier:               models.TierStarter,
		PaymentMethodAdded: true,
	}
	_, err := f.svc.SelectPlan(context.Background(), "sid", "professional", true)
	require.NoError(t, err)

	res, err := f.svc.StartCheckout(context.Background(), "sid")
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusSucceeded, res.Payment.Status)
	assert.Empty(t, res.ClientSecret)
	assert.Contains(t, f.local.calls, "CreateSubscription")
	assert.NotContains(t, f.local.calls, "CreatePaymentIntent")
	assert.Equal(t, "p2", f.backend.lastPriceID)

	// Тариф обновлён, выбор сброшен.
	assert.Equal(t, models.TierProfessional, f.local.users["sid"].Tier)
	_, found, err := f.local.GetSelection(context.Background(), "sid")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStartCheckout_СбойОформленияПодписки(t *testing.T) {
	f := newFixture(t, &fakeEvaluator{}, true)
	f.backend.createSubErr = errors.New("provider unavailable")
	f.local.users["sid"] = models.User{
		UID:                "uid-1",
		Tier:               models.TierStarter,
		PaymentMethodAdded: true,
	}
	_, err := f.svc.SelectPlan(context.Background(), "sid", "professional", true)
	require.NoError(t, err)

	_, err = f.svc.StartCheckout(context.Background(), "sid")
	require.Error(t, err)

	// Локальный тариф не меняется без успешного оформления у провайдера.
	assert.Equal(t, models.TierStarter, f.local.users["sid"].Tier)
}

func TestStartCheckout_БезВыбораТарифа(t *testing.T) {
	f := newFixture(t, &fakeEvaluator{}, true)

	_, err := f.svc.StartCheckout(context.Background(), "sid")
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestStartCheckout_ПровайдерНеНастроен(t *testing.T) {
	f := newFixture(t, &fakeEvaluator{}, false)

	_, err := f.svc.StartCheckout(context.Background(), "sid")
	assert.ErrorIs(t, err, ErrProcessorNotConfigured)
}

func TestLogout(t *testing.T) {
	f := newFixture(t, &fakeEvaluator{}, true)
	f.local.users["sid"] = models.User{UID: "uid-1", Tier: models.TierTrial}
	_, err := f.svc.SelectPlan(context.Background(), "sid", "starter", false)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), "sid"))

	assert.Empty(t, f.local.users)
	_, found, err := f.local.GetSelection(context.Background(), "sid")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Contains(t, f.local.calls, "RemoveUser")
}

func TestCancel(t *testing.T) {
	f := newFixture(t, &fakeEvaluator{}, true)
	_, err := f.svc.SelectPlan(context.Background(), "sid", "starter", false)
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(context.Background(), "sid"))

	_, found, err := f.local.GetSelection(context.Background(), "sid")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEnsureActive_ИстёкшийПробныйПериод(t *testing.T) {
	f := newFixture(t, &fakeEvaluator{}, true)
	expired := time.Now().Add(-time.Hour)
	f.local.users["sid"] = models.User{
		UID:          "uid-1",
		Email:        "user@example.com",
		Tier:         models.TierTrial,
		TrialEndDate: &expired,
	}
	f.backend.sub = &backendfn.SubscriptionInfo{
		UserUID:            "uid-1",
		PlanID:             "starter",
		Status:             "active",
		PaymentMethodAdded: true,
	}

	user, active, err := f.svc.EnsureActive(context.Background(), "sid")
	require.NoError(t, err)

	// Локальному кешу не доверяем: тариф обновлён из удалённого хранилища.
	assert.True(t, active)
	assert.Equal(t, models.TierStarter, user.Tier)
	assert.Nil(t, user.TrialEndDate)
	assert.Equal(t, models.TierStarter, f.local.users["sid"].Tier)
}

func TestEnsureActive_ПерепроверкаНедоступна(t *testing.T) {
	f := newFixture(t, &fakeEvaluator{}, true)
	expired := time.Now().Add(-time.Hour)
	f.local.users["sid"] = models.User{
		UID:          "uid-1",
		Tier:         models.TierTrial,
		TrialEndDate: &expired,
	}
	f.backend.subErr = errors.New("backend down")

	user, active, err := f.svc.EnsureActive(context.Background(), "sid")
	require.NoError(t, err)

	// Просроченный тариф без подтверждения не продлевается.
	assert.False(t, active)
	assert.Equal(t, models.TierTrial, user.Tier)
}

func TestEnsureActive_ДействующийПробныйПериод(t *testing.T) {
	f := newFixture(t, &fakeEvaluator{}, true)
	future := time.Now().Add(24 * time.Hour)
	f.local.users["sid"] = models.User{
		UID:          "uid-1",
		Tier:         models.TierTrial,
		TrialEndDate: &future,
	}

	_, active, err := f.svc.EnsureActive(context.Background(), "sid")
	require.NoError(t, err)
	assert.True(t, active)
}
