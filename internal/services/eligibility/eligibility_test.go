package eligibility

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/billing-gateway/internal/backendfn"
	"github.com/magabrotheeeer/billing-gateway/internal/models"
)

// MockRemote реализует интерфейс RemoteChecker
type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) CheckTrialEligibility(ctx context.Context, email string) (*backendfn.EligibilityResult, error) {
	args := m.Called(ctx, email)
	if res := args.Get(0); res != nil {
		return res.(*backendfn.EligibilityResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSubmissions реализует интерфейс SubmissionStore
type MockSubmissions struct {
	mock.Mock
}

func (m *MockSubmissions) CountRecentSubmissions(ctx context.Context, email string, window time.Duration, now time.Time) (int, error) {
	args := m.Called(ctx, email, window, now)
	return args.Int(0), args.Error(1)
}

func (m *MockSubmissions) RecordSubmission(ctx context.Context, email string, now time.Time) error {
	args := m.Called(ctx, email, now)
	return args.Error(0)
}

type noopDiag struct {
	entries []models.LogEntry
}

func (d *noopDiag) Log(level models.LogLevel, component, message string, data any) {
	d.entries = append(d.entries, models.LogEntry{Level: level, Component: component, Message: message, Data: data})
}

func newService(remote *MockRemote, subs *MockSubmissions, diag *noopDiag) *Service {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewService(remote, subs, diag, logger)
}

func TestEvaluate_ПороговыеЗначения(t *testing.T) {
	tests := []struct {
		name             string
		remoteScore      int
		wantAllowed      bool
		wantCardRequired bool
	}{
		{name: "низкий риск", remoteScore: 10, wantAllowed: true, wantCardRequired: false},
		{name: "граница низкого порога", remoteScore: LowRiskCutoff, wantAllowed: true, wantCardRequired: true},
		{name: "средний риск требует карту", remoteScore: 65, wantAllowed: true, wantCardRequired: true},
		{name: "высокий риск запрещён", remoteScore: HighRiskCutoff, wantAllowed: false},
		{name: "максимальная оценка запрещена", remoteScore: MaxRiskScore, wantAllowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := new(MockRemote)
			subs := new(MockSubmissions)
			remote.On("CheckTrialEligibility", mock.Anything, "user@example.com").
				Return(&backendfn.EligibilityResult{RiskScore: tt.remoteScore, Allowed: true}, nil)
			subs.On("CountRecentSubmissions", mock.Anything, "user@example.com", mock.Anything, mock.Anything).Return(0, nil)
			subs.On("RecordSubmission", mock.Anything, "user@example.com", mock.Anything).Return(nil)

			check, err := newService(remote, subs, &noopDiag{}).Evaluate(context.Background(), "user@example.com")
			require.NoError(t, err)

			assert.Equal(t, tt.wantAllowed, check.Allowed)
			assert.Equal(t, tt.wantCardRequired, check.RequiresPaymentMethod)
			if !tt.wantAllowed {
				assert.NotEmpty(t, check.Reason)
				assert.NotEmpty(t, check.Alternatives)
			}
		})
	}
}

func TestEvaluate_СбойУдалённойПроверкиFailOpen(t *testing.T) {
	remote := new(MockRemote)
	subs := new(MockSubmissions)
	diag := &noopDiag{}
	remote.On("CheckTrialEligibility", mock.Anything, "user@example.com").
		Return(nil, errors.New("lookup timeout"))
	subs.On("CountRecentSubmissions", mock.Anything, "user@example.com", mock.Anything, mock.Anything).Return(0, nil)
	subs.On("RecordSubmission", mock.Anything, "user@example.com", mock.Anything).Return(nil)

	check, err := newService(remote, subs, diag).Evaluate(context.Background(), "user@example.com")
	require.NoError(t, err)

	assert.True(t, check.Allowed)
	assert.False(t, check.RequiresPaymentMethod)
	assert.Less(t, check.RiskScore, LowRiskCutoff)

	// Предупреждение попадает в диагностический журнал.
	foundWarn := false
	for _, e := range diag.entries {
		if e.Level == models.LevelWarn {
			foundWarn = true
		}
	}
	assert.True(t, foundWarn)
}

func TestEvaluate_ПовторныеОтправкиОтсекаютсяЛокально(t *testing.T) {
	remote := new(MockRemote)
	subs := new(MockSubmissions)
	subs.On("CountRecentSubmissions", mock.Anything, "abuse@example.com", mock.Anything, mock.Anything).Return(4, nil)
	subs.On("RecordSubmission", mock.Anything, "abuse@example.com", mock.Anything).Return(nil)

	check, err := newService(remote, subs, &noopDiag{}).Evaluate(context.Background(), "abuse@example.com")
	require.NoError(t, err)

	assert.False(t, check.Allowed)
	assert.Equal(t, MaxRiskScore, check.RiskScore)
	// Удалённая проверка не вызывалась.
	remote.AssertNotCalled(t, "CheckTrialEligibility", mock.Anything, mock.Anything)
}

func TestEvaluate_ОдноразовыйДомен(t *testing.T) {
	remote := new(MockRemote)
	subs := new(MockSubmissions)
	remote.On("CheckTrialEligibility", mock.Anything, "x@mailinator.com").
		Return(&backendfn.EligibilityResult{RiskScore: 20, Allowed: true}, nil)
	subs.On("CountRecentSubmissions", mock.Anything, "x@mailinator.com", mock.Anything, mock.Anything).Return(0, nil)
	subs.On("RecordSubmission", mock.Anything, "x@mailinator.com", mock.Anything).Return(nil)

	check, err := newService(remote, subs, &noopDiag{}).Evaluate(context.Background(), "x@mailinator.com")
	require.NoError(t, err)

	assert.Equal(t, 60, check.RiskScore)
	assert.True(t, check.Allowed)
	assert.True(t, check.RequiresPaymentMethod)
}

func TestEvaluate_ПустойEmail(t *testing.T) {
	remote := new(MockRemote)
	subs := new(MockSubmissions)

	_, err := newService(remote, subs, &noopDiag{}).Evaluate(context.Background(), "")
	assert.Error(t, err)
}
