// Package eligibility содержит бизнес-логику оценки права на пробный период.
//
// Оценка складывается из локальных сигналов (одноразовые почтовые домены,
// повторные отправки одного email в скользящем окне) и удалённой проверки.
// Недоступность удалённой проверки никогда не блокирует регистрацию:
// проверка считается пройденной с нейтральной оценкой (fail open).
package eligibility

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/billing-gateway/internal/backendfn"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gateway/internal/models"
)

// Пороговые значения политики риска.
const (
	// LowRiskCutoff — ниже этого значения карта не требуется.
	LowRiskCutoff = 50
	// HighRiskCutoff — начиная с этого значения пробный период запрещён.
	HighRiskCutoff = 80
	// MaxRiskScore — максимальная оценка, всегда означает отказ.
	MaxRiskScore = 100

	// neutralScore — нейтральная оценка при недоступной удалённой проверке.
	// Строго ниже LowRiskCutoff, чтобы сбой не навязывал привязку карты.
	neutralScore = 25

	// submissionLimit — допустимое число отправок одного email за окно.
	submissionLimit = 5
	// submissionWindow — скользящее окно подсчёта повторных отправок.
	submissionWindow = 24 * time.Hour

	disposableDomainScore = 40
)

// Одноразовые почтовые домены, известные на клиентской стороне.
var disposableDomains = map[string]struct{}{
	"mailinator.com":    {},
	"guerrillamail.com": {},
	"10minutemail.com":  {},
	"tempmail.com":      {},
	"throwaway.email":   {},
	"yopmail.com":       {},
}

// RemoteChecker описывает удалённую проверку права на пробный период.
type RemoteChecker interface {
	CheckTrialEligibility(ctx context.Context, email string) (*backendfn.EligibilityResult, error)
}

// SubmissionStore описывает счётчик повторных отправок email.
type SubmissionStore interface {
	CountRecentSubmissions(ctx context.Context, email string, window time.Duration, now time.Time) (int, error)
	RecordSubmission(ctx context.Context, email string, now time.Time) error
}

// DiagLogger описывает диагностический журнал решений.
type DiagLogger interface {
	Log(level models.LogLevel, component, message string, data any)
}

// Service реализует оценку права на пробный период.
type Service struct {
	remote      RemoteChecker
	submissions SubmissionStore
	diag        DiagLogger
	log         *slog.Logger
	now         func() time.Time
}

// NewService создает новый экземпляр Service.
func NewService(remote RemoteChecker, submissions SubmissionStore, diag DiagLogger, log *slog.Logger) *Service {
	return &Service{
		remote:      remote,
		submissions: submissions,
		diag:        diag,
		log:         log,
		now:         time.Now,
	}
}

// Evaluate оценивает email и возвращает решение с оценкой риска.
//
// При одинаковом ответе удалённой проверки решение детерминировано:
// один и тот же email всегда даёт один и тот же результат.
func (s *Service) Evaluate(ctx context.Context, email string) (*models.EligibilityCheck, error) {
	const op = "eligibility.Evaluate"
	if email == "" {
		return nil, fmt.Errorf("%s: email is empty", op)
	}
	now := s.now()

	prior, err := s.submissions.CountRecentSubmissions(ctx, email, submissionWindow, now)
	if err != nil {
		// Счётчик — локальный сигнал, его сбой не блокирует оценку.
		s.log.Warn("failed to count submissions", sl.Err(err))
		prior = 0
	}
	if err := s.submissions.RecordSubmission(ctx, email, now); err != nil {
		s.log.Warn("failed to record submission", sl.Err(err))
	}

	// Повторные отправки отсекаются до обращения к удалённой проверке.
	if prior >= submissionLimit-1 {
		check := &models.EligibilityCheck{
			RiskScore: MaxRiskScore,
			Allowed:   false,
			Reason:    "too many signup attempts for this email, try again later",
			Alternatives: []string{
				"skip trial and pay directly",
				"contact support",
			},
		}
		s.logDecision(email, check, "local rate limit")
		return check, nil
	}

	score := 0
	if isDisposableDomain(email) {
		score += disposableDomainScore
	}

	remoteDenied := false
	res, err := s.remote.CheckTrialEligibility(ctx, email)
	if err != nil {
		// Fail open: сбой удалённой проверки считается пройденной проверкой.
		s.log.Warn("remote eligibility lookup failed, using neutral score", sl.Err(err))
		s.diag.Log(models.LevelWarn, "eligibility", "remote lookup failed, treating as neutral", nil)
		score += neutralScore
	} else {
		score += res.RiskScore
		remoteDenied = !res.Allowed
	}

	if score > MaxRiskScore {
		score = MaxRiskScore
	}
	if remoteDenied {
		score = MaxRiskScore
	}

	check := decide(score)
	s.logDecision(email, check, "scored")
	return check, nil
}

func decide(score int) *models.EligibilityCheck {
	check := &models.EligibilityCheck{RiskScore: score}
	switch {
	case score >= HighRiskCutoff:
		check.Allowed = false
		check.Reason = "risk score is too high for a free trial"
		check.Alternatives = []string{
			"skip trial and pay directly",
			"contact support",
		}
	case score >= LowRiskCutoff:
		check.Allowed = true
		check.RequiresPaymentMethod = true
	default:
		check.Allowed = true
	}
	return check
}

func (s *Service) logDecision(email string, check *models.EligibilityCheck, cause string) {
	s.diag.Log(models.LevelInfo, "eligibility", "trial eligibility decision", map[string]any{
		"email":   email,
		"score":   check.RiskScore,
		"allowed": check.Allowed,
		"cause":   cause,
	})
}

func isDisposableDomain(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	_, found := disposableDomains[domain]
	return found
}
