package checkout

import (
	"errors"

	"github.com/magabrotheeeer/billing-gateway/internal/models"
)

// Ошибки оформления, различимые на уровне HTTP-обработчиков.
var (
	// ErrPlanUnknown — запрошен тариф вне справочника.
	ErrPlanUnknown = errors.New("unknown plan")
	// ErrEligibilityDenied — проверка права на пробный период запретила регистрацию.
	ErrEligibilityDenied = errors.New("trial eligibility denied")
	// ErrNoLocalUser — в локальном состоянии сессии нет пользователя.
	ErrNoLocalUser = errors.New("no user in local state")
	// ErrNoSelection — оформление начато без зафиксированного выбора тарифа.
	ErrNoSelection = errors.New("no plan selected")

	// Ошибки платёжного провайдера: пользователь может повторить попытку.
	ErrCardDeclined      = errors.New("card declined")
	ErrCardExpired       = errors.New("card expired")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPaymentValidation = errors.New("payment validation failed")

	// ErrProcessorNotConfigured — платёжный провайдер не настроен.
	// Повторная попытка бессмысленна, нужен путь "связаться с поддержкой".
	ErrProcessorNotConfigured = errors.New("payment processor is not configured")
)

// mapPaymentFailure переводит неуспешный итог платежа в одну из категорий.
// Статус requires_action терминальным не является: до подтверждения
// оформление завершать нельзя.
func mapPaymentFailure(status, code string) error {
	if status == models.PaymentStatusRequiresAction {
		return ErrPaymentValidation
	}
	return mapProviderError(code)
}

// mapProviderError переводит код ошибки провайдера в одну из категорий.
func mapProviderError(code string) error {
	switch code {
	case "card_declined":
		return ErrCardDeclined
	case "expired_card":
		return ErrCardExpired
	case "insufficient_funds":
		return ErrInsufficientFunds
	default:
		return ErrPaymentValidation
	}
}

// Retryable сообщает, имеет ли смысл повторить оформление с той же картой.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrCardDeclined),
		errors.Is(err, ErrCardExpired),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrPaymentValidation):
		return true
	}
	return false
}

// UserMessage возвращает сообщение для пользователя по категории ошибки.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrCardDeclined):
		return "your card was declined, please try another card"
	case errors.Is(err, ErrCardExpired):
		return "your card has expired, please use a different card"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient funds, please try another card"
	case errors.Is(err, ErrPaymentValidation):
		return "payment details could not be validated, please check and retry"
	case errors.Is(err, ErrProcessorNotConfigured):
		return "payments are temporarily unavailable, please contact support"
	case errors.Is(err, ErrEligibilityDenied):
		return "free trial is not available for this email"
	default:
		return "could not complete the operation"
	}
}
