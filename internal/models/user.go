// Package models содержит доменные структуры биллинга: пользователя-подписчика,
// результат проверки права на пробный период, запись диагностического журнала,
// а также вспомогательные типы для приёма данных из JSON-запросов.
package models

import (
	"fmt"
	"time"
)

// SubscriptionTier — тариф подписки. Закрытое множество значений,
// любое другое значение считается некорректным.
type SubscriptionTier string

const (
	// TierNone — тариф отсутствует (бесплатный доступ).
	TierNone SubscriptionTier = "none"
	// TierTrial — пробный период.
	TierTrial SubscriptionTier = "trial"
	// TierStarter — начальный платный тариф.
	TierStarter SubscriptionTier = "starter"
	// TierProfessional — профессиональный тариф.
	TierProfessional SubscriptionTier = "professional"
	// TierEnterprise — корпоративный тариф.
	TierEnterprise SubscriptionTier = "enterprise"
)

// Valid сообщает, входит ли тариф в закрытое множество допустимых значений.
func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierNone, TierTrial, TierStarter, TierProfessional, TierEnterprise:
		return true
	}
	return false
}

// User представляет подписчика (пробного или платного).
//
// Авторитетная копия живёт во внешнем хранилище; локальная копия — кеш,
// который может устареть, если сверка после платежа не удалась.
type User struct {
	UID                string           `json:"uid"`                      // Уникальный идентификатор пользователя
	Email              string           `json:"email"`                    // Электронная почта
	DisplayName        string           `json:"display_name,omitempty"`   // Отображаемое имя
	Tier               SubscriptionTier `json:"tier"`                     // Текущий тариф
	TrialEndDate       *time.Time       `json:"trial_end_date,omitempty"` // Дата окончания пробного периода, только при tier = trial
	PaymentMethodAdded bool             `json:"payment_method_added"`     // Привязан ли платёжный метод
	CreatedAt          time.Time        `json:"created_at"`               // Дата создания записи
}

// Validate проверяет инварианты пользователя: тариф из закрытого множества,
// дата окончания пробного периода задана тогда и только тогда, когда tier = trial.
func (u *User) Validate() error {
	if !u.Tier.Valid() {
		return fmt.Errorf("unknown subscription tier: %q", u.Tier)
	}
	if u.Tier == TierTrial && u.TrialEndDate == nil {
		return fmt.Errorf("trial user must have trial end date")
	}
	if u.Tier != TierTrial && u.TrialEndDate != nil {
		return fmt.Errorf("trial end date is set for non-trial tier %q", u.Tier)
	}
	return nil
}

// TrialExpired сообщает, истёк ли пробный период на момент now.
// Для непробных тарифов всегда false.
func (u *User) TrialExpired(now time.Time) bool {
	return u.Tier == TierTrial && u.TrialEndDate != nil && u.TrialEndDate.Before(now)
}
