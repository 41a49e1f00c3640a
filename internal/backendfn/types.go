package backendfn

import "time"

// PaymentIntent — созданное платёжное намерение.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int    `json:"amount"`
	Currency     string `json:"currency"`
}

// EligibilityResult — решение удалённой проверки права на пробный период.
type EligibilityResult struct {
	RiskScore int    `json:"risk_score"`
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
}

// SubscriptionInfo — авторитетное состояние подписки пользователя.
type SubscriptionInfo struct {
	UserUID            string     `json:"user_uid"`
	PlanID             string     `json:"plan_id"`
	Status             string     `json:"status"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	PaymentMethodAdded bool       `json:"payment_method_added"`
}

// WebhookStatus — состояние доставки вебхуков провайдера.
type WebhookStatus struct {
	Configured  bool       `json:"configured"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
	PendingJobs int        `json:"pending_jobs"`
}
