package models

import "time"

// CheckoutRoute — маршрут оформления после выбора тарифа.
type CheckoutRoute string

const (
	// RouteTrial — путь через регистрацию пробного периода.
	RouteTrial CheckoutRoute = "trial"
	// RouteCheckout — прямая оплата без пробного периода.
	RouteCheckout CheckoutRoute = "checkout"
)

// Selection — зафиксированное намерение пользователя по выбору тарифа.
// Живёт только в локальном состоянии сессии, никаких внешних побочных эффектов.
type Selection struct {
	PlanID    string        `json:"plan_id"`
	SkipTrial bool          `json:"skip_trial"`
	Route     CheckoutRoute `json:"route"`
	CreatedAt time.Time     `json:"created_at"`
}

// Статусы подтверждения платежа, которые сообщает внешний платёжный провайдер.
const (
	// PaymentStatusSucceeded — терминальный успешный статус.
	PaymentStatusSucceeded = "succeeded"
	// PaymentStatusFailed — терминальный неуспешный статус.
	PaymentStatusFailed = "failed"
	// PaymentStatusRequiresAction — платёж требует дополнительного действия.
	PaymentStatusRequiresAction = "requires_action"
)

// PaymentResult — итог подтверждения платежа, полученный от провайдера.
// Сырые данные карты сюда никогда не попадают.
type PaymentResult struct {
	Status          string `json:"status"`
	PaymentIntentID string `json:"payment_intent_id"`
	ErrorCode       string `json:"error_code,omitempty"` // Код ошибки провайдера при неуспехе
}
