package models

// EligibilityCheck — результат оценки права на пробный период для одного email.
//
// Не сохраняется в хранилище: новая оценка полностью заменяет предыдущую.
type EligibilityCheck struct {
	RiskScore             int      `json:"risk_score"`                      // Оценка риска 0..100
	Allowed               bool     `json:"allowed"`                         // Разрешён ли пробный период
	Reason                string   `json:"reason,omitempty"`                // Причина отказа (при Allowed = false)
	RequiresPaymentMethod bool     `json:"requires_payment_method"`         // Требуется ли привязка карты до старта пробного периода
	Alternatives          []string `json:"alternative_actions,omitempty"`   // Предлагаемые альтернативы при отказе
}
