package models

// DummyEligibilityRequest используется для приёма email из JSON-запроса
// перед оценкой права на пробный период.
type DummyEligibilityRequest struct {
	Email string `json:"email" validate:"required,email"` // Проверяемый email
}

// DummySelectPlanRequest используется для приёма выбора тарифа из JSON-запроса.
type DummySelectPlanRequest struct {
	PlanID    string `json:"plan_id" validate:"required"` // Идентификатор тарифа
	SkipTrial bool   `json:"skip_trial"`                  // Пропустить пробный период и платить сразу
}

// DummyTrialSignupRequest используется для приёма данных регистрации
// пробного периода из JSON-запроса.
type DummyTrialSignupRequest struct {
	Email       string `json:"email" validate:"required,email"` // Email нового пользователя
	DisplayName string `json:"display_name" validate:"required"` // Отображаемое имя
}

// DummyCheckoutRequest используется для приёма итога платежа из JSON-запроса.
// Status и коды ошибок приходят от платёжного провайдера как есть.
type DummyCheckoutRequest struct {
	PlanID          string `json:"plan_id" validate:"required"`           // Оплаченный тариф
	Email           string `json:"email" validate:"omitempty,email"`      // Email при прямой оплате без пробного периода
	PaymentIntentID string `json:"payment_intent_id" validate:"required"` // Идентификатор платёжного намерения
	Status          string `json:"status" validate:"required"`            // Терминальный статус платежа
	ErrorCode       string `json:"error_code"`                            // Код ошибки провайдера, если платёж не прошёл
}

// DummyFixRequest используется для приёма параметров ручной сверки оператором.
type DummyFixRequest struct {
	UserUID string `json:"user_uid" validate:"required,uuid"` // Пользователь, которому восстанавливается тариф
	PlanID  string `json:"plan_id" validate:"required"`       // Тариф по известному успешному платежу
}

// DummySimulateWebhookRequest используется для приёма параметров имитации
// вебхука провайдера. Действие доступно только в тестовом режиме.
type DummySimulateWebhookRequest struct {
	UserUID         string `json:"user_uid" validate:"required,uuid"` // Пользователь, для которого имитируется вебхук
	PlanID          string `json:"plan_id" validate:"required"`       // Тариф имитируемого платежа
	PaymentIntentID string `json:"payment_intent_id"`                 // Идентификатор платёжного намерения (опционально)
}

// DummyAdminLoginRequest используется для приёма операторского ключа.
type DummyAdminLoginRequest struct {
	AdminKey string `json:"admin_key" validate:"required"` // Операторский ключ доступа
}
