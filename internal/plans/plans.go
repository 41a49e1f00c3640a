// Package plans содержит статический справочник платных тарифов.
// Справочник собирается один раз при старте из конфигурации
// и после этого не изменяется.
package plans

import "github.com/magabrotheeeer/billing-gateway/internal/config"

// PlanConfig — описание одного тарифа для витрины и оформления.
type PlanConfig struct {
	ID           string   `json:"id"`            // Внутренний идентификатор тарифа
	Name         string   `json:"name"`          // Отображаемое название
	PriceMonthly int      `json:"price_monthly"` // Цена за месяц в центах
	PriceID      string   `json:"price_id"`      // Идентификатор цены у платёжного провайдера
	Features     []string `json:"features"`      // Список возможностей
	Popular      bool     `json:"popular"`       // Бейдж "популярный"
	CallToAction string   `json:"call_to_action"`
}

// Registry — неизменяемый набор тарифов.
type Registry struct {
	items []PlanConfig
	byID  map[string]PlanConfig
}

// New собирает справочник тарифов, подставляя идентификаторы цен из конфигурации.
func New(cfg config.Payment) *Registry {
	items := []PlanConfig{
		{
			ID:           "starter",
			Name:         "Starter",
			PriceMonthly: 900,
			PriceID:      cfg.PriceStarter,
			Features:     []string{"5 analyses per month", "Email support"},
			CallToAction: "Start free trial",
		},
		{
			ID:           "professional",
			Name:         "Professional",
			PriceMonthly: 2900,
			PriceID:      cfg.PriceProfessional,
			Features:     []string{"Unlimited analyses", "Priority support", "Export reports"},
			Popular:      true,
			CallToAction: "Start free trial",
		},
		{
			ID:           "enterprise",
			Name:         "Enterprise",
			PriceMonthly: 9900,
			PriceID:      cfg.PriceEnterprise,
			Features:     []string{"Everything in Professional", "Dedicated manager", "SLA"},
			CallToAction: "Contact sales",
		},
	}
	byID := make(map[string]PlanConfig, len(items))
	for _, p := range items {
		byID[p.ID] = p
	}
	return &Registry{items: items, byID: byID}
}

// List возвращает все тарифы в порядке витрины.
func (r *Registry) List() []PlanConfig {
	res := make([]PlanConfig, len(r.items))
	copy(res, r.items)
	return res
}

// Get возвращает тариф по идентификатору.
func (r *Registry) Get(id string) (PlanConfig, bool) {
	p, ok := r.byID[id]
	return p, ok
}
