// Package livemode определяет режим работы платёжных реквизитов: боевой или тестовый.
//
// Режим вычисляется один раз при старте по префиксу публикуемого ключа
// и дальше передаётся по ссылке как неизменяемое значение — в боевом режиме
// списываются реальные деньги, поэтому отладочные действия из фиксированного
// списка запрещаются.
package livemode

import "strings"

// Отладочные действия, запрещённые в боевом режиме.
const (
	// ActionSimulateWebhook — имитация вебхука провайдера.
	ActionSimulateWebhook = "simulate-webhook"
	// ActionTestWebhook — проверка доставки вебхуков.
	ActionTestWebhook = "test-webhook"
	// ActionTestPayment — синтетический тестовый платёж.
	ActionTestPayment = "test-payment"
)

var disabledInLive = map[string]struct{}{
	ActionSimulateWebhook: {},
	ActionTestWebhook:     {},
	ActionTestPayment:     {},
}

// Mode — неизменяемый признак боевого режима платёжных реквизитов.
type Mode struct {
	live bool
}

// Detect определяет режим по префиксу публикуемого ключа провайдера.
// Ключи вида pk_live_... означают боевой режим, всё остальное — тестовый.
func Detect(publishableKey string) Mode {
	return Mode{live: strings.HasPrefix(publishableKey, "pk_live")}
}

// IsLive сообщает, работают ли реквизиты с реальными деньгами.
func (m Mode) IsLive() bool {
	return m.live
}

// ActionDisabled сообщает, запрещено ли отладочное действие в текущем режиме.
// В тестовом режиме разрешено всё.
func (m Mode) ActionDisabled(action string) bool {
	if !m.live {
		return false
	}
	_, found := disabledInLive[action]
	return found
}
