package models

import "time"

// Статусы задачи отложенной сверки.
const (
	// ReconciliationPending — задача ожидает повторной попытки.
	ReconciliationPending = "pending"
	// ReconciliationResolved — удалённое хранилище приведено в соответствие.
	ReconciliationResolved = "resolved"
	// ReconciliationManual — автоматические попытки исчерпаны, нужен оператор.
	ReconciliationManual = "manual"
)

// PendingReconciliation — долговечная запись о платеже, который прошёл
// у провайдера, но не был зафиксирован в удалённом хранилище.
// Очередь таких записей разбирается фоновым reconciler-ом.
type PendingReconciliation struct {
	ID              int       `json:"id"`
	UserUID         string    `json:"user_uid"`
	PlanID          string    `json:"plan_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	Attempts        int       `json:"attempts"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ReconciliationTask — сообщение очереди для одной попытки сверки.
type ReconciliationTask struct {
	PendingID       int    `json:"pending_id"`
	UserUID         string `json:"user_uid"`
	PlanID          string `json:"plan_id"`
	PaymentIntentID string `json:"payment_intent_id"`
}
