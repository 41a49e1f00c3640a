package models

import "time"

// Analysis — результат одного анализа, выполненного пользователем.
// Хранится только в локальном состоянии сессии: текущий анализ отдельно,
// завершённые — в кеше списка прежних анализов.
type Analysis struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Payload   any       `json:"payload,omitempty"`
}
