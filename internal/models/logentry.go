package models

import "time"

// LogLevel — важность записи диагностического журнала.
type LogLevel string

const (
	// LevelInfo — информационная запись.
	LevelInfo LogLevel = "info"
	// LevelWarn — предупреждение.
	LevelWarn LogLevel = "warn"
	// LevelError — ошибка.
	LevelError LogLevel = "error"
)

// LogEntry — одна запись диагностического журнала платёжных событий.
type LogEntry struct {
	Time      time.Time `json:"time"`           // Момент события
	Level     LogLevel  `json:"level"`          // Важность
	Component string    `json:"component"`      // Компонент-источник
	Message   string    `json:"message"`        // Текст события
	Data      any       `json:"data,omitempty"` // Дополнительные структурированные данные
}
