// Package diaglog реализует ограниченный по размеру журнал платёжных событий.
//
// Записи хранятся в памяти от новых к старым, при превышении ёмкости самые
// старые вытесняются. Каждая запись зеркалируется в локальное состояние,
// при старте зеркальная копия загружается обратно. Экспорт формирует
// JSON-отчёт с флагами наличия реквизитов окружения — значения секретов
// в журнал и отчёт не попадают никогда.
package diaglog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/billing-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gateway/internal/models"
)

// Mirror описывает зеркало журнала в локальном состоянии.
type Mirror interface {
	SaveDiagLog(ctx context.Context, entries []models.LogEntry) error
	LoadDiagLog(ctx context.Context) ([]models.LogEntry, bool, error)
}

// Logger — ограниченный журнал диагностических событий.
type Logger struct {
	mu       sync.Mutex
	entries  []models.LogEntry
	capacity int
	mirror   Mirror
	presence map[string]bool
	log      *slog.Logger
}

// Report — структура экспортируемого отчёта.
type Report struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Environment map[string]bool   `json:"environment"` // Только флаги наличия, без значений
	Entries     []models.LogEntry `json:"entries"`
}

// New создаёт журнал с заданной ёмкостью и загружает зеркальную копию, если она есть.
func New(ctx context.Context, capacity int, mirror Mirror, presence map[string]bool, log *slog.Logger) *Logger {
	l := &Logger{
		capacity: capacity,
		mirror:   mirror,
		presence: presence,
		log:      log,
	}
	if mirror != nil {
		entries, found, err := mirror.LoadDiagLog(ctx)
		if err != nil {
			log.Warn("failed to load persisted diagnostic log", sl.Err(err))
		} else if found {
			if len(entries) > capacity {
				entries = entries[:capacity]
			}
			l.entries = entries
		}
	}
	return l
}

// Log добавляет запись в начало журнала и зеркалирует журнал.
// Ошибка зеркалирования не прерывает запись — журнал в памяти остаётся источником.
// Зеркалирование выполняется под блокировкой: устаревший снимок не может
// затереть более новый в зеркале.
func (l *Logger) Log(level models.LogLevel, component, message string, data any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := models.LogEntry{
		Time:      time.Now().UTC(),
		Level:     level,
		Component: component,
		Message:   message,
		Data:      data,
	}
	l.entries = append([]models.LogEntry{entry}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}

	if l.mirror != nil {
		snapshot := make([]models.LogEntry, len(l.entries))
		copy(snapshot, l.entries)
		if err := l.mirror.SaveDiagLog(context.Background(), snapshot); err != nil {
			l.log.Warn("failed to mirror diagnostic log", sl.Err(err))
		}
	}
}

// All возвращает копию журнала от новых записей к старым.
func (l *Logger) All() []models.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	res := make([]models.LogEntry, len(l.entries))
	copy(res, l.entries)
	return res
}

// Clear полностью очищает журнал и его зеркало.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	if l.mirror != nil {
		if err := l.mirror.SaveDiagLog(context.Background(), nil); err != nil {
			l.log.Warn("failed to clear mirrored diagnostic log", sl.Err(err))
		}
	}
}

// Export сериализует журнал в JSON-отчёт с флагами наличия реквизитов.
func (l *Logger) Export() (string, error) {
	const op = "diaglog.Export"
	report := Report{
		GeneratedAt: time.Now().UTC(),
		Environment: l.presence,
		Entries:     l.All(),
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(data), nil
}
