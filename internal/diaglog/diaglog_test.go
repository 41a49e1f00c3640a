package diaglog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/billing-gateway/internal/models"
)

type memoryMirror struct {
	entries []models.LogEntry
	saved   bool
}

func (m *memoryMirror) SaveDiagLog(_ context.Context, entries []models.LogEntry) error {
	m.entries = entries
	m.saved = true
	return nil
}

func (m *memoryMirror) LoadDiagLog(_ context.Context) ([]models.LogEntry, bool, error) {
	return m.entries, m.entries != nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLog_ОграничениеЁмкости(t *testing.T) {
	const capacity = 5
	l := New(context.Background(), capacity, &memoryMirror{}, nil, testLogger())

	for i := 0; i < capacity+1; i++ {
		l.Log(models.LevelInfo, "checkout", fmt.Sprintf("event %d", i), nil)
	}

	entries := l.All()
	require.Len(t, entries, capacity)
	// От новых к старым, самая старая запись вытеснена.
	assert.Equal(t, "event 5", entries[0].Message)
	assert.Equal(t, "event 1", entries[capacity-1].Message)
	for _, e := range entries {
		assert.NotEqual(t, "event 0", e.Message)
	}
}

func TestLog_ЗеркалированиеИЗагрузка(t *testing.T) {
	mirror := &memoryMirror{}
	l := New(context.Background(), 10, mirror, nil, testLogger())

	l.Log(models.LevelError, "checkout", "remote update failed", map[string]string{"plan": "starter"})
	require.True(t, mirror.saved)

	restored := New(context.Background(), 10, mirror, nil, testLogger())
	entries := restored.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "remote update failed", entries[0].Message)
}

func TestClear(t *testing.T) {
	mirror := &memoryMirror{}
	l := New(context.Background(), 10, mirror, nil, testLogger())
	l.Log(models.LevelInfo, "evaluator", "decision", nil)

	l.Clear()

	assert.Empty(t, l.All())
	assert.Empty(t, mirror.entries)
}

func TestExport_НеСодержитСекретов(t *testing.T) {
	presence := map[string]bool{
		"payment_publishable_key": true,
		"backend_anon_key":        false,
	}
	l := New(context.Background(), 10, &memoryMirror{}, presence, testLogger())
	l.Log(models.LevelWarn, "evaluator", "remote lookup failed, treating as neutral", nil)

	report, err := l.Export()
	require.NoError(t, err)

	assert.Contains(t, report, `"payment_publishable_key": true`)
	assert.Contains(t, report, `"backend_anon_key": false`)
	assert.Contains(t, report, "remote lookup failed")
	// Секретные значения в отчёте не появляются.
	assert.False(t, strings.Contains(report, "pk_live"), "report must not contain key material")
}

// countingMirror записывает размер каждого полученного снимка.
type countingMirror struct {
	sizes []int
}

func (m *countingMirror) SaveDiagLog(_ context.Context, entries []models.LogEntry) error {
	m.sizes = append(m.sizes, len(entries))
	return nil
}

func (m *countingMirror) LoadDiagLog(_ context.Context) ([]models.LogEntry, bool, error) {
	return nil, false, nil
}

func TestLog_ПараллельноеЗеркалированиеСохраняетПорядок(t *testing.T) {
	mirror := &countingMirror{}
	l := New(context.Background(), 100, mirror, nil, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Log(models.LevelInfo, "checkout", "entry", nil)
		}()
	}
	wg.Wait()

	// Снимки попадают в зеркало строго по мере роста журнала:
	// устаревший снимок не может затереть более новый.
	require.Len(t, mirror.sizes, 20)
	for i, size := range mirror.sizes {
		assert.Equal(t, i+1, size)
	}
}
