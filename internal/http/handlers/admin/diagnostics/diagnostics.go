// Package diagnostics реализует HTTP-обработчики диагностического журнала
// для оператора: просмотр, экспорт и очистку.
package diagnostics

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/billing-gateway/internal/http/response"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gateway/internal/models"
)

// Handler управляет HTTP-запросами диагностического журнала.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Диагностический журнал
}

// Service описывает интерфейс диагностического журнала.
type Service interface {
	All() []models.LogEntry
	Clear()
	Export() (string, error)
}

// New создает новый Handler с переданными логгером и журналом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// List godoc
// @Summary Просмотр диагностического журнала
// @Description Возвращает записи журнала от новых к старым.
// @Tags Admin
// @Produce  json
// @Success 200 {object} response.OKResponse "Записи журнала"
// @Router /admin/diagnostics [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.diagnostics.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	entries := h.service.All()
	log.Info("diagnostic log listed", slog.Int("count", len(entries)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"entries": entries,
	}))
}

// Export godoc
// @Summary Экспорт диагностического журнала
// @Description Возвращает JSON-отчёт с флагами наличия реквизитов. Значения секретов никогда не включаются.
// @Tags Admin
// @Produce  json
// @Success 200 {string} string "JSON-отчёт"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /admin/diagnostics/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.diagnostics.export"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	report, err := h.service.Export()
	if err != nil {
		log.Error("failed to export diagnostic log", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not export diagnostic log"))
		return
	}

	log.Info("diagnostic log exported")
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="diagnostic-report.json"`)
	if _, err := w.Write([]byte(report)); err != nil {
		log.Error("failed to write report", sl.Err(err))
	}
}

// Clear godoc
// @Summary Очистка диагностического журнала
// @Description Полностью очищает журнал и его зеркальную копию.
// @Tags Admin
// @Produce  json
// @Success 200 {object} response.OKResponse "Журнал очищен"
// @Router /admin/diagnostics [delete]
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.diagnostics.clear"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	h.service.Clear()
	log.Info("diagnostic log cleared")
	render.JSON(w, r, response.OKWithData(map[string]any{
		"cleared": true,
	}))
}
