// Package list реализует HTTP-обработчик витрины тарифов.
//
// Handler возвращает справочник тарифов в JSON-формате. Справочник
// статичен в пределах процесса, поэтому запрос не требует авторизации.
package list

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/billing-gateway/internal/http/response"
	"github.com/magabrotheeeer/billing-gateway/internal/plans"
)

// Handler управляет HTTP-запросами списка тарифов.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Справочник тарифов
}

// Service описывает интерфейс справочника тарифов.
type Service interface {
	List() []plans.PlanConfig
}

// New создает новый Handler с переданными логгером и справочником.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список тарифов
// @Description Возвращает справочник тарифов с ценами и составом функций.
// @Tags Plans
// @Produce  json
// @Success 200 {object} response.OKResponse "Список тарифов"
// @Router /plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	items := h.service.List()
	log.Info("plans listed", slog.Int("count", len(items)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"plans": items,
	}))
}
