// Package selectplan реализует HTTP-обработчик выбора тарифа.
//
// Handler принимает JSON-запрос с идентификатором тарифа, валидирует его,
// фиксирует намерение в локальном состоянии сессии и возвращает маршрут
// оформления: пробный период или прямая оплата.
package selectplan

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/billing-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-gateway/internal/http/response"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gateway/internal/models"
	"github.com/magabrotheeeer/billing-gateway/internal/services/checkout"
)

// Handler управляет HTTP-запросами выбора тарифа.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики оформления
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики выбора тарифа.
type Service interface {
	SelectPlan(ctx context.Context, sid, planID string, skipTrial bool) (*models.Selection, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Выбрать тариф
// @Description Фиксирует выбор тарифа в сессии и возвращает маршрут оформления.
// @Tags Plans
// @Accept  json
// @Produce  json
// @Param request body models.DummySelectPlanRequest true "Выбранный тариф"
// @Success 200 {object} response.OKResponse "Маршрут оформления"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестный тариф"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /plans/select [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.selectplan"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummySelectPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	sid, ok := r.Context().Value(middlewarectx.SessionID).(string)
	if !ok || sid == "" {
		log.Error("session id not found in context")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("session id is missing"))
		return
	}

	sel, err := h.service.SelectPlan(r.Context(), sid, req.PlanID, req.SkipTrial)
	if err != nil {
		if errors.Is(err, checkout.ErrPlanUnknown) {
			log.Error("unknown plan requested", slog.String("plan", req.PlanID))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown plan"))
			return
		}
		log.Error("failed to select plan", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not select plan"))
		return
	}

	log.Info("plan selected", slog.String("plan", sel.PlanID), slog.Any("route", sel.Route))
	render.JSON(w, r, response.OKWithData(sel))
}
