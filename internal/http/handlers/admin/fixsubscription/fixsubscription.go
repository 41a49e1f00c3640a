// Package fixsubscription реализует HTTP-обработчик ручной сверки подписки.
//
// Handler принимает идентификатор пользователя и тариф по известному
// успешному платежу, принудительно выравнивает удалённое хранилище
// и закрывает задачи сверки пользователя.
package fixsubscription

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/billing-gateway/internal/http/response"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gateway/internal/models"
)

// Handler управляет HTTP-запросами ручной сверки.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис сверки подписок
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс ручной сверки подписки.
type Service interface {
	ManualFix(ctx context.Context, userUID, planID string) error
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
// @Summary Ручная сверка подписки
// @Description Принудительно выравнивает удалённую подписку пользователя по известному успешному платежу.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body models.DummyFixRequest true "Пользователь и тариф"
// @Success 200 {object} response.OKResponse "Подписка выровнена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /admin/subscriptions/fix [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.fixsubscription"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyFixRequest
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

	if err := h.service.ManualFix(r.Context(), req.UserUID, req.PlanID); err != nil {
		log.Error("failed to fix subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not fix subscription"))
		return
	}

	log.Info("subscription fixed",
		slog.String("user_uid", req.UserUID),
		slog.String("plan", req.PlanID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"fixed": true,
	}))
}
