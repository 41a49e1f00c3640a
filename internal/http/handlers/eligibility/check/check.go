// Package check реализует HTTP-обработчик оценки права на пробный период.
//
// Handler принимает JSON-запрос с email, валидирует его и возвращает
// результат оценки риска: допуск, отказ с причиной или требование
// привязать карту до старта пробного периода.
package check

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

// Handler управляет HTTP-запросами оценки права на пробный период.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис оценки права на пробный период
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс оценки права на пробный период.
type Service interface {
	Evaluate(ctx context.Context, email string) (*models.EligibilityCheck, error)
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
// @Summary Проверить право на пробный период
// @Description Оценивает риск злоупотребления пробным периодом для email.
// @Tags Trial
// @Accept  json
// @Produce  json
// @Param request body models.DummyEligibilityRequest true "Проверяемый email"
// @Success 200 {object} response.OKResponse "Результат оценки"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /trial/eligibility [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.eligibility.check"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyEligibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	check, err := h.service.Evaluate(r.Context(), req.Email)
	if err != nil {
		log.Error("failed to evaluate eligibility", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not evaluate eligibility"))
		return
	}

	log.Info("eligibility evaluated",
		slog.Int("risk_score", check.RiskScore),
		slog.Bool("allowed", check.Allowed))
	render.JSON(w, r, response.OKWithData(check))
}
