// Package complete реализует HTTP-обработчик завершения оформления подписки.
//
// Handler принимает JSON-запрос с итогом платежа от провайдера, валидирует его
// и передаёт бизнес-логике оформления. Сбой удалённой записи после успешного
// списания сюда не доходит: пользователь получает обновлённый профиль.
package complete

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

// Handler управляет HTTP-запросами завершения оформления.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики оформления
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс завершения оформления.
type Service interface {
	CompleteCheckout(ctx context.Context, sid string, req models.DummyCheckoutRequest) (*models.User, error)
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
// @Summary Завершить оформление подписки
// @Description Применяет итог платежа: обновляет тариф и запускает сверку с удалённым хранилищем.
// @Tags Checkout
// @Accept  json
// @Produce  json
// @Param request body models.DummyCheckoutRequest true "Итог платежа от провайдера"
// @Success 200 {object} response.OKResponse "Обновлённый пользователь"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестный тариф"
// @Failure 402 {object} response.ErrorResponse "Платёж не прошёл"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Failure 503 {object} response.ErrorResponse "Платёжный провайдер не настроен"
// @Router /checkout/complete [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.complete"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyCheckoutRequest
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

	user, err := h.service.CompleteCheckout(r.Context(), sid, req)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrProcessorNotConfigured):
			log.Error("payment processor is not configured")
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error(checkout.UserMessage(err)))
		case errors.Is(err, checkout.ErrPlanUnknown):
			log.Error("unknown plan requested", slog.String("plan", req.PlanID))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown plan"))
		case checkout.Retryable(err):
			log.Error("payment failed", sl.Err(err))
			w.WriteHeader(http.StatusPaymentRequired)
			render.JSON(w, r, response.Error(checkout.UserMessage(err)))
		default:
			log.Error("failed to complete checkout", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not complete checkout"))
		}
		return
	}

	log.Info("checkout completed",
		slog.String("user_uid", user.UID),
		slog.Any("tier", user.Tier))
	render.JSON(w, r, response.OKWithData(user))
}
