// Package simulatewebhook реализует HTTP-обработчик имитации вебхука
// платёжного провайдера.
//
// В боевом режиме действие отключено: обработчик возвращает успешный
// no-op ответ с флагом disabled, не выполняя никаких записей.
package simulatewebhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/billing-gateway/internal/http/response"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gateway/internal/livemode"
	"github.com/magabrotheeeer/billing-gateway/internal/models"
)

// Handler управляет HTTP-запросами имитации вебхука.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Клиент удалённых backend-функций
	mode     livemode.Mode       // Режим платёжных реквизитов
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс имитации вебхука об успешном платеже.
type Service interface {
	HandlePaymentSuccess(ctx context.Context, userUID, planID, paymentIntentID string) error
}

// New создает новый Handler с переданными логгером, сервисом и режимом.
func New(log *slog.Logger, service Service, mode livemode.Mode) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		mode:     mode,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Имитировать вебхук провайдера
// @Description Отправляет в удалённое хранилище событие успешного платежа. В боевом режиме действие отключено.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body models.DummySimulateWebhookRequest true "Параметры имитируемого платежа"
// @Success 200 {object} response.OKResponse "Результат имитации или флаг disabled"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Удалённое хранилище недоступно"
// @Router /admin/webhooks/simulate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.simulatewebhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if h.mode.ActionDisabled(livemode.ActionSimulateWebhook) {
		log.Warn("webhook simulation requested in live mode, skipping")
		render.JSON(w, r, response.OKWithData(map[string]any{
			"disabled": true,
			"reason":   "test actions are disabled with live payment credentials",
		}))
		return
	}

	var req models.DummySimulateWebhookRequest
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

	paymentIntentID := req.PaymentIntentID
	if paymentIntentID == "" {
		paymentIntentID = "pi_simulated_" + uuid.NewString()
	}

	if err := h.service.HandlePaymentSuccess(r.Context(), req.UserUID, req.PlanID, paymentIntentID); err != nil {
		log.Error("failed to simulate webhook", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("could not simulate webhook"))
		return
	}

	log.Info("webhook simulated",
		slog.String("user_uid", req.UserUID),
		slog.String("plan", req.PlanID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"disabled":          false,
		"payment_intent_id": paymentIntentID,
	}))
}
