// Package start реализует HTTP-обработчик начала оплаты выбранного тарифа.
//
// Handler создаёт у провайдера платёжное намерение для тарифа, выбранного
// в сессии, либо сразу оформляет подписку, если способ оплаты уже привязан.
package start

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/billing-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-gateway/internal/http/response"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gateway/internal/services/checkout"
)

// Handler управляет HTTP-запросами начала оплаты.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики оформления
}

// Service описывает интерфейс начала оплаты.
type Service interface {
	StartCheckout(ctx context.Context, sid string) (*checkout.CheckoutStart, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Начать оплату выбранного тарифа
// @Description Создаёт платёжное намерение для выбранного тарифа или оформляет подписку по привязанному способу оплаты.
// @Tags Checkout
// @Produce  json
// @Success 200 {object} response.OKResponse "Данные для подтверждения оплаты"
// @Failure 400 {object} response.ErrorResponse "Нет выбранного тарифа или сессии"
// @Failure 502 {object} response.ErrorResponse "Провайдер недоступен"
// @Failure 503 {object} response.ErrorResponse "Платёжный провайдер не настроен"
// @Router /checkout/start [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.start"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sid, ok := r.Context().Value(middlewarectx.SessionID).(string)
	if !ok || sid == "" {
		log.Error("session id not found in context")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("session id is missing"))
		return
	}

	res, err := h.service.StartCheckout(r.Context(), sid)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrProcessorNotConfigured):
			log.Error("payment processor is not configured")
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error(checkout.UserMessage(err)))
		case errors.Is(err, checkout.ErrNoSelection):
			log.Error("no plan selected for session")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("no plan selected"))
		case errors.Is(err, checkout.ErrPlanUnknown):
			log.Error("unknown plan in selection")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown plan"))
		default:
			log.Error("failed to start checkout", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("could not start checkout"))
		}
		return
	}

	log.Info("checkout started",
		slog.String("status", res.Payment.Status),
		slog.String("payment_intent_id", res.Payment.PaymentIntentID))
	render.JSON(w, r, response.OKWithData(res))
}
