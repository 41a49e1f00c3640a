// Package cancel реализует HTTP-обработчик отмены незавершённого оформления.
package cancel

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/billing-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-gateway/internal/http/response"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/sl"
)

// Handler управляет HTTP-запросами отмены оформления.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики оформления
}

// Service описывает интерфейс отмены оформления.
type Service interface {
	Cancel(ctx context.Context, sid string) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отменить оформление
// @Description Сбрасывает выбранный тариф в сессии. Идемпотентна.
// @Tags Checkout
// @Produce  json
// @Success 200 {object} response.OKResponse "Оформление отменено"
// @Failure 400 {object} response.ErrorResponse "Отсутствует сессия"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /checkout/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.checkout.cancel"
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

	if err := h.service.Cancel(r.Context(), sid); err != nil {
		log.Error("failed to cancel checkout", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not cancel checkout"))
		return
	}

	log.Info("checkout cancelled")
	render.JSON(w, r, response.OKWithData(map[string]any{
		"cancelled": true,
	}))
}
