// Package webhookstatus реализует HTTP-обработчик проверки доставки вебхуков
// платёжного провайдера до удалённого хранилища.
package webhookstatus

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/billing-gateway/internal/backendfn"
	"github.com/magabrotheeeer/billing-gateway/internal/http/response"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/sl"
)

// Handler управляет HTTP-запросами проверки вебхуков.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Клиент удалённых backend-функций
}

// Service описывает интерфейс проверки состояния вебхуков.
type Service interface {
	CheckWebhookStatus(ctx context.Context) (*backendfn.WebhookStatus, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Состояние вебхуков провайдера
// @Description Проверяет, доходят ли вебхуки платёжного провайдера до удалённого хранилища.
// @Tags Admin
// @Produce  json
// @Success 200 {object} response.OKResponse "Состояние вебхуков"
// @Failure 502 {object} response.ErrorResponse "Удалённое хранилище недоступно"
// @Router /admin/webhooks/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.webhookstatus"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	status, err := h.service.CheckWebhookStatus(r.Context())
	if err != nil {
		log.Error("failed to check webhook status", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("could not check webhook status"))
		return
	}

	log.Info("webhook status checked")
	render.JSON(w, r, response.OKWithData(status))
}
