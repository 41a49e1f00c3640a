// Package profile реализует HTTP-обработчик профиля текущей сессии.
//
// Handler возвращает пользователя сессии и признак действующего доступа.
// Истёкший пробный период прозрачно перепроверяется в удалённом хранилище.
package profile

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
	"github.com/magabrotheeeer/billing-gateway/internal/models"
	"github.com/magabrotheeeer/billing-gateway/internal/services/checkout"
)

// Handler управляет HTTP-запросами профиля.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики оформления
}

// Service описывает интерфейс получения профиля с проверкой доступа.
type Service interface {
	EnsureActive(ctx context.Context, sid string) (*models.User, bool, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Профиль текущей сессии
// @Description Возвращает пользователя и признак действующего доступа к продукту.
// @Tags Profile
// @Produce  json
// @Success 200 {object} response.OKResponse "Профиль и статус доступа"
// @Failure 400 {object} response.ErrorResponse "Отсутствует сессия"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /profile [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.profile"
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

	user, active, err := h.service.EnsureActive(r.Context(), sid)
	if err != nil {
		if errors.Is(err, checkout.ErrNoLocalUser) {
			log.Info("no user in session")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to load profile", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not load profile"))
		return
	}

	log.Info("profile loaded",
		slog.String("user_uid", user.UID),
		slog.Bool("active", active))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user":   user,
		"active": active,
	}))
}
