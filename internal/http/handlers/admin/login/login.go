// Package login реализует HTTP-обработчик входа оператора.
//
// Handler принимает операторский ключ, сверяет его с bcrypt-хешем
// из конфигурации и выдаёт JWT токен с ролью admin. Роль проверяется
// один раз при входе, дальше действует токен.
package login

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/billing-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-gateway/internal/http/response"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/jwt"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/password"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/billing-gateway/internal/models"
)

// Handler управляет HTTP-запросами входа оператора.
type Handler struct {
	log          *slog.Logger        // Логгер для записи информации и ошибок
	adminKeyHash string              // bcrypt-хеш операторского ключа
	maker        jwt.Maker           // Генератор JWT токенов
	validate     *validator.Validate // Валидатор структуры входящих данных
}

// New создает новый Handler с переданными логгером, хешем ключа и генератором токенов.
func New(log *slog.Logger, adminKeyHash string, maker jwt.Maker) *Handler {
	return &Handler{
		log:          log,
		adminKeyHash: adminKeyHash,
		maker:        maker,
		validate:     validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вход оператора
// @Description Проверяет операторский ключ и выдаёт JWT токен с ролью admin.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body models.DummyAdminLoginRequest true "Операторский ключ"
// @Success 200 {object} response.OKResponse "Токен оператора"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверный ключ"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /admin/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.login"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyAdminLoginRequest
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

	if h.adminKeyHash == "" {
		log.Error("admin key is not configured")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("admin access is not configured"))
		return
	}

	if err := password.CompareHash(h.adminKeyHash, req.AdminKey); err != nil {
		log.Error("invalid admin key", sl.Err(err))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid admin key"))
		return
	}

	token, err := h.maker.GenerateToken("operator", middlewarectx.AdminRole)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not generate token"))
		return
	}

	log.Info("operator logged in")
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token": token,
	}))
}
