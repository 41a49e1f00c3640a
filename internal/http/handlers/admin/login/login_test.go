package login

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/billing-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/jwt"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/password"
	"github.com/magabrotheeeer/billing-gateway/internal/models"
)

func TestLoginHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	maker := jwt.NewJWTMaker("test-secret", time.Hour)

	keyHash, err := password.GetHash("correct-admin-key")
	require.NoError(t, err)

	tests := []struct {
		name           string
		requestBody    interface{}
		adminKeyHash   string
		expectedStatus int
		checkBody      func(t *testing.T, body []byte)
	}{
		{
			name:           "верный ключ выдаёт токен оператора",
			requestBody:    models.DummyAdminLoginRequest{AdminKey: "correct-admin-key"},
			adminKeyHash:   keyHash,
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, body []byte) {
				var resp struct {
					Status string `json:"status"`
					Data   struct {
						Token string `json:"token"`
					} `json:"data"`
				}
				require.NoError(t, json.Unmarshal(body, &resp))
				require.NotEmpty(t, resp.Data.Token)

				claims, err := maker.ParseToken(resp.Data.Token)
				require.NoError(t, err)
				assert.Equal(t, middlewarectx.AdminRole, claims.Role)
			},
		},
		{
			name:           "неверный ключ",
			requestBody:    models.DummyAdminLoginRequest{AdminKey: "wrong-key"},
			adminKeyHash:   keyHash,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "ключ не настроен",
			requestBody:    models.DummyAdminLoginRequest{AdminKey: "any-key"},
			adminKeyHash:   "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "пустой ключ",
			requestBody:    models.DummyAdminLoginRequest{},
			adminKeyHash:   keyHash,
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			adminKeyHash:   keyHash,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := New(logger, tt.adminKeyHash, maker)

			body, err := json.Marshal(tt.requestBody)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewReader(body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.checkBody != nil {
				tt.checkBody(t, w.Body.Bytes())
			}
		})
	}
}
