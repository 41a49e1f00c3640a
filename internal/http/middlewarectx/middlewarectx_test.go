package middlewarectx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/billing-gateway/internal/lib/jwt"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func okHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("success")); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}
}

func TestSessionMiddleware(t *testing.T) {
	t.Run("сохраняет присланный идентификатор сессии", func(t *testing.T) {
		var gotSID string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotSID, _ = r.Context().Value(SessionID).(string)
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(SessionHeader, "session-123")
		w := httptest.NewRecorder()

		SessionMiddleware(handler).ServeHTTP(w, req)
		assert.Equal(t, "session-123", gotSID)
		assert.Equal(t, "session-123", w.Header().Get(SessionHeader))
	})

	t.Run("генерирует идентификатор при отсутствии заголовка", func(t *testing.T) {
		var gotSID string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotSID, _ = r.Context().Value(SessionID).(string)
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		SessionMiddleware(handler).ServeHTTP(w, req)
		assert.NotEmpty(t, gotSID)
		assert.Equal(t, gotSID, w.Header().Get(SessionHeader))
	})
}

func TestJWTMiddleware(t *testing.T) {
	logger := newNoopLogger()
	maker := jwt.NewJWTMaker("test-secret", time.Hour)

	t.Run("валидный токен добавляет данные в контекст", func(t *testing.T) {
		token, err := maker.GenerateToken("uid-1", "user")
		require.NoError(t, err)

		var gotUID, gotRole string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUID, _ = r.Context().Value(UserUID).(string)
			gotRole, _ = r.Context().Value(Role).(string)
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		JWTMiddleware(maker, logger)(handler).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "uid-1", gotUID)
		assert.Equal(t, "user", gotRole)
	})

	t.Run("отсутствие заголовка возвращает 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		JWTMiddleware(maker, logger)(okHandler(t)).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("чужая подпись возвращает 401", func(t *testing.T) {
		otherMaker := jwt.NewJWTMaker("other-secret", time.Hour)
		token, err := otherMaker.GenerateToken("uid-1", "user")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		JWTMiddleware(maker, logger)(okHandler(t)).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAdminOnly(t *testing.T) {
	logger := newNoopLogger()
	maker := jwt.NewJWTMaker("test-secret", time.Hour)

	run := func(t *testing.T, role string) *httptest.ResponseRecorder {
		token, err := maker.GenerateToken("uid-1", role)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		chain := JWTMiddleware(maker, logger)(AdminOnly(logger)(okHandler(t)))
		chain.ServeHTTP(w, req)
		return w
	}

	t.Run("оператор проходит", func(t *testing.T) {
		w := run(t, AdminRole)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("обычный пользователь получает 403", func(t *testing.T) {
		w := run(t, "user")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	logger := newNoopLogger()

	t.Run("allows requests within rate limit", func(t *testing.T) {
		middleware := RateLimitMiddleware(rate.NewLimiter(10, 10), logger)
		req := httptest.NewRequest(http.MethodGet, "/test", nil)

		for range 10 {
			w := httptest.NewRecorder()
			middleware(okHandler(t)).ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "success", w.Body.String())
		}
	})

	t.Run("blocks requests exceeding rate limit", func(t *testing.T) {
		middleware := RateLimitMiddleware(rate.NewLimiter(1, 1), logger)
		req := httptest.NewRequest(http.MethodGet, "/test", nil)

		w := httptest.NewRecorder()
		middleware(okHandler(t)).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		middleware(okHandler(t)).ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})
}
