package middlewarectx

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// SessionHeader — заголовок с идентификатором сессии клиента.
const SessionHeader = "X-Session-ID"

// SessionMiddleware привязывает запрос к сессии. Идентификатор берётся
// из заголовка X-Session-ID; если клиент его не прислал, генерируется
// новый и возвращается в том же заголовке ответа.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := r.Header.Get(SessionHeader)
		if sid == "" {
			sid = uuid.NewString()
		}
		w.Header().Set(SessionHeader, sid)
		ctx := context.WithValue(r.Context(), SessionID, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
