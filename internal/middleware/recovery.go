package middleware

import (
	"net/http"

	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/SARVESHVARADKAR123/messenger/internal/transport"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500. http.ErrAbortHandler is passed through
// so net/http can abort the response as intended.
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				observability.GetLogger(r.Context()).Error("handler panic",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("user_id", UserID(r.Context())),
					zap.String("request_id", RequestIDFromContext(r.Context())),
					zap.Stack("stack"),
				)
				transport.WriteError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
