package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/hbotberlin/reservations/internal/http/response"
	"github.com/hbotberlin/reservations/pkg/logger"
)

// Recover converts a handler panic into the generic 500 response. Detail
// goes to the log, never to the caller.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "panic recovered",
					"panic", rec,
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
				)
				response.InternalError(w, "Internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
