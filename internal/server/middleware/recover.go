package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
)

// Recover returns middleware that turns a handler panic into a 500 response
// and logs it.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.ErrorContext(r.Context(), "http handler panicked",
						slog.String("path", r.URL.Path),
						slog.String("panic", fmt.Sprint(rec)),
					)
					writeJSONError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
