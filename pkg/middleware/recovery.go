package middleware

import (
	"net/http"
	"runtime/debug"

	"communa/pkg/logger"
)

// Recovery converts panics into 500 responses. The response body is a
// fixed payload; panic details stay in the log.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				log.Error("Panic recovered",
					"request_id", requestIDFromContext(r.Context()),
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"Internal server error","code":"INTERNAL_ERROR"}`))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
