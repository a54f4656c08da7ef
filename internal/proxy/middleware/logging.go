package middleware

import (
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/pysugar/oauth-connect/internal/logging"
	"github.com/rs/zerolog"
)

// RequestLogger assigns every request an ID, honouring an incoming
// X-Request-ID, echoes it on the response and stores a request-scoped logger
// in the context for zerolog.Ctx.
func RequestLogger(base zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(logging.RequestIDHeader))
			if requestID == "" {
				requestID = logging.GenerateRequestID()
			}
			w.Header().Set(logging.RequestIDHeader, requestID)

			log := base.With().Str("request_id", requestID).Logger()
			ctx := logging.WithRequestID(r.Context(), requestID)
			ctx = log.WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessLog writes one line per finished request. Health and metrics
// scrapes are logged at debug level.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		log := zerolog.Ctx(r.Context())
		event := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case r.URL.Path == "/health" || r.URL.Path == "/metrics":
			event = log.Debug()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Str("remote_addr", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Msg("Request completed")
	})
}
