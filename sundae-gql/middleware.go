package sundaegql

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

func WithCORS() func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
	})
}

// WithLogger attaches a request-scoped logger and logs each request once it
// completes.
func WithLogger(logger zerolog.Logger) func(handler http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			started := time.Now()
			l := logger.With().
				Str("request_id", middleware.GetReqID(req.Context())).
				Str("path", req.URL.Path).
				Logger()
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			handler.ServeHTTP(ww, req.WithContext(l.WithContext(req.Context())))
			l.Debug().
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(started)).
				Msg("graphql request")
		})
	}
}
