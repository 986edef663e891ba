// Package sundaerest provides the HTTP plumbing shared by the chat APIs: CORS,
// request-scoped logging, JSON responses mapped from error kinds, and the
// switch between a local listener and an API Gateway Lambda.
package sundaerest

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/savaki/apigateway"
)

const (
	APIKeyHeader = "X-Api-Key"

	maxBodySize = 1 << 20
)

func Middlewares(service sundaecli.Service, routes chi.Router) chi.Router {
	routes.Use(
		withEmbedPolicyHeaders,
		withCORS(),
		middleware.RequestID,
		withLogger(sundaecli.Logger(service)),
		middleware.Recoverer,
	)
	return routes
}

func Webserver(service sundaecli.Service, routes chi.Router) error {
	logger := sundaecli.Logger(service)

	if sundaecli.CommonOpts.Console {
		logger.Info().Int("port", sundaecli.CommonOpts.Port).Msg("starting http server")
		addr := fmt.Sprintf(":%v", sundaecli.CommonOpts.Port)
		return http.ListenAndServe(addr, routes)
	}

	lambda.Start(apigateway.Wrap(routes, sundaecli.CommonOpts.Env))
	return nil
}

func CacheControl(handler http.HandlerFunc, maxAge int) http.HandlerFunc {
	value := fmt.Sprintf("max-age=%v", maxAge)
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", value)
		handler.ServeHTTP(w, req)
	}
}

// Timer is satisfied by sundaecli.Metrics.
type Timer interface {
	Timing(ctx context.Context, name sundaecli.MetricName, start time.Time, dimensions ...map[sundaecli.DimensionName]string)
}

// WithMetrics records the response time of every request, tagged with its
// route pattern.
func WithMetrics(timer Timer) func(http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			started := time.Now()
			handler.ServeHTTP(w, req)

			operation := req.URL.Path
			if rctx := chi.RouteContext(req.Context()); rctx != nil && rctx.RoutePattern() != "" {
				operation = req.Method + " " + rctx.RoutePattern()
			}
			timer.Timing(req.Context(), sundaecli.ResponseTimeMetric, started, map[sundaecli.DimensionName]string{
				sundaecli.OperationNameDimension: operation,
			})
		})
	}
}

// RequireAPIKey rejects requests whose X-Api-Key header does not match key.
// An empty key disables the check, which is only meant for console mode.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if key != "" {
				got := req.Header.Get(APIKeyHeader)
				if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
					writeStatus(w, req, http.StatusUnauthorized, "invalid api key")
					return
				}
			}
			handler.ServeHTTP(w, req)
		})
	}
}

// DecodeJSON reads a JSON request body into v. Malformed bodies are
// validation errors.
func DecodeJSON(req *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodySize))
	if err != nil {
		return chaterr.Invalid("body", err.Error())
	}
	if err := json.Unmarshal(body, v); err != nil {
		return chaterr.Invalid("body", "malformed JSON")
	}
	return nil
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, req *http.Request, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		WriteError(w, req, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		zerolog.Ctx(req.Context()).Debug().Err(err).Msg("failed to write response")
	}
}

// WriteError answers with the status matching the error kind. Internal errors
// are logged and their details withheld from the client.
func WriteError(w http.ResponseWriter, req *http.Request, err error) {
	status := chaterr.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		zerolog.Ctx(req.Context()).Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
		message = "internal error"
		if errors.Is(err, chaterr.ErrStoreUnavailable) {
			status = http.StatusServiceUnavailable
			message = "store unavailable"
		}
	}
	writeStatus(w, req, status, message)
}

func writeStatus(w http.ResponseWriter, req *http.Request, status int, message string) {
	WriteJSON(w, req, status, map[string]interface{}{
		"status":  status,
		"message": message,
	})
}

func withEmbedPolicyHeaders(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		header := w.Header()
		if req.Method == http.MethodGet && strings.HasSuffix(req.URL.Path, "/graphql") {
			handler.ServeHTTP(w, req)
			return
		}

		header.Add("cross-origin-embedder-policy", "require-corp")
		header.Add("cross-origin-opener-policy", "same-origin")
		header.Add("cross-origin-resource-policy", "cross-origin")
		handler.ServeHTTP(w, req)
	})
}

func withCORS() func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", APIKeyHeader},
	})
}

func withLogger(logger zerolog.Logger) func(handler http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			l := logger.With().
				Str("request_id", middleware.GetReqID(req.Context())).
				Str("method", req.Method).
				Logger()
			req = req.WithContext(l.WithContext(req.Context()))
			handler.ServeHTTP(w, req)
		})
	}
}
