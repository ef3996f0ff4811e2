// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/cosmerec/cosmerec/internal/config"
	"github.com/cosmerec/cosmerec/internal/logging"
	"github.com/cosmerec/cosmerec/internal/metrics"
)

// RequestHeaderID is the request ID header set on every response.
const RequestHeaderID = "X-Request-ID"

// requestID generates a request ID, reuses the client's when provided,
// and attaches it to the request context and the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestHeaderID)
		if id == "" {
			id = logging.GenerateRequestID()
		}

		ctx := logging.ContextWithRequestID(r.Context(), id)
		w.Header().Set(RequestHeaderID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// prometheusMetrics records request counts and latency per route
// pattern, so path parameters do not explode the label space.
func prometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		metrics.RecordAPIRequest(r.Method, endpoint, rec.status, time.Since(start))
	})
}

// corsMiddleware builds the CORS handler from configuration.
func corsMiddleware(cfg config.SecurityConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", RequestHeaderID},
		ExposedHeaders:   []string{RequestHeaderID, "ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// rateLimit builds the per-IP rate limiter from configuration. Returns
// a pass-through when rate limiting is disabled.
func rateLimit(cfg config.SecurityConfig) func(http.Handler) http.Handler {
	if cfg.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow)
}
