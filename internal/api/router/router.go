package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/premiumcar-router/internal/http/middleware"
	"github.com/wolfman30/premiumcar-router/internal/observability/metrics"
	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

// WebhookHandler serves the channel webhook endpoints.
type WebhookHandler interface {
	HandleVerification(w http.ResponseWriter, r *http.Request)
	HandleInbound(w http.ResponseWriter, r *http.Request)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Webhook        WebhookHandler
	WebhookLimiter *httpmiddleware.RateLimiter
	Metrics        *metrics.MessagingMetrics
	MetricsHandler http.Handler
	HealthChecks   map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Webhook != nil {
		r.Route("/webhook", func(wh chi.Router) {
			if cfg.WebhookLimiter != nil {
				wh.Use(cfg.WebhookLimiter.Middleware)
			}
			wh.Use(webhookLatency(cfg.Metrics))
			wh.Get("/", cfg.Webhook.HandleVerification)
			wh.Post("/", cfg.Webhook.HandleInbound)
		})
	}

	return r
}

func webhookLatency(m *metrics.MessagingMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			m.ObserveWebhookLatency(r.Method, time.Since(start).Seconds())
		})
	}
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok"}
		if len(checks) > 0 {
			results := make(map[string]string, len(checks))
			for name, check := range checks {
				if err := check(ctx); err != nil {
					results[name] = err.Error()
					status = http.StatusServiceUnavailable
					body["status"] = "degraded"
					continue
				}
				results[name] = "ok"
			}
			body["checks"] = results
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
