package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpmiddleware "github.com/wolfman30/premiumcar-router/internal/http/middleware"
	"github.com/wolfman30/premiumcar-router/internal/observability/metrics"
	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

type stubWebhook struct {
	verified, inbound int
}

func (s *stubWebhook) HandleVerification(w http.ResponseWriter, _ *http.Request) {
	s.verified++
	w.WriteHeader(http.StatusOK)
}

func (s *stubWebhook) HandleInbound(w http.ResponseWriter, _ *http.Request) {
	s.inbound++
	w.WriteHeader(http.StatusOK)
}

func newTestRouter(t *testing.T, checks map[string]HealthCheck) (http.Handler, *stubWebhook) {
	t.Helper()
	reg := prometheus.NewRegistry()
	wh := &stubWebhook{}
	return New(&Config{
		Logger:         logging.Default(),
		Webhook:        wh,
		WebhookLimiter: httpmiddleware.NewRateLimiter(0, 2),
		Metrics:        metrics.NewMessagingMetrics(reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		HealthChecks:   checks,
	}), wh
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHealth_Degraded(t *testing.T) {
	h, _ := newTestRouter(t, map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
		"queue": func(context.Context) error { return nil },
	})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestWebhookRoutes(t *testing.T) {
	h, wh := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	assert.Equal(t, 1, wh.verified)
	assert.Equal(t, 1, wh.inbound)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "premiumcar_messaging_webhook_latency_seconds")
}
