package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(method, path string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath: path,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:   method,
				Path:     path,
				SourceIP: "203.0.113.7",
			},
		},
	}
}

func TestHandleHealth(t *testing.T) {
	cfg := config{upstreamBaseURL: "http://example.com", upstreamTimeout: time.Second}
	resp, err := handle(context.Background(), cfg, http.DefaultClient, request(http.MethodGet, "/health"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", resp.Body)
}

func TestHandleRejects(t *testing.T) {
	cfg := config{upstreamBaseURL: "http://example.com", upstreamTimeout: time.Second}
	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "unknown path", method: http.MethodPost, path: "/webhooks/other", want: http.StatusNotFound},
		{name: "put", method: http.MethodPut, path: webhookPath, want: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := handle(context.Background(), cfg, http.DefaultClient, request(tt.method, tt.path))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestHandleForwardsVerification(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, webhookPath, r.URL.Path)
		assert.Equal(t, "subscribe", r.URL.Query().Get("hub.mode"))
		_, _ = io.WriteString(w, r.URL.Query().Get("hub.challenge"))
	}))
	t.Cleanup(upstream.Close)

	evt := request(http.MethodGet, webhookPath)
	evt.RawQueryString = "hub.mode=subscribe&hub.verify_token=tok&hub.challenge=42"

	cfg := config{upstreamBaseURL: upstream.URL, upstreamTimeout: time.Second}
	resp, err := handle(context.Background(), cfg, upstream.Client(), evt)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "42", resp.Body)
}

func TestHandleForwardsSignedPost(t *testing.T) {
	payload := `{"object":"whatsapp_business_account","entry":[]}`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, payload, string(body))
		assert.Equal(t, "sha256=abc", r.Header.Get("X-Hub-Signature-256"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "203.0.113.7", r.Header.Get("X-Forwarded-For"))
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(upstream.Close)

	evt := request(http.MethodPost, webhookPath)
	evt.Body = base64.StdEncoding.EncodeToString([]byte(payload))
	evt.IsBase64Encoded = true
	evt.Headers = map[string]string{
		"Content-Type":        "application/json",
		"X-Hub-Signature-256": "sha256=abc",
	}

	cfg := config{upstreamBaseURL: upstream.URL, upstreamTimeout: time.Second}
	resp, err := handle(context.Background(), cfg, upstream.Client(), evt)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Headers["content-type"])
}

func TestHandleInvalidBase64(t *testing.T) {
	evt := request(http.MethodPost, webhookPath)
	evt.Body = "%%%"
	evt.IsBase64Encoded = true

	cfg := config{upstreamBaseURL: "http://example.com", upstreamTimeout: time.Second}
	resp, err := handle(context.Background(), cfg, http.DefaultClient, evt)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	cfg := config{upstreamBaseURL: url, upstreamTimeout: time.Second}
	resp, err := handle(context.Background(), cfg, http.DefaultClient, request(http.MethodPost, webhookPath))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "")
	_, err := loadConfig()
	require.Error(t, err)

	t.Setenv("UPSTREAM_BASE_URL", "https://api.premiumcar.test/")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://api.premiumcar.test", cfg.upstreamBaseURL)
	assert.Equal(t, 3*time.Second, cfg.upstreamTimeout)

	t.Setenv("UPSTREAM_TIMEOUT", "soon")
	_, err = loadConfig()
	require.Error(t, err)
}
