package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/premiumcar-router/internal/app/bootstrap"
	appconfig "github.com/wolfman30/premiumcar-router/internal/config"
	"github.com/wolfman30/premiumcar-router/internal/events"
	httpmiddleware "github.com/wolfman30/premiumcar-router/internal/http/middleware"
	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

func TestSetupMetricsExposesMessagingMetrics(t *testing.T) {
	_, handler, m := setupMetrics()
	require.NotNil(t, handler)
	require.NotNil(t, m)

	m.ObserveInbound("text", "accepted")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "premiumcar_messaging_inbound_webhook_total")
}

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	assert.Nil(t, connectPostgresPool(context.Background(), &appconfig.Config{}, logging.New("error")))
}

func TestHealthChecksOnlyListConfiguredDependencies(t *testing.T) {
	assert.Empty(t, healthChecks(nil, nil))
}

func newConversation(t *testing.T) *bootstrap.Conversation {
	t.Helper()
	conv, err := bootstrap.BuildDispatcher(context.Background(), &appconfig.Config{
		WhatsAppPhoneNumberID: "PN_1",
		WhatsAppBaseURL:       "http://127.0.0.1:0",
	}, bootstrap.DispatcherDeps{}, logging.New("error"))
	require.NoError(t, err)
	return conv
}

func TestSetupConversationMemoryQueueRunsWorkerInProcess(t *testing.T) {
	cfg := &appconfig.Config{UseMemoryQueue: true, WorkerCount: 1, JobTimeout: time.Second}
	pub, worker := setupConversation(cfg, nil, newConversation(t), events.NewMemoryStore(time.Hour), logging.New("error"))
	assert.NotNil(t, pub)
	assert.NotNil(t, worker)
}

func TestSetupSchedulerJobs(t *testing.T) {
	logger := logging.New("error")
	conv := newConversation(t)

	sched, err := setupScheduler(&appconfig.Config{SweepSchedule: "@every 5m"}, conv, nil, nil, logger)
	require.NoError(t, err)
	assert.False(t, sched.HasJobs(), "no TTL and no limiter means no jobs")

	sched, err = setupScheduler(&appconfig.Config{ConversationTTL: time.Hour, SweepSchedule: "@every 5m"}, conv, nil, httpmiddleware.NewRateLimiter(1, 1), logger)
	require.NoError(t, err)
	assert.True(t, sched.HasJobs())
	assert.False(t, sched.IsRunning())

	_, err = setupScheduler(&appconfig.Config{ConversationTTL: time.Hour, SweepSchedule: "not a schedule"}, conv, nil, nil, logger)
	assert.Error(t, err)
}
