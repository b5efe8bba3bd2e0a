package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "DEDUPE_BACKEND", "CONVERSATION_TTL", "ANSWER_FAILURE_POLICY", "LEAD_EMAIL_RECIPIENTS", "USE_MEMORY_QUEUE"} {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.UseMemoryQueue)
	assert.Equal(t, "memory", cfg.DedupeBackend)
	assert.Zero(t, cfg.ConversationTTL)
	assert.Equal(t, "notify_user", cfg.AnswerFailurePolicy)
	assert.Equal(t, "best_effort", cfg.SinkFailurePolicy)
	assert.Equal(t, "Citas", cfg.AppointmentSheet)
	assert.Equal(t, 20*time.Second, cfg.AnswerTimeout)
	assert.Empty(t, cfg.LeadEmailRecipients)
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("DEDUPE_BACKEND", " Redis ")
	t.Setenv("CONVERSATION_TTL", "30m")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("WEBHOOK_RATE_LIMIT", "2.5")
	t.Setenv("USE_MEMORY_QUEUE", "false")
	t.Setenv("LEAD_EMAIL_RECIPIENTS", "ventas@premiumcar.mx, ,gerencia@premiumcar.mx")
	t.Setenv("JOB_TIMEOUT", "not-a-duration")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "redis", cfg.DedupeBackend)
	assert.Equal(t, 30*time.Minute, cfg.ConversationTTL)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.InDelta(t, 2.5, cfg.WebhookRateLimit, 1e-9)
	assert.False(t, cfg.UseMemoryQueue)
	assert.Equal(t, []string{"ventas@premiumcar.mx", "gerencia@premiumcar.mx"}, cfg.LeadEmailRecipients)
	assert.Equal(t, 60*time.Second, cfg.JobTimeout)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("WEBHOOK_VERIFY_TOKEN=from-file\nPORT=7000\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("PORT", "9999")
	t.Setenv("WEBHOOK_VERIFY_TOKEN", "")
	os.Unsetenv("WEBHOOK_VERIFY_TOKEN")

	cfg := Load()
	assert.Equal(t, "from-file", cfg.WebhookVerifyToken)
	assert.Equal(t, "9999", cfg.Port, "process env wins over .env")
}
