package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("AGENT_SERVER_PORT", "")
	t.Setenv("LEDGER_STORE", "")
	t.Setenv("RESUME_BASE_URL", "")
	t.Setenv("ADK_API_URL", "")
	t.Setenv("APPROVAL_PUBLIC_URL", "")
	t.Setenv("APPROVAL_API_URL", "")
	t.Setenv("SENDER_PASSWORD", "")
	t.Setenv("EMAIL_RATE_LIMIT_RPS", "")
	t.Setenv("CATALOG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8086", cfg.App.Port)
	assert.Equal(t, StoreFile, cfg.Ledger.Store)
	assert.Equal(t, 24*time.Hour, cfg.Ledger.Retention())
	assert.Equal(t, "http://127.0.0.1:8086/run", cfg.Resume.URL())
	assert.Equal(t, "http://localhost:8086", cfg.Notification.ApprovalPublicURL)
	assert.Equal(t, 30*time.Second, cfg.Resume.Timeout())
	assert.True(t, cfg.SMTP.DemoMode())
	assert.Equal(t, 1.0, cfg.RateLimit.RequestsPerSecond)
	assert.Empty(t, cfg.Catalog.Path)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("LEDGER_STORE", "Redis")
	t.Setenv("RESUME_BASE_URL", "http://agent.internal:8080/")
	t.Setenv("RESUME_PATH", "resume")
	t.Setenv("RESUME_TIMEOUT_SECONDS", "5")
	t.Setenv("LEDGER_RETENTION_HOURS", "0")
	t.Setenv("EMAIL_RATE_LIMIT_RPS", "0.5")
	t.Setenv("EMAIL_RATE_LIMIT_BURST", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.App.Addr())
	assert.Equal(t, StoreRedis, cfg.Ledger.Store)
	assert.Equal(t, "http://agent.internal:8080/resume", cfg.Resume.URL())
	assert.Equal(t, 5*time.Second, cfg.Resume.Timeout())
	assert.Zero(t, cfg.Ledger.Retention())
	assert.Equal(t, 0.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("LEDGER_STORE", "postgres")

	_, err := Load()
	assert.Error(t, err)
}
