package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_HOST", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("REDIS_EVENTS_CHANNEL", "")
	t.Setenv("POSTGRES_MAX_CONNS", "")
	t.Setenv("METRICS_ENABLED", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("NOTIFY_EMAIL_TO", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, "workshop:ticket-events", cfg.Redis.EventsChannel)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Empty(t, cfg.Redis.Addr, "redis is opt-in")
	assert.Equal(t, "noreply@example.com", cfg.Notification.EmailFrom)
	assert.Empty(t, cfg.Notification.EmailTo)
	assert.Equal(t, 5, cfg.Postgres.ConnectAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Postgres.ConnectBackoff)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "5")
	t.Setenv("NOTIFY_EMAIL_TO", "frontdesk@example.com")
	t.Setenv("POSTGRES_CONNECT_ATTEMPTS", "2")
	t.Setenv("POSTGRES_CONNECT_BACKOFF_MS", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.App.Addr())
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns, "unparsable ints fall back")
	assert.Equal(t, 5*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, "frontdesk@example.com", cfg.Notification.EmailTo)
	assert.Equal(t, 2, cfg.Postgres.ConnectAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Postgres.ConnectBackoff)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "primary")

	_, err := Load()
	assert.ErrorContains(t, err, "invalid REDIS_DB")
}

func TestRequestTimeoutDisabled(t *testing.T) {
	assert.Zero(t, AppConfig{RequestTimeoutSeconds: 0}.RequestTimeout())
}

func validConfig() Config {
	return Config{
		App:      AppConfig{Port: "8080"},
		Postgres: PostgresConfig{MaxConns: 10, MinConns: 2, ConnectAttempts: 1},
		Redis:    RedisConfig{EventsChannel: "workshop:ticket-events"},
		Logger:   LoggerConfig{Level: "info"},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.App.Port = "http"
	cfg.Logger.Level = "chatty"
	cfg.Postgres.MinConns = 20
	cfg.Postgres.ConnectAttempts = 0
	cfg.Redis.Addr = "127.0.0.1:6379"
	cfg.Redis.EventsChannel = " "
	cfg.Notification.WebhookURL = "hooks.example.com/t"
	cfg.Notification.EmailTo = "frontdesk"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`invalid APP_PORT "http"`,
		`invalid LOG_LEVEL "chatty"`,
		"POSTGRES_MIN_CONNS 20 exceeds POSTGRES_MAX_CONNS 10",
		"POSTGRES_CONNECT_ATTEMPTS must be at least 1",
		"REDIS_EVENTS_CHANNEL required",
		`invalid NOTIFY_WEBHOOK_URL "hooks.example.com/t"`,
		`invalid NOTIFY_EMAIL_TO "frontdesk"`,
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("APP_PORT", "99999")

	_, err := Load()
	assert.ErrorContains(t, err, "invalid APP_PORT")
}
