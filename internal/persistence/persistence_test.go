package persistence

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/workshop-tickets/internal/config"
)

func TestMigrationsAreOrdered(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.Equal(t, []string{
		"migrations/001_tickets.sql",
		"migrations/002_ticket_history.sql",
	}, names)

	tickets, err := migrationFiles.ReadFile(names[0])
	require.NoError(t, err)
	for _, status := range []string{"OPEN", "IN_PROGRESS", "WAITING_FOR_PARTS", "RESOLVED", "CLOSED", "CANCELLED"} {
		assert.True(t, strings.Contains(string(tickets), "'"+status+"'"), "status %s missing from check constraint", status)
	}
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}

func TestPostgresWithoutDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, pg.PoolHandle())
	assert.Error(t, pg.Ping(context.Background()))
	pg.Close()
}

func TestPostgresRejectsBadDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), config.PostgresConfig{DSN: "postgres://%zz"}, zap.NewNop())
	assert.ErrorContains(t, err, "parse POSTGRES_DSN")
}

func TestPoolConfigAppliesTuning(t *testing.T) {
	cfg, err := poolConfig(config.PostgresConfig{
		DSN:            "postgres://workshop@localhost:5432/tickets",
		MaxConns:       7,
		MinConns:       3,
		ConnMaxIdleSec: 15,
		ConnMaxLifeSec: 120,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(7), cfg.MaxConns)
	assert.Equal(t, int32(3), cfg.MinConns)
	assert.Equal(t, 15*time.Second, cfg.MaxConnIdleTime)
	assert.Equal(t, 2*time.Minute, cfg.MaxConnLifetime)
}

func TestPingWithRetry(t *testing.T) {
	refused := errors.New("connection refused")

	calls := 0
	err := pingWithRetry(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return refused
		}
		return nil
	}, 5, time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = pingWithRetry(context.Background(), func(context.Context) error {
		calls++
		return refused
	}, 2, time.Millisecond, zap.NewNop())
	assert.ErrorIs(t, err, refused)
	assert.ErrorContains(t, err, "after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestPingWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := pingWithRetry(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("connection refused")
	}, 5, time.Hour, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRedisDisabledWithoutAddr(t *testing.T) {
	r := NewRedis(context.Background(), config.RedisConfig{}, zap.NewNop())
	assert.False(t, r.Enabled())
	assert.ErrorIs(t, r.Ping(context.Background()), errRedisNotConfigured)
	assert.ErrorIs(t, r.Publish(context.Background(), "ch", []byte("{}")), errRedisNotConfigured)
	r.Close()

	var nilRedis *Redis
	assert.False(t, nilRedis.Enabled())
	nilRedis.Close()
}
