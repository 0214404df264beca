package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/workshop-tickets/internal/config"
	"github.com/spec-kit/workshop-tickets/internal/events"
	"github.com/spec-kit/workshop-tickets/internal/service"
)

type channelRecorder struct {
	published int
}

func (c *channelRecorder) Publish(context.Context, string, []byte) error {
	c.published++
	return nil
}

func TestStartEventWorkersAttachesConsumers(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	recorder := &channelRecorder{}
	var notified int
	notifications := service.NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{WebhookURL: "https://hooks.example.com"}).
		WithSender(func(context.Context, service.Notification) error {
			notified++
			return nil
		})

	StartEventWorkers(dispatcher, notifications, events.NewRedisPublisher(recorder, "ch", zap.NewNop()))

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketCreated}))
	assert.Equal(t, 1, recorder.published)
	assert.Equal(t, 1, notified)
}

func TestStartEventWorkersToleratesMissingConsumers(t *testing.T) {
	StartEventWorkers(nil, nil, nil)
	StartEventWorkers(events.NewInMemoryDispatcher(), nil, nil)
}
