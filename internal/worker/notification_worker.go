package worker

import (
	"github.com/spec-kit/workshop-tickets/internal/events"
	"github.com/spec-kit/workshop-tickets/internal/service"
)

// StartEventWorkers attaches the event consumers to the dispatcher. Either
// consumer may be nil when its backing transport is not configured.
func StartEventWorkers(dispatcher events.Dispatcher, notifications *service.NotificationService, publisher *events.RedisPublisher) {
	if dispatcher == nil {
		return
	}
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if publisher != nil {
		publisher.Register(dispatcher)
	}
}
