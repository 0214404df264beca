package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/workshop-tickets/internal/config"
	"github.com/spec-kit/workshop-tickets/internal/domain"
	"github.com/spec-kit/workshop-tickets/internal/events"
)

// NotificationChannel identifies where a notification goes.
type NotificationChannel string

const (
	ChannelEmail   NotificationChannel = "email"
	ChannelWebhook NotificationChannel = "webhook"
)

// Notification is one outgoing message derived from a ticket event. To is the
// recipient address for email and the endpoint URL for webhooks; From is only
// set on email.
type Notification struct {
	Channel  NotificationChannel
	From     string
	To       string
	Subject  string
	TenantID string
	TicketID string
	Event    events.EventType
}

// NotificationSender delivers a notification.
type NotificationSender func(ctx context.Context, n Notification) error

// NotificationService turns ticket events into customer and integration notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	send       NotificationSender
}

// NewNotificationService creates the service. Deliveries are logged until a
// real transport is configured with WithSender.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
	n.send = n.logDelivery
	return n
}

// WithSender replaces the delivery function.
func (n *NotificationService) WithSender(send NotificationSender) *NotificationService {
	if send != nil {
		n.send = send
	}
	return n
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	subject := "ticket received"
	if payload, ok := event.Payload.(events.TicketCreatedPayload); ok {
		subject = fmt.Sprintf("%s received: %s", payload.ExternalKey, payload.Title)
	}
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.String("tenant_id", event.TenantID))
	return n.deliver(ctx, event, subject, true)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		n.logger.Warn("TicketStatusChanged without payload", zap.String("ticket_id", event.TicketID))
		return nil
	}
	n.logger.Info("TicketStatusChanged",
		zap.String("ticket_id", event.TicketID),
		zap.String("from", string(payload.OldStatus)),
		zap.String("to", string(payload.NewStatus)))

	subject := fmt.Sprintf("ticket %s: %s", strings.ToLower(string(payload.NewStatus)), payload.Description)
	return n.deliver(ctx, event, subject, customerFacing(payload.NewStatus))
}

// customerFacing reports whether the customer hears about a move into status.
func customerFacing(status domain.TicketStatus) bool {
	switch status {
	case domain.TicketStatusWaitingForParts, domain.TicketStatusResolved,
		domain.TicketStatusClosed, domain.TicketStatusCancelled:
		return true
	}
	return false
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, subject string, email bool) error {
	base := Notification{
		Subject:  subject,
		TenantID: event.TenantID,
		TicketID: event.TicketID,
		Event:    event.Type,
	}
	if url := strings.TrimSpace(n.cfg.WebhookURL); url != "" {
		hook := base
		hook.Channel = ChannelWebhook
		hook.To = url
		if err := n.send(ctx, hook); err != nil {
			return fmt.Errorf("webhook notification: %w", err)
		}
	}
	from, to := strings.TrimSpace(n.cfg.EmailFrom), strings.TrimSpace(n.cfg.EmailTo)
	if email && from != "" && to != "" {
		mail := base
		mail.Channel = ChannelEmail
		mail.From = from
		mail.To = to
		if err := n.send(ctx, mail); err != nil {
			return fmt.Errorf("email notification: %w", err)
		}
	}
	return nil
}

func (n *NotificationService) logDelivery(_ context.Context, note Notification) error {
	n.logger.Debug("notification",
		zap.String("channel", string(note.Channel)),
		zap.String("from", note.From),
		zap.String("to", note.To),
		zap.String("subject", note.Subject),
		zap.String("ticket_id", note.TicketID),
		zap.String("event_type", string(note.Event)))
	return nil
}
