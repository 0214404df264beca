package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/workshop-tickets/internal/domain"
	"github.com/spec-kit/workshop-tickets/internal/events"
	"github.com/spec-kit/workshop-tickets/internal/lifecycle"
	"github.com/spec-kit/workshop-tickets/internal/observability"
	"github.com/spec-kit/workshop-tickets/internal/repository"
	apperrors "github.com/spec-kit/workshop-tickets/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	tx         repository.Transactor
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Transactor  repository.Transactor
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	ActorID     *string
	Title       string
	Description string
}

// TicketListFilter describes listing filters within one tenant.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	AssigneeID *string
	Limit      int
	Offset     int
}

// ActionInput is a request to move a ticket through its lifecycle.
type ActionInput struct {
	TicketID   string
	Action     domain.TicketAction
	ActorID    *string
	AssigneeID *string
	Comment    string
}

// TransitionResult is the outcome of an applied action.
type TransitionResult struct {
	Ticket *domain.Ticket
	Entry  *domain.TicketHistory
}

// AvailableAction is an action legal from a ticket's current status.
type AvailableAction struct {
	Action      domain.TicketAction
	NextStatus  domain.TicketStatus
	Description string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		tx:         deps.Transactor,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateTicket opens a new ticket for the tenant.
func (s *TicketService) CreateTicket(ctx context.Context, tenantID string, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}

	ticket := &domain.Ticket{
		TenantID:    tenantID,
		ExternalKey: generateTicketKey(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TenantID: tenantID,
		TicketID: ticket.ID,
		ActorID:  input.ActorID,
		Payload: events.TicketCreatedPayload{
			ExternalKey: ticket.ExternalKey,
			Title:       ticket.Title,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket within the tenant.
func (s *TicketService) GetTicket(ctx context.Context, tenantID, ticketID string) (*domain.Ticket, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	// ids are postgres UUIDs; anything else cannot name a ticket
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	ticket, err := s.tickets.GetByID(ctx, tenantID, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns a page of the tenant's tickets.
func (s *TicketService) ListTickets(ctx context.Context, tenantID string, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		TenantID:   tenantID,
		Statuses:   filter.Statuses,
		AssigneeID: filter.AssigneeID,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ValidActions loads the ticket and lists what can be done with it next.
func (s *TicketService) ValidActions(ctx context.Context, tenantID, ticketID string) (*domain.Ticket, []AvailableAction, error) {
	ticket, err := s.GetTicket(ctx, tenantID, ticketID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, AvailableActions(ticket.Status), nil
}

// AvailableActions describes every action legal from status.
func AvailableActions(status domain.TicketStatus) []AvailableAction {
	actions := lifecycle.ValidActions(status)
	result := make([]AvailableAction, 0, len(actions))
	for _, action := range actions {
		next, err := lifecycle.NextStatus(status, action)
		if err != nil {
			continue
		}
		result = append(result, AvailableAction{
			Action:      action,
			NextStatus:  next,
			Description: lifecycle.DescribeTransition(status, action),
		})
	}
	return result
}

// ApplyAction runs one lifecycle transition: the status change and its audit
// entry are written together, and a rejected action leaves the ticket as it was.
func (s *TicketService) ApplyAction(ctx context.Context, tenantID string, input ActionInput) (*TransitionResult, error) {
	if !input.Action.Valid() {
		return nil, apperrors.NewValidationError("unknown action", map[string]any{"action": input.Action})
	}
	ticket, err := s.GetTicket(ctx, tenantID, input.TicketID)
	if err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	next, err := lifecycle.NextStatus(oldStatus, input.Action)
	if err != nil {
		s.metrics.RecordRejectedTransition(oldStatus, input.Action)
		s.logger.Info("ticket action rejected",
			zap.String("tenant_id", tenantID),
			zap.String("ticket_id", ticket.ID),
			zap.String("status", string(oldStatus)),
			zap.String("action", string(input.Action)))
		return nil, err
	}

	updated := *ticket
	updated.Status = next
	if err := s.attribute(&updated, input); err != nil {
		return nil, err
	}

	entry := &domain.TicketHistory{
		TenantID:    tenantID,
		TicketID:    ticket.ID,
		ActorID:     input.ActorID,
		Action:      input.Action,
		FromStatus:  oldStatus,
		ToStatus:    next,
		Description: lifecycle.DescribeTransition(oldStatus, input.Action),
		Comment:     strings.TrimSpace(input.Comment),
	}

	err = s.tx.WithinTx(ctx, func(tickets repository.TicketRepository, history repository.TicketHistoryRepository) error {
		if err := tickets.UpdateStatus(ctx, &updated, oldStatus); err != nil {
			return err
		}
		return history.Create(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, apperrors.NewConflict("ticket status changed, reload and retry", map[string]any{
				"ticket_id": ticket.ID,
				"status":    oldStatus,
			})
		}
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordTransition(oldStatus, input.Action, next)
	s.logger.Info("ticket transitioned",
		zap.String("tenant_id", tenantID),
		zap.String("ticket_id", ticket.ID),
		zap.String("from", string(oldStatus)),
		zap.String("action", string(input.Action)),
		zap.String("to", string(next)))

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TenantID: tenantID,
		TicketID: ticket.ID,
		ActorID:  input.ActorID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus:   oldStatus,
			NewStatus:   next,
			Action:      input.Action,
			Description: entry.Description,
			AssigneeID:  updated.AssigneeID,
			Comment:     entry.Comment,
		},
	})
	return &TransitionResult{Ticket: &updated, Entry: entry}, nil
}

// ListHistory returns the transition audit trail of a ticket.
func (s *TicketService) ListHistory(ctx context.Context, tenantID, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if _, err := s.GetTicket(ctx, tenantID, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, tenantID, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// attribute records who drove the transition. The lifecycle only decides the
// status; assignee and close time are workflow concerns.
func (s *TicketService) attribute(ticket *domain.Ticket, input ActionInput) error {
	switch input.Action {
	case domain.TicketActionTake:
		if input.ActorID == nil || *input.ActorID == "" {
			return apperrors.NewValidationError("actor required to take a ticket", nil)
		}
		actor := *input.ActorID
		ticket.AssigneeID = &actor
	case domain.TicketActionAssign:
		if input.AssigneeID == nil || strings.TrimSpace(*input.AssigneeID) == "" {
			return apperrors.NewValidationError("assignee_id required to assign a ticket", nil)
		}
		assignee := strings.TrimSpace(*input.AssigneeID)
		ticket.AssigneeID = &assignee
	}

	switch ticket.Status {
	case domain.TicketStatusClosed:
		now := s.now()
		ticket.ClosedAt = &now
	case domain.TicketStatusOpen:
		// back at intake: nobody owns it until it is taken or assigned again
		ticket.AssigneeID = nil
		ticket.ClosedAt = nil
	default:
		ticket.ClosedAt = nil
	}
	return nil
}

func requireTenant(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return apperrors.NewValidationError("tenant required", nil)
	}
	return nil
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
