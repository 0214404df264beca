package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/workshop-tickets/internal/domain"
	"github.com/spec-kit/workshop-tickets/internal/events"
	"github.com/spec-kit/workshop-tickets/internal/lifecycle"
	"github.com/spec-kit/workshop-tickets/internal/observability"
	"github.com/spec-kit/workshop-tickets/internal/repository"
	apperrors "github.com/spec-kit/workshop-tickets/pkg/util/errorutil"
)

const tenant = "tenant-a"

type capturedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturedEvents) handle(_ context.Context, event events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

type fixture struct {
	svc      *TicketService
	store    *repository.MemoryStore
	metrics  *observability.Metrics
	captured *capturedEvents
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	captured := &capturedEvents{}
	dispatcher.Subscribe(events.EventTicketCreated, captured.handle)
	dispatcher.Subscribe(events.EventTicketStatusChanged, captured.handle)

	svc := NewTicketService(TicketDependencies{
		TicketRepo:  store.Tickets(),
		HistoryRepo: store.History(),
		Transactor:  store,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      zap.NewNop(),
	})
	return &fixture{svc: svc, store: store, metrics: metrics, captured: captured}
}

func (f *fixture) create(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.CreateTicket(context.Background(), tenant, TicketCreateInput{Title: "  Laptop will not boot "})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) apply(t *testing.T, ticketID string, action domain.TicketAction, actor string) *TransitionResult {
	t.Helper()
	result, err := f.svc.ApplyAction(context.Background(), tenant, ActionInput{
		TicketID: ticketID,
		Action:   action,
		ActorID:  &actor,
	})
	require.NoError(t, err)
	return result
}

func ptr(s string) *string { return &s }

func TestCreateTicket(t *testing.T) {
	f := newFixture(t)
	ticket := f.create(t)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, "Laptop will not boot", ticket.Title)
	assert.Regexp(t, `^TCK-[0-9A-F]{8}$`, ticket.ExternalKey)
	assert.Nil(t, ticket.AssigneeID)

	require.Len(t, f.captured.events, 1)
	assert.Equal(t, events.EventTicketCreated, f.captured.events[0].Type)
	assert.Equal(t, tenant, f.captured.events[0].TenantID)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateTicket(context.Background(), tenant, TicketCreateInput{Title: "   "})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	_, err = f.svc.CreateTicket(context.Background(), "", TicketCreateInput{Title: "x"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestRepairRoundTrip(t *testing.T) {
	f := newFixture(t)
	ticket := f.create(t)
	closedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return closedAt }

	steps := []struct {
		action domain.TicketAction
		want   domain.TicketStatus
	}{
		{domain.TicketActionTake, domain.TicketStatusInProgress},
		{domain.TicketActionWaitForParts, domain.TicketStatusWaitingForParts},
		{domain.TicketActionResume, domain.TicketStatusInProgress},
		{domain.TicketActionResolve, domain.TicketStatusResolved},
		{domain.TicketActionDeliver, domain.TicketStatusClosed},
	}
	var last *TransitionResult
	for _, step := range steps {
		last = f.apply(t, ticket.ID, step.action, "tech-7")
		assert.Equal(t, step.want, last.Ticket.Status, "after %s", step.action)
	}

	require.NotNil(t, last.Ticket.ClosedAt)
	assert.Equal(t, closedAt, *last.Ticket.ClosedAt)
	require.NotNil(t, last.Ticket.AssigneeID)
	assert.Equal(t, "tech-7", *last.Ticket.AssigneeID)

	history, err := f.svc.ListHistory(context.Background(), tenant, ticket.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, len(steps))
	assert.Equal(t, domain.TicketStatusOpen, history[0].FromStatus)
	assert.Equal(t, "technician takes the ticket and begins work", history[0].Description)
	assert.Equal(t, domain.TicketStatusClosed, history[len(history)-1].ToStatus)

	series, err := testutil.GatherAndCount(f.metrics.Registry(), "workshop_tickets_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, len(steps), series)
	assert.Len(t, f.captured.events, 1+len(steps))
}

func TestApplyActionRejectsIllegalMove(t *testing.T) {
	f := newFixture(t)
	ticket := f.create(t)

	_, err := f.svc.ApplyAction(context.Background(), tenant, ActionInput{TicketID: ticket.ID, Action: domain.TicketActionResolve})
	require.Error(t, err)

	var invalid *lifecycle.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.TicketStatusOpen, invalid.Status)
	assert.Equal(t, domain.TicketActionResolve, invalid.Action)
	assert.Equal(t, 409, apperrors.ToDomainError(err).HTTPStatus)

	got, err := f.svc.GetTicket(context.Background(), tenant, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, got.Status)

	history, err := f.svc.ListHistory(context.Background(), tenant, ticket.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
	series, err := testutil.GatherAndCount(f.metrics.Registry(), "workshop_tickets_transitions_rejected_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestApplyActionStartIsNeverAccepted(t *testing.T) {
	f := newFixture(t)
	ticket := f.create(t)

	_, err := f.svc.ApplyAction(context.Background(), tenant, ActionInput{TicketID: ticket.ID, Action: domain.TicketActionStart, ActorID: ptr("tech")})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestApplyActionUnknownAction(t *testing.T) {
	f := newFixture(t)
	ticket := f.create(t)

	_, err := f.svc.ApplyAction(context.Background(), tenant, ActionInput{TicketID: ticket.ID, Action: "teleport"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestApplyActionNotFoundAcrossTenants(t *testing.T) {
	f := newFixture(t)
	ticket := f.create(t)

	_, err := f.svc.ApplyAction(context.Background(), "tenant-b", ActionInput{TicketID: ticket.ID, Action: domain.TicketActionCancel})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestMalformedTicketIDIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.create(t)

	for _, id := range []string{"abc", "", "TCK-1234ABCD", "123e4567-e89b-12d3-a456"} {
		_, err := f.svc.GetTicket(context.Background(), tenant, id)
		require.Error(t, err, id)
		assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code, id)

		_, err = f.svc.ApplyAction(context.Background(), tenant, ActionInput{TicketID: id, Action: domain.TicketActionCancel, ActorID: ptr("clerk")})
		require.Error(t, err, id)
		assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code, id)
	}
}

func TestAssignRequiresAssignee(t *testing.T) {
	f := newFixture(t)
	ticket := f.create(t)

	_, err := f.svc.ApplyAction(context.Background(), tenant, ActionInput{TicketID: ticket.ID, Action: domain.TicketActionAssign})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	result, err := f.svc.ApplyAction(context.Background(), tenant, ActionInput{
		TicketID:   ticket.ID,
		Action:     domain.TicketActionAssign,
		ActorID:    ptr("dispatcher-1"),
		AssigneeID: ptr(" tech-3 "),
		Comment:    "bench 2",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, result.Ticket.Status)
	assert.Equal(t, "tech-3", *result.Ticket.AssigneeID)
	assert.Equal(t, "bench 2", result.Entry.Comment)
	assert.Equal(t, "dispatcher-1", *result.Entry.ActorID)
}

func TestTakeRequiresActor(t *testing.T) {
	f := newFixture(t)
	ticket := f.create(t)

	_, err := f.svc.ApplyAction(context.Background(), tenant, ActionInput{TicketID: ticket.ID, Action: domain.TicketActionTake})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestReopenPaths(t *testing.T) {
	f := newFixture(t)

	closed := f.create(t)
	for _, action := range []domain.TicketAction{domain.TicketActionTake, domain.TicketActionResolve, domain.TicketActionDeliver} {
		f.apply(t, closed.ID, action, "tech-1")
	}
	reopened := f.apply(t, closed.ID, domain.TicketActionReopen, "tech-1")
	assert.Equal(t, domain.TicketStatusInProgress, reopened.Ticket.Status)
	assert.Nil(t, reopened.Ticket.ClosedAt)
	assert.Equal(t, "tech-1", *reopened.Ticket.AssigneeID)

	cancelled := f.create(t)
	f.apply(t, cancelled.ID, domain.TicketActionTake, "tech-2")
	f.apply(t, cancelled.ID, domain.TicketActionCancel, "tech-2")
	back := f.apply(t, cancelled.ID, domain.TicketActionReopen, "tech-2")
	assert.Equal(t, domain.TicketStatusOpen, back.Ticket.Status)
	assert.Nil(t, back.Ticket.AssigneeID)
}

func TestValidActions(t *testing.T) {
	f := newFixture(t)
	ticket := f.create(t)

	got, actions, err := f.svc.ValidActions(context.Background(), tenant, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)

	names := make([]domain.TicketAction, 0, len(actions))
	for _, a := range actions {
		names = append(names, a.Action)
		assert.NotEmpty(t, a.Description)
	}
	assert.Equal(t, lifecycle.ValidActions(domain.TicketStatusOpen), names)
	assert.Equal(t, domain.TicketStatusInProgress, actions[0].NextStatus)
}

func TestListTicketsFilters(t *testing.T) {
	f := newFixture(t)
	a := f.create(t)
	f.create(t)
	f.apply(t, a.ID, domain.TicketActionTake, "tech-9")

	inProgress, err := f.svc.ListTickets(context.Background(), tenant, TicketListFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusInProgress},
	})
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	assert.Equal(t, a.ID, inProgress[0].ID)

	mine, err := f.svc.ListTickets(context.Background(), tenant, TicketListFilter{AssigneeID: ptr("tech-9")})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := f.svc.ListTickets(context.Background(), tenant, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// racingTransactor moves the ticket underneath the caller before running the unit of work.
type racingTransactor struct {
	store *repository.MemoryStore
}

func (r racingTransactor) WithinTx(ctx context.Context, fn func(repository.TicketRepository, repository.TicketHistoryRepository) error) error {
	tickets := r.store.Tickets()
	list, err := tickets.ListWithFilter(ctx, repository.TicketFilter{TenantID: tenant})
	if err != nil {
		return err
	}
	for i := range list {
		moved := list[i]
		expected := moved.Status
		moved.Status = domain.TicketStatusCancelled
		if err := tickets.UpdateStatus(ctx, &moved, expected); err != nil {
			return err
		}
	}
	return r.store.WithinTx(ctx, fn)
}

func TestApplyActionStaleStatusIsConflict(t *testing.T) {
	f := newFixture(t)
	ticket := f.create(t)
	f.svc.tx = racingTransactor{store: f.store}

	_, err := f.svc.ApplyAction(context.Background(), tenant, ActionInput{TicketID: ticket.ID, Action: domain.TicketActionTake, ActorID: ptr("tech")})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	history, err := f.svc.ListHistory(context.Background(), tenant, ticket.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestEventHandlerFailureDoesNotFailAction(t *testing.T) {
	f := newFixture(t)
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventTicketStatusChanged, func(context.Context, events.Event) error {
		return errors.New("downstream unavailable")
	})
	f.svc.dispatcher = dispatcher
	ticket := f.create(t)

	result := f.apply(t, ticket.ID, domain.TicketActionCancel, "clerk")
	assert.Equal(t, domain.TicketStatusCancelled, result.Ticket.Status)
}

func TestStatusChangedPayload(t *testing.T) {
	f := newFixture(t)
	ticket := f.create(t)
	f.apply(t, ticket.ID, domain.TicketActionTake, "tech-4")

	last := f.captured.events[len(f.captured.events)-1]
	assert.Equal(t, events.EventTicketStatusChanged, last.Type)
	assert.NotEmpty(t, last.ID)
	assert.False(t, last.Timestamp.IsZero())

	payload, ok := last.Payload.(events.TicketStatusChangedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.TicketStatusOpen, payload.OldStatus)
	assert.Equal(t, domain.TicketStatusInProgress, payload.NewStatus)
	assert.Equal(t, domain.TicketActionTake, payload.Action)
	assert.Equal(t, "tech-4", *payload.AssigneeID)
}
