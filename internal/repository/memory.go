package repository

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/workshop-tickets/internal/domain"
)

var (
	_ Transactor              = (*MemoryStore)(nil)
	_ TicketRepository        = memoryTickets{}
	_ TicketHistoryRepository = memoryHistory{}
)

// MemoryStore keeps tickets and their history in process. It backs the
// service when no database is configured and in tests. Missing rows are
// reported with pgx.ErrNoRows so callers see the same errors as with postgres.
type MemoryStore struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
	history []domain.TicketHistory
	now     func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets: make(map[string]domain.Ticket),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Tickets returns a ticket repository over the store.
func (m *MemoryStore) Tickets() TicketRepository { return memoryTickets{store: m} }

// History returns a history repository over the store.
func (m *MemoryStore) History() TicketHistoryRepository { return memoryHistory{store: m} }

// WithinTx runs fn under the store lock and restores the previous state if fn fails.
func (m *MemoryStore) WithinTx(_ context.Context, fn func(TicketRepository, TicketHistoryRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tickets := maps.Clone(m.tickets)
	history := slices.Clone(m.history)
	if err := fn(memoryTickets{store: m, held: true}, memoryHistory{store: m, held: true}); err != nil {
		m.tickets = tickets
		m.history = history
		return err
	}
	return nil
}

func (m *MemoryStore) lock(held bool) func() {
	if held {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

type memoryTickets struct {
	store *MemoryStore
	held  bool
}

func (r memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	defer r.store.lock(r.held)()

	now := r.store.now()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.store.tickets[ticket.ID] = *ticket
	return nil
}

func (r memoryTickets) GetByID(_ context.Context, tenantID, id string) (*domain.Ticket, error) {
	defer r.store.lock(r.held)()

	ticket, ok := r.store.tickets[id]
	if !ok || ticket.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r memoryTickets) UpdateStatus(_ context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	defer r.store.lock(r.held)()

	stored, ok := r.store.tickets[ticket.ID]
	if !ok || stored.TenantID != ticket.TenantID || stored.Status != expected {
		return ErrStaleStatus
	}
	stored.Status = ticket.Status
	stored.AssigneeID = ticket.AssigneeID
	stored.ClosedAt = ticket.ClosedAt
	stored.UpdatedAt = r.store.now()
	r.store.tickets[ticket.ID] = stored
	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r memoryTickets) ListWithFilter(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	defer r.store.lock(r.held)()

	var result []domain.Ticket
	for _, ticket := range r.store.tickets {
		if ticket.TenantID != filter.TenantID {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, ticket.Status) {
			continue
		}
		result = append(result, ticket)
	}
	slices.SortFunc(result, func(a, b domain.Ticket) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return page(result, filter.Limit, 20, filter.Offset), nil
}

type memoryHistory struct {
	store *MemoryStore
	held  bool
}

func (r memoryHistory) Create(_ context.Context, history *domain.TicketHistory) error {
	defer r.store.lock(r.held)()

	history.ID = uuid.NewString()
	history.CreatedAt = r.store.now()
	r.store.history = append(r.store.history, *history)
	return nil
}

func (r memoryHistory) ListByTicket(_ context.Context, tenantID, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	defer r.store.lock(r.held)()

	var result []domain.TicketHistory
	for _, entry := range r.store.history {
		if entry.TenantID == tenantID && entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return page(result, limit, 50, offset), nil
}

func page[T any](items []T, limit, defaultLimit, offset int) []T {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

