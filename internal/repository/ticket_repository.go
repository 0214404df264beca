package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/workshop-tickets/internal/domain"
)

// TicketFilter captures list parameters. TenantID is mandatory.
type TicketFilter struct {
	TenantID   string
	Statuses   []domain.TicketStatus
	AssigneeID *string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence. Every lookup is tenant scoped.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// UpdateStatus writes status, assignee and closed_at only if the stored
	// status still equals expected; otherwise it returns ErrStaleStatus.
	UpdateStatus(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error
}

const ticketColumns = `id, tenant_id, external_key, title, description, status, assignee_id, created_at, updated_at, closed_at`

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (tenant_id, external_key, title, description, status, assignee_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.TenantID,
		ticket.ExternalKey,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.AssigneeID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE tenant_id=$1 AND id=$2`
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	const query = `
        UPDATE tickets SET status=$1, assignee_id=$2, closed_at=$3, updated_at=NOW()
        WHERE tenant_id=$4 AND id=$5 AND status=$6
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.Status,
		ticket.AssigneeID,
		ticket.ClosedAt,
		ticket.TenantID,
		ticket.ID,
		expected,
	).Scan(&ticket.UpdatedAt)
	if err == pgx.ErrNoRows {
		return ErrStaleStatus
	}
	return err
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	args := []any{filter.TenantID}
	clauses := []string{"tenant_id=$1"}

	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC, id LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TenantID,
		&ticket.ExternalKey,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.AssigneeID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
