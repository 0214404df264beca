package repository

import (
	"context"

	"github.com/spec-kit/workshop-tickets/internal/domain"
)

// TicketHistoryRepository stores transition audit entries.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	ListByTicket(ctx context.Context, tenantID, ticketID string, limit, offset int) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	db DBTX
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(db DBTX) TicketHistoryRepository {
	return &ticketHistoryRepository{db: db}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (tenant_id, ticket_id, actor_id, action, from_status, to_status, description, comment)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		history.TenantID,
		history.TicketID,
		history.ActorID,
		history.Action,
		history.FromStatus,
		history.ToStatus,
		history.Description,
		history.Comment,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, tenantID, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, tenant_id, ticket_id, actor_id, action, from_status, to_status, description, comment, created_at
        FROM ticket_history WHERE tenant_id=$1 AND ticket_id=$2
        ORDER BY created_at ASC, id LIMIT $3 OFFSET $4`
	rows, err := r.db.Query(ctx, query, tenantID, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketHistory
	for rows.Next() {
		var history domain.TicketHistory
		if err := rows.Scan(
			&history.ID,
			&history.TenantID,
			&history.TicketID,
			&history.ActorID,
			&history.Action,
			&history.FromStatus,
			&history.ToStatus,
			&history.Description,
			&history.Comment,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
