package dto

import (
	"time"

	"github.com/spec-kit/workshop-tickets/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ApplyActionRequest asks for one lifecycle action on a ticket.
type ApplyActionRequest struct {
	Action     string  `json:"action"`
	AssigneeID *string `json:"assignee_id,omitempty"`
	Comment    string  `json:"comment,omitempty"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID          string              `json:"id"`
	ExternalKey string              `json:"external_key"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	AssigneeID  *string             `json:"assignee_id"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ClosedAt    *time.Time          `json:"closed_at"`
}

// TicketDetailResponse is a ticket with what can be done next.
type TicketDetailResponse struct {
	TicketResponse
	ValidActions []ActionResponse `json:"valid_actions"`
}

// ActionResponse describes an action available from the current status.
type ActionResponse struct {
	Action      domain.TicketAction `json:"action"`
	NextStatus  domain.TicketStatus `json:"next_status"`
	Description string              `json:"description"`
}

// TransitionResponse is returned after an applied action.
type TransitionResponse struct {
	Ticket       TicketResponse        `json:"ticket"`
	Transition   TicketHistoryResponse `json:"transition"`
	ValidActions []ActionResponse      `json:"valid_actions"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID          string              `json:"id"`
	ActorID     *string             `json:"actor_id"`
	Action      domain.TicketAction `json:"action"`
	FromStatus  domain.TicketStatus `json:"from_status"`
	ToStatus    domain.TicketStatus `json:"to_status"`
	Description string              `json:"description"`
	Comment     string              `json:"comment,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// LifecycleResponse publishes the full transition table.
type LifecycleResponse struct {
	Statuses    []domain.TicketStatus `json:"statuses"`
	Actions     []domain.TicketAction `json:"actions"`
	Transitions []TransitionRule      `json:"transitions"`
}

// TransitionRule is one legal edge.
type TransitionRule struct {
	From        domain.TicketStatus `json:"from"`
	Action      domain.TicketAction `json:"action"`
	To          domain.TicketStatus `json:"to"`
	Description string              `json:"description"`
}
