package domain

import "time"

// TicketHistory is an immutable audit entry written for every status transition.
type TicketHistory struct {
	ID          string
	TenantID    string
	TicketID    string
	ActorID     *string
	Action      TicketAction
	FromStatus  TicketStatus
	ToStatus    TicketStatus
	Description string
	Comment     string
	CreatedAt   time.Time
}
