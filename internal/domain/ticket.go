package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for repair tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "OPEN"
	TicketStatusInProgress      TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingForParts TicketStatus = "WAITING_FOR_PARTS"
	TicketStatusResolved        TicketStatus = "RESOLVED"
	TicketStatusClosed          TicketStatus = "CLOSED"
	TicketStatusCancelled       TicketStatus = "CANCELLED"
)

var ticketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusWaitingForParts,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusCancelled,
}

// AllTicketStatuses returns every status in declaration order.
func AllTicketStatuses() []TicketStatus {
	return append([]TicketStatus(nil), ticketStatuses...)
}

// Valid reports whether s is one of the declared statuses.
func (s TicketStatus) Valid() bool {
	for _, candidate := range ticketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseTicketStatus decodes untrusted input into a TicketStatus.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	status := TicketStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown ticket status %q", raw)
	}
	return status, nil
}

// TicketAction is a caller's declared intent on a ticket. It drives a status
// transition and is never stored on the ticket itself.
type TicketAction string

const (
	TicketActionTake         TicketAction = "take"
	TicketActionAssign       TicketAction = "assign"
	TicketActionStart        TicketAction = "start"
	TicketActionWaitForParts TicketAction = "wait_for_parts"
	TicketActionResume       TicketAction = "resume"
	TicketActionResolve      TicketAction = "resolve"
	TicketActionDeliver      TicketAction = "deliver"
	TicketActionCancel       TicketAction = "cancel"
	TicketActionReopen       TicketAction = "reopen"
)

var ticketActions = []TicketAction{
	TicketActionTake,
	TicketActionAssign,
	TicketActionStart,
	TicketActionWaitForParts,
	TicketActionResume,
	TicketActionResolve,
	TicketActionDeliver,
	TicketActionCancel,
	TicketActionReopen,
}

// AllTicketActions returns every action in declaration order.
func AllTicketActions() []TicketAction {
	return append([]TicketAction(nil), ticketActions...)
}

// Valid reports whether a is one of the declared actions.
func (a TicketAction) Valid() bool {
	for _, candidate := range ticketActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseTicketAction decodes untrusted input into a TicketAction.
func ParseTicketAction(raw string) (TicketAction, error) {
	action := TicketAction(strings.ToLower(strings.TrimSpace(raw)))
	if !action.Valid() {
		return "", fmt.Errorf("unknown ticket action %q", raw)
	}
	return action, nil
}

// Ticket is a repair job owned by a single tenant.
type Ticket struct {
	ID          string
	TenantID    string
	ExternalKey string
	Title       string
	Description string
	Status      TicketStatus
	AssigneeID  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}
