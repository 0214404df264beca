package lifecycle

import (
	"fmt"

	"github.com/spec-kit/workshop-tickets/internal/domain"
)

type transitionKey struct {
	status domain.TicketStatus
	action domain.TicketAction
}

// Copy is kept apart from the legality table so either can change alone.
var descriptions = map[transitionKey]string{
	{domain.TicketStatusOpen, domain.TicketActionTake}:                 "technician takes the ticket and begins work",
	{domain.TicketStatusOpen, domain.TicketActionAssign}:               "ticket is assigned to a technician and work begins",
	{domain.TicketStatusOpen, domain.TicketActionCancel}:               "ticket is cancelled before any work started",
	{domain.TicketStatusInProgress, domain.TicketActionWaitForParts}:   "work is paused until the required parts arrive",
	{domain.TicketStatusInProgress, domain.TicketActionResolve}:        "repair is finished and the ticket is resolved",
	{domain.TicketStatusInProgress, domain.TicketActionCancel}:         "ticket is cancelled while work was in progress",
	{domain.TicketStatusWaitingForParts, domain.TicketActionResume}:    "parts have arrived and work resumes",
	{domain.TicketStatusWaitingForParts, domain.TicketActionCancel}:    "ticket is cancelled while waiting for parts",
	{domain.TicketStatusResolved, domain.TicketActionDeliver}:          "device is handed back to the customer and the ticket is closed",
	{domain.TicketStatusResolved, domain.TicketActionReopen}:           "resolved ticket is reopened for more work",
	{domain.TicketStatusResolved, domain.TicketActionCancel}:           "resolved ticket is cancelled before delivery",
	{domain.TicketStatusClosed, domain.TicketActionReopen}:             "closed ticket is reopened and work resumes",
	{domain.TicketStatusCancelled, domain.TicketActionReopen}:          "cancelled ticket is reopened and goes back to intake",
}

// DescribeTransition returns a human readable sentence for the pair, for audit
// entries and UI hints. Pairs without canned copy, legal or not, get a generic
// sentence. It never fails.
func DescribeTransition(current domain.TicketStatus, action domain.TicketAction) string {
	if text, ok := descriptions[transitionKey{current, action}]; ok {
		return text
	}
	return fmt.Sprintf("transition from %s via %s", current, action)
}
