// Package lifecycle holds the repair ticket state machine: which actions are
// legal from each status and where they lead. The table is fixed at compile
// time and every function here is pure, so callers may use it from any number
// of goroutines without locking.
package lifecycle

import "github.com/spec-kit/workshop-tickets/internal/domain"

type edge struct {
	action domain.TicketAction
	next   domain.TicketStatus
}

// Edges are listed per status in the order ValidActions reports them.
// TicketActionStart has no edge on purpose; see DESIGN.md.
var transitions = map[domain.TicketStatus][]edge{
	domain.TicketStatusOpen: {
		{domain.TicketActionTake, domain.TicketStatusInProgress},
		{domain.TicketActionAssign, domain.TicketStatusInProgress},
		{domain.TicketActionCancel, domain.TicketStatusCancelled},
	},
	domain.TicketStatusInProgress: {
		{domain.TicketActionWaitForParts, domain.TicketStatusWaitingForParts},
		{domain.TicketActionResolve, domain.TicketStatusResolved},
		{domain.TicketActionCancel, domain.TicketStatusCancelled},
	},
	domain.TicketStatusWaitingForParts: {
		{domain.TicketActionResume, domain.TicketStatusInProgress},
		{domain.TicketActionCancel, domain.TicketStatusCancelled},
	},
	domain.TicketStatusResolved: {
		{domain.TicketActionDeliver, domain.TicketStatusClosed},
		{domain.TicketActionReopen, domain.TicketStatusInProgress},
		{domain.TicketActionCancel, domain.TicketStatusCancelled},
	},
	domain.TicketStatusClosed: {
		{domain.TicketActionReopen, domain.TicketStatusInProgress},
	},
	domain.TicketStatusCancelled: {
		{domain.TicketActionReopen, domain.TicketStatusOpen},
	},
}

// Transition is one edge of the state machine.
type Transition struct {
	From        domain.TicketStatus
	Action      domain.TicketAction
	To          domain.TicketStatus
	Description string
}

func lookup(current domain.TicketStatus, action domain.TicketAction) (domain.TicketStatus, bool) {
	for _, e := range transitions[current] {
		if e.action == action {
			return e.next, true
		}
	}
	return "", false
}

// IsValidTransition reports whether action may be applied to a ticket in the
// current status. Unknown statuses or actions are simply invalid.
func IsValidTransition(current domain.TicketStatus, action domain.TicketAction) bool {
	_, ok := lookup(current, action)
	return ok
}

// NextStatus returns the status a ticket moves to when action is applied.
// It returns an *InvalidTransitionError when the pair has no edge.
func NextStatus(current domain.TicketStatus, action domain.TicketAction) (domain.TicketStatus, error) {
	next, ok := lookup(current, action)
	if !ok {
		return "", &InvalidTransitionError{Status: current, Action: action}
	}
	return next, nil
}

// ValidActions lists the actions legal from current in table order.
// The returned slice is owned by the caller.
func ValidActions(current domain.TicketStatus) []domain.TicketAction {
	edges := transitions[current]
	actions := make([]domain.TicketAction, 0, len(edges))
	for _, e := range edges {
		actions = append(actions, e.action)
	}
	return actions
}

// Transitions returns every edge of the machine, grouped by source status in
// status declaration order.
func Transitions() []Transition {
	var result []Transition
	for _, status := range domain.AllTicketStatuses() {
		for _, e := range transitions[status] {
			result = append(result, Transition{
				From:        status,
				Action:      e.action,
				To:          e.next,
				Description: DescribeTransition(status, e.action),
			})
		}
	}
	return result
}
