package lifecycle

import (
	"errors"
	"fmt"

	"github.com/spec-kit/workshop-tickets/internal/domain"
)

// ErrInvalidTransition matches any *InvalidTransitionError via errors.Is.
var ErrInvalidTransition = errors.New("invalid ticket transition")

// InvalidTransitionError reports an action that is not defined for a status.
type InvalidTransitionError struct {
	Status domain.TicketStatus
	Action domain.TicketAction
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a ticket that is %s", e.Action, e.Status)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
