package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workshop-tickets/internal/api/dto"
	"github.com/spec-kit/workshop-tickets/internal/domain"
	"github.com/spec-kit/workshop-tickets/internal/lifecycle"
)

// LifecycleHandler publishes the ticket transition table so clients can
// render workflow buttons without hard-coding it.
type LifecycleHandler struct {
	body dto.LifecycleResponse
}

// NewLifecycleHandler constructs handler.
func NewLifecycleHandler() *LifecycleHandler {
	transitions := lifecycle.Transitions()
	rules := make([]dto.TransitionRule, 0, len(transitions))
	for _, tr := range transitions {
		rules = append(rules, dto.TransitionRule{
			From:        tr.From,
			Action:      tr.Action,
			To:          tr.To,
			Description: tr.Description,
		})
	}
	return &LifecycleHandler{body: dto.LifecycleResponse{
		Statuses:    domain.AllTicketStatuses(),
		Actions:     domain.AllTicketActions(),
		Transitions: rules,
	}}
}

// Table GET /lifecycle.
func (h *LifecycleHandler) Table(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.body})
}
