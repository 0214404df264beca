package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/workshop-tickets/internal/api/dto"
	"github.com/spec-kit/workshop-tickets/internal/domain"
	"github.com/spec-kit/workshop-tickets/internal/service"
	"github.com/spec-kit/workshop-tickets/internal/tenancy"
	apperrors "github.com/spec-kit/workshop-tickets/pkg/util/errorutil"
)

const maxPageSize = 100

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), principal.TenantID, service.TicketCreateInput{
		ActorID:     principal.ActorID,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket, service.AvailableActions(ticket.Status))})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), principal.TenantID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	ticket, actions, err := h.service.ValidActions(c.UserContext(), principal.TenantID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, actions)})
}

// ListActions GET /tickets/:id/actions.
func (h *TicketsHandler) ListActions(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	ticket, actions, err := h.service.ValidActions(c.UserContext(), principal.TenantID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": actionResponses(actions),
		"meta": fiber.Map{"status": ticket.Status},
	})
}

// ApplyAction POST /tickets/:id/actions.
func (h *TicketsHandler) ApplyAction(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	var req dto.ApplyActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	action, err := domain.ParseTicketAction(req.Action)
	if err != nil {
		return apperrors.NewValidationError("unknown action", map[string]any{
			"action":  req.Action,
			"allowed": domain.AllTicketActions(),
		})
	}

	result, err := h.service.ApplyAction(c.UserContext(), principal.TenantID, service.ActionInput{
		TicketID:   c.Params("id"),
		Action:     action,
		ActorID:    principal.ActorID,
		AssigneeID: req.AssigneeID,
		Comment:    req.Comment,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TransitionResponse{
		Ticket:       ticketResponse(result.Ticket),
		Transition:   historyResponse(result.Entry),
		ValidActions: actionResponses(service.AvailableActions(result.Ticket.Status)),
	}})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	page, pageSize := parsePage(c)
	entries, err := h.service.ListHistory(c.UserContext(), principal.TenantID, c.Params("id"), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, historyResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func principalFrom(c *fiber.Ctx) (*tenancy.Principal, error) {
	principal, ok := tenancy.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewValidationError("missing "+tenancy.HeaderTenantID+" header", nil)
	}
	return principal, nil
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status, err := domain.ParseTicketStatus(part)
			if err != nil {
				return filter, apperrors.NewValidationError("unknown status", map[string]any{
					"status":  part,
					"allowed": domain.AllTicketStatuses(),
				})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if assignee := strings.TrimSpace(c.Query("assignee_id")); assignee != "" {
		filter.AssigneeID = &assignee
	}
	page, pageSize := parsePage(c)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func parsePage(c *fiber.Ctx) (int, int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := min(parseInt(c.Query("page_size"), 20), maxPageSize)
	return page, pageSize
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:          ticket.ID,
		ExternalKey: ticket.ExternalKey,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      ticket.Status,
		AssigneeID:  ticket.AssigneeID,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		ClosedAt:    ticket.ClosedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, actions []service.AvailableAction) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		TicketResponse: ticketResponse(ticket),
		ValidActions:   actionResponses(actions),
	}
}

func actionResponses(actions []service.AvailableAction) []dto.ActionResponse {
	resp := make([]dto.ActionResponse, 0, len(actions))
	for _, a := range actions {
		resp = append(resp, dto.ActionResponse{
			Action:      a.Action,
			NextStatus:  a.NextStatus,
			Description: a.Description,
		})
	}
	return resp
}

func historyResponse(entry *domain.TicketHistory) dto.TicketHistoryResponse {
	return dto.TicketHistoryResponse{
		ID:          entry.ID,
		ActorID:     entry.ActorID,
		Action:      entry.Action,
		FromStatus:  entry.FromStatus,
		ToStatus:    entry.ToStatus,
		Description: entry.Description,
		Comment:     entry.Comment,
		CreatedAt:   entry.CreatedAt,
	}
}
