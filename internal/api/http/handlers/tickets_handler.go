package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldservice/internal/api/dto"
	"github.com/fieldops/fieldservice/internal/auth"
	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/service"
)

// TicketsHandler exposes the ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Create(c.UserContext(), auth.CurrentActor(c), service.CreateTicketInput{
		Kind:              req.Kind,
		Priority:          req.Priority,
		Title:             req.Title,
		ClientName:        req.ClientName,
		Description:       req.Description,
		Requirements:      req.Requirements,
		TechnicianID:      req.TechnicianID,
		ServiceAmount:     req.ServiceAmount,
		CommissionPercent: req.CommissionPercent,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewTicketResponse(ticket))
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), auth.CurrentActor(c), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewTicketResponse(&page.Items[i]))
	}
	return respond(c, fiber.StatusOK, dto.PageResponse[dto.TicketResponse]{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.Get(c.UserContext(), auth.CurrentActor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketResponse(ticket))
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Update(c.UserContext(), auth.CurrentActor(c), c.Params("id"), service.UpdateTicketInput{
		Priority:          req.Priority,
		Title:             req.Title,
		ClientName:        req.ClientName,
		Description:       req.Description,
		Requirements:      req.Requirements,
		MaterialsUsed:     req.MaterialsUsed,
		Solution:          req.Solution,
		TimeWorked:        req.TimeWorked,
		Observations:      req.Observations,
		ServiceAmount:     req.ServiceAmount,
		CommissionPercent: req.CommissionPercent,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketResponse(ticket))
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.Delete(c.UserContext(), auth.CurrentActor(c), id); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"id": id, "deleted": true})
}

// AssignTechnician POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTechnician(c *fiber.Ctx) error {
	var req dto.AssignTechnicianRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.AssignTechnician(c.UserContext(), auth.CurrentActor(c), c.Params("id"), req.TechnicianID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketResponse(ticket))
}

// ChangeStatus POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	var req dto.ChangeStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.service.ChangeStatus(c.UserContext(), auth.CurrentActor(c), c.Params("id"), req.Status, service.StatusChangeExtra{
		Solution:      req.Solution,
		MaterialsUsed: req.MaterialsUsed,
		TimeWorked:    req.TimeWorked,
		Observations:  req.Observations,
		Note:          req.Note,
	})
	if err != nil {
		return err
	}
	out := dto.TransitionResponse{Ticket: dto.NewTicketResponse(res.Ticket)}
	if res.Payment != nil {
		payment := dto.NewPaymentResponse(res.Payment)
		out.Payment = &payment
	}
	return respond(c, fiber.StatusOK, out)
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	id := c.Params("id")
	entries, err := h.service.History(c.UserContext(), auth.CurrentActor(c), id)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewHistoryEntryResponse(&entries[i]))
	}
	return respond(c, fiber.StatusOK, dto.HistoryResponse{TicketID: id, Items: items})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{
		TechnicianID: optionalString(c.Query("technician_id")),
		Search:       c.Query("q"),
		Page:         parseInt(c.Query("page"), 1),
		PageSize:     parseInt(c.Query("page_size"), 0),
	}
	for _, part := range splitList(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(part))
	}
	for _, part := range splitList(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(part))
	}
	if kind := c.Query("kind"); kind != "" {
		k := domain.TicketKind(kind)
		filter.Kind = &k
	}
	return filter
}
