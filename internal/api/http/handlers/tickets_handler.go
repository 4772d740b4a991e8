package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/shopbot/internal/api/dto"
	"github.com/spec-kit/shopbot/internal/repository"
	apperrors "github.com/spec-kit/shopbot/pkg/util/errorutil"
)

// TicketsHandler lists support tickets for operators.
type TicketsHandler struct {
	tickets repository.TicketRepository
}

// NewTicketsHandler returns a new handler instance.
func NewTicketsHandler(tickets repository.TicketRepository) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

// List returns recent tickets, newest first.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	var query dto.ListQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewValidationError("invalid query parameters", nil)
	}
	query.Normalize()

	tickets, err := h.tickets.List(c.UserContext(), query.Limit, query.Offset)
	if err != nil {
		return apperrors.MapError(err)
	}

	items := make([]dto.TicketResponse, 0, len(tickets))
	for _, ticket := range tickets {
		items = append(items, dto.FromTicket(ticket))
	}
	return c.JSON(fiber.Map{"items": items, "limit": query.Limit, "offset": query.Offset})
}
