package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/shopbot/internal/api/dto"
	"github.com/spec-kit/shopbot/internal/service"
	apperrors "github.com/spec-kit/shopbot/pkg/util/errorutil"
)

// OrdersHandler exposes order inspection to operators.
type OrdersHandler struct {
	inspector *service.InspectorService
}

// NewOrdersHandler returns a new handler instance.
func NewOrdersHandler(inspector *service.InspectorService) *OrdersHandler {
	return &OrdersHandler{inspector: inspector}
}

// Get classifies one order by invoice id.
func (h *OrdersHandler) Get(c *fiber.Ctx) error {
	invoiceID := strings.TrimSpace(c.Params("id"))
	if invoiceID == "" {
		return apperrors.NewValidationError("invoice id is required", nil)
	}

	report, err := h.inspector.InspectOrder(c.UserContext(), invoiceID)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(dto.FromOrderReport(report))
}
