package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/shopbot/internal/api/dto"
	"github.com/spec-kit/shopbot/internal/repository"
	apperrors "github.com/spec-kit/shopbot/pkg/util/errorutil"
)

// RedemptionsHandler lists ledger rows for operators.
type RedemptionsHandler struct {
	redemptions repository.RedemptionRepository
}

// NewRedemptionsHandler returns a new handler instance.
func NewRedemptionsHandler(redemptions repository.RedemptionRepository) *RedemptionsHandler {
	return &RedemptionsHandler{redemptions: redemptions}
}

// List returns recent redemption rows, newest first.
func (h *RedemptionsHandler) List(c *fiber.Ctx) error {
	var query dto.ListQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewValidationError("invalid query parameters", nil)
	}
	query.Normalize()

	records, err := h.redemptions.List(c.UserContext(), query.Limit, query.Offset)
	if err != nil {
		return apperrors.MapError(err)
	}

	items := make([]dto.RedemptionResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.FromRedemptionRecord(record))
	}
	return c.JSON(fiber.Map{"items": items, "limit": query.Limit, "offset": query.Offset})
}
