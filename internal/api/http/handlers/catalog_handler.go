package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/claim-approval-service/internal/service"
)

// CatalogHandler serves claim and policy lookups.
type CatalogHandler struct {
	service *service.ClaimService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(claimService *service.ClaimService) *CatalogHandler {
	return &CatalogHandler{service: claimService}
}

// GetClaim GET /api/claims/:claim_id.
func (h *CatalogHandler) GetClaim(c *fiber.Ctx) error {
	claimID := c.Params("claim_id")
	claim, err := h.service.GetClaim(c.UserContext(), claimID)
	if err != nil {
		return mapServiceError(err, "claim", map[string]any{"claim_id": claimID})
	}
	return c.JSON(fiber.Map{"data": claim})
}

// GetPolicy GET /api/policies/:policy_number.
func (h *CatalogHandler) GetPolicy(c *fiber.Ctx) error {
	number := c.Params("policy_number")
	policy, err := h.service.GetPolicy(c.UserContext(), number)
	if err != nil {
		return mapServiceError(err, "policy", map[string]any{"policy_number": number})
	}
	return c.JSON(fiber.Map{"data": policy})
}
