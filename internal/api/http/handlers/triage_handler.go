package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/service"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// TriageHandler manages suggestion and policy endpoints.
type TriageHandler struct {
	service *service.TriageService
}

// NewTriageHandler constructs handler.
func NewTriageHandler(triageService *service.TriageService) *TriageHandler {
	return &TriageHandler{service: triageService}
}

// RunSuggestion POST /tickets/:id/suggestions.
func (h *TriageHandler) RunSuggestion(c *fiber.Ctx) error {
	access, ok := auth.AccessFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RunSuggestionRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	trigger := req.Trigger
	if trigger == "" {
		trigger = "manual"
	}
	result, err := h.service.RunSuggestion(c.UserContext(), access, c.Params("id"), trigger)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSuggestionResponse(result)})
}

// ApproveSuggestion POST /tickets/:id/suggestions/approve.
func (h *TriageHandler) ApproveSuggestion(c *fiber.Ctx) error {
	access, ok := auth.AccessFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ApproveSuggestionRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.ApproveSuggestion(c.UserContext(), access, c.Params("id"), req.EditedText)
	if err != nil {
		return err
	}
	if result == nil {
		return c.JSON(fiber.Map{"data": nil, "message": "no pending suggestion"})
	}
	return c.JSON(fiber.Map{"data": dto.NewSuggestionResponse(result)})
}

// DiscardSuggestion POST /tickets/:id/suggestions/discard.
func (h *TriageHandler) DiscardSuggestion(c *fiber.Ctx) error {
	access, ok := auth.AccessFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	result, err := h.service.DiscardSuggestion(c.UserContext(), access, c.Params("id"))
	if err != nil {
		return err
	}
	if result == nil {
		return c.JSON(fiber.Map{"data": nil, "message": "no pending suggestion"})
	}
	return c.JSON(fiber.Map{"data": dto.NewSuggestionResponse(result)})
}

// SetPolicy PUT /policies.
func (h *TriageHandler) SetPolicy(c *fiber.Ctx) error {
	access, ok := auth.AccessFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SetPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	customerID := req.CustomerID
	if customerID == "" {
		customerID = access.CustomerID
	}
	if customerID == "" {
		return apperrors.NewValidationError("customer_id required", nil)
	}
	policy := domain.CustomerAiPolicy{
		CustomerID:          customerID,
		Mode:                req.Mode,
		ConfidenceThreshold: req.ConfidenceThreshold,
	}
	if err := h.service.SetPolicy(c.UserContext(), access, policy); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"customer_id":          policy.CustomerID,
		"mode":                 policy.Mode,
		"confidence_threshold": policy.ConfidenceThreshold,
	}})
}
