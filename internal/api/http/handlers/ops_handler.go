package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/service"
)

// OpsHandler exposes operator views over the delivery pipeline.
type OpsHandler struct {
	service *service.NotificationService
}

// NewOpsHandler constructs handler.
func NewOpsHandler(notificationService *service.NotificationService) *OpsHandler {
	return &OpsHandler{service: notificationService}
}

// DeadLetters GET /ops/dead-letters.
func (h *OpsHandler) DeadLetters(c *fiber.Ctx) error {
	pageSize := parseIntQuery(c.Query("page_size"), 0)
	messages, err := h.service.ListDeadLetters(c.UserContext(), pageSize)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOutboundMessageList(messages)})
}

// Metrics GET /ops/metrics.
func (h *OpsHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": dto.NewDeliveryMetricsResponse(h.service.MetricsSnapshot())})
}
