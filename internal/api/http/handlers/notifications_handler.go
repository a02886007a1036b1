package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/dto"
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/service"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// NotificationsHandler manages outbound notification endpoints.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	access, ok := auth.AccessFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	customerID := c.Query("customer_id")
	if customerID == "" {
		customerID = access.CustomerID
	}
	if customerID == "" {
		return apperrors.NewValidationError("customer_id required", nil)
	}
	filter := service.NotificationFilter{Limit: parseIntQuery(c.Query("limit"), 0)}
	if raw := c.Query("status"); raw != "" {
		status := domain.OutboundStatus(raw)
		filter.Status = &status
	}
	messages, err := h.service.ListByCustomer(c.UserContext(), access, customerID, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOutboundMessageList(messages)})
}

// Dispatch POST /notifications/dispatch.
func (h *NotificationsHandler) Dispatch(c *fiber.Ctx) error {
	if err := h.service.DispatchPending(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDeliveryMetricsResponse(h.service.MetricsSnapshot())})
}

// RetryDeadLetters POST /notifications/dead-letters/retry.
func (h *NotificationsHandler) RetryDeadLetters(c *fiber.Ctx) error {
	var req dto.RetryDeadLettersRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	requeued, err := h.service.RetryDeadLetters(c.UserContext(), req.Take)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RetryDeadLettersResponse{Requeued: requeued}})
}

// RequeueDeadLetter POST /notifications/dead-letters/:id/retry.
func (h *NotificationsHandler) RequeueDeadLetter(c *fiber.Ctx) error {
	if err := h.service.RequeueDeadLetter(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"requeued": true}})
}
