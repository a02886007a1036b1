package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/domain"
)

// RequireAuthenticated ensures a caller context was resolved.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := AccessFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}

// RequireManage ensures the caller holds an operator-tier role. The per-ticket
// tenant check still happens in the services against the ticket's customer.
func RequireManage() fiber.Handler {
	return func(c *fiber.Ctx) error {
		access, ok := AccessFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if access.Role != domain.RoleAgent && access.Role != domain.RolePlatformOperator {
			return fiber.NewError(http.StatusForbidden, "manage capability required")
		}
		return c.Next()
	}
}

// RequirePlatformOperator restricts a route to platform-tier callers.
func RequirePlatformOperator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		access, ok := AccessFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if access.Role != domain.RolePlatformOperator {
			return fiber.NewError(http.StatusForbidden, "platform operator required")
		}
		return c.Next()
	}
}
