package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/domain"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

const accessKey = "auth_access_context"

var knownRoles = map[domain.Role]struct{}{
	domain.RoleEndUser:          {},
	domain.RoleAgent:            {},
	domain.RolePlatformOperator: {},
}

// AuthMiddleware validates bearer tokens and resolves the tenant-access
// context for downstream handlers.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	if _, ok := knownRoles[claims.Role]; !ok {
		return apperrors.NewUnauthorized("unknown role")
	}
	if claims.Role != domain.RolePlatformOperator && claims.CustomerID == "" {
		return apperrors.NewUnauthorized("missing customer scope")
	}

	c.Locals(accessKey, domain.AccessContext{
		UserID:     claims.UserID,
		Role:       claims.Role,
		CustomerID: claims.CustomerID,
	})
	return c.Next()
}

// AccessFromContext retrieves the resolved tenant-access context.
func AccessFromContext(c *fiber.Ctx) (domain.AccessContext, bool) {
	val := c.Locals(accessKey)
	if val == nil {
		return domain.AccessContext{}, false
	}
	access, ok := val.(domain.AccessContext)
	return access, ok
}
