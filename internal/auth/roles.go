package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// RequireActive rejects requests without a principal and learners whose account has been deactivated.
func RequireActive() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if principal.User == nil || !principal.User.IsActive {
			return fiber.NewError(http.StatusForbidden, "account inactive")
		}
		return c.Next()
	}
}
