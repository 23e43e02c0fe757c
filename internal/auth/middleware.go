package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/KinuGra/tosho-2509-back/internal/domain"
	"github.com/KinuGra/tosho-2509-back/internal/repository"
	apperrors "github.com/KinuGra/tosho-2509-back/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	UserID string
	User   *domain.User
}

// AuthMiddleware validates session tokens and loads principals.
type AuthMiddleware struct {
	tokens     *TokenManager
	users      repository.UserRepository
	cookieName string
}

// NewAuthMiddleware constructs middleware. Tokens are read from cookieName first,
// then from the Authorization header.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, cookieName: cookieName}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := m.extractToken(c)
	if err != nil {
		return err
	}

	subject, err := m.tokens.Validate(token)
	if err != nil {
		return err
	}

	user, err := m.users.GetByID(c.UserContext(), subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewUnauthorized("account not found")
		}
		return apperrors.ToDomainError(err)
	}

	WithPrincipal(c, &Principal{UserID: subject, User: user})
	return c.Next()
}

func (m *AuthMiddleware) extractToken(c *fiber.Ctx) (string, error) {
	if m.cookieName != "" {
		if token := c.Cookies(m.cookieName); token != "" {
			return token, nil
		}
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", apperrors.NewUnauthorized("missing credentials")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// WithPrincipal attaches an authenticated principal to the request.
func WithPrincipal(c *fiber.Ctx, principal *Principal) {
	c.Locals(principalKey, principal)
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
