package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/KinuGra/tosho-2509-back/internal/api/dto"
	"github.com/KinuGra/tosho-2509-back/internal/auth"
	"github.com/KinuGra/tosho-2509-back/internal/domain"
)

// Authenticator is the account workflow the auth endpoints drive.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (*domain.User, string, time.Time, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, userID string) (*domain.User, error)
}

// CookieSettings controls the session cookie.
type CookieSettings struct {
	Name   string
	Secure bool
}

// AuthHandler exposes auth endpoints for learners.
type AuthHandler struct {
	auth   Authenticator
	cookie CookieSettings
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService Authenticator, cookie CookieSettings) *AuthHandler {
	return &AuthHandler{auth: authService, cookie: cookie}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if err := validateNewPassword(req.Password); err != nil {
		return err
	}

	user, token, exp, err := h.auth.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookie(c, token, exp)
	return c.Status(http.StatusCreated).JSON(authResponse(user, token, exp))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	user, token, exp, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookie(c, token, exp)
	return c.JSON(authResponse(user, token, exp))
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), c.Cookies(h.cookie.Name)); err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(dto.MessageResponse{Message: "Logged out"})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	user, err := h.auth.Me(c.UserContext(), principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string, exp time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func authResponse(user *domain.User, token string, exp time.Time) dto.AuthResponse {
	u := dto.NewUserResponse(user)
	return dto.AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   exp,
		User:        &u,
	}
}
