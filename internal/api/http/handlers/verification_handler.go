package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/KinuGra/tosho-2509-back/internal/api/dto"
)

// Verifier issues and checks one-time codes.
type Verifier interface {
	RequestCode(ctx context.Context, identity string) (string, error)
	VerifyCode(ctx context.Context, identity, code string) error
}

// VerificationHandler exposes the one-time code endpoints.
type VerificationHandler struct {
	codes Verifier
}

// NewVerificationHandler constructs handler.
func NewVerificationHandler(codes Verifier) *VerificationHandler {
	return &VerificationHandler{codes: codes}
}

// Request handles POST /2fa/request. The code itself only leaves through the mailer.
func (h *VerificationHandler) Request(c *fiber.Ctx) error {
	var req dto.CodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}

	if _, err := h.codes.RequestCode(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(dto.MessageResponse{Message: "Verification code sent"})
}

// Verify handles POST /2fa/verify.
func (h *VerificationHandler) Verify(c *fiber.Ctx) error {
	var req dto.CodeVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if err := validateCode(req.Code); err != nil {
		return err
	}

	if err := h.codes.VerifyCode(c.UserContext(), req.Email, req.Code); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "2FA success"})
}
