package handlers

import (
	"net/mail"
	"strings"

	apperrors "github.com/KinuGra/tosho-2509-back/pkg/util/errorutil"
)

const minPasswordLength = 8

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.NewValidationError("email required", map[string]any{"field": "email"})
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperrors.NewValidationError("invalid email", map[string]any{"field": "email"})
	}
	return nil
}

func validateNewPassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError("password too short", map[string]any{"field": "password", "min_length": minPasswordLength})
	}
	return nil
}

func validateCode(code string) error {
	if len(code) != 6 {
		return apperrors.NewValidationError("code must be 6 digits", map[string]any{"field": "code"})
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return apperrors.NewValidationError("code must be 6 digits", map[string]any{"field": "code"})
		}
	}
	return nil
}
