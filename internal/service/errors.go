package service

import (
	"net/http"

	apperrors "github.com/KinuGra/tosho-2509-back/pkg/util/errorutil"
)

// Verification outcomes.
var (
	ErrNoCodeRequested = apperrors.NewDomainError("NO_CODE_REQUESTED", "no verification code requested", http.StatusBadRequest, nil)
	ErrCodeExpired     = apperrors.NewDomainError("CODE_EXPIRED", "verification code expired", http.StatusBadRequest, nil)
	ErrNoAttemptsLeft  = apperrors.NewDomainError("NO_ATTEMPTS_LEFT", "no attempts left", http.StatusBadRequest, nil)
	ErrInvalidCode     = apperrors.NewDomainError("INVALID_CODE", "invalid verification code", http.StatusBadRequest, nil)
	ErrDeliveryFailed  = apperrors.NewDomainError("DELIVERY_FAILED", "verification code could not be delivered", http.StatusBadGateway, nil)
)

// Credential outcomes. ErrInvalidCredentials is shared by unknown accounts and wrong passwords.
var (
	ErrAlreadyExists      = apperrors.NewDomainError("ALREADY_EXISTS", "email already registered", http.StatusConflict, nil)
	ErrInvalidCredentials = apperrors.NewDomainError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)
	ErrPasswordTooLong    = apperrors.NewDomainError("VALIDATION_FAILED", "password must be at most 72 bytes", http.StatusBadRequest, nil)
)
