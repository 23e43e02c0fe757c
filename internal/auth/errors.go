package auth

import (
	"net/http"

	apperrors "github.com/KinuGra/tosho-2509-back/pkg/util/errorutil"
)

// Token validation failures. All are safe to return to clients.
var (
	ErrInvalidSignature = apperrors.NewDomainError("TOKEN_INVALID_SIGNATURE", "invalid token signature", http.StatusUnauthorized, nil)
	ErrTokenExpired     = apperrors.NewDomainError("TOKEN_EXPIRED", "token expired", http.StatusUnauthorized, nil)
	ErrTokenMalformed   = apperrors.NewDomainError("TOKEN_MALFORMED", "malformed token", http.StatusUnauthorized, nil)
)
