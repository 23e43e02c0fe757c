package service

import (
	"strings"

	apperrors "github.com/KinuGra/tosho-2509-back/pkg/util/errorutil"
)

// NormalizeEmail canonicalizes an email so that lookups and code identities agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// outcomeLabel maps a service result to a metrics label.
func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return apperrors.ToDomainError(err).Code
}
