package domain

import "time"

// VerificationRecord is the single current one-time code issued to an identity.
// Only the digest of the code is ever stored.
type VerificationRecord struct {
	ID           string
	Identity     string
	CodeHash     string
	ExpiresAt    time.Time
	AttemptsLeft int
	CreatedAt    time.Time
}

// Expired reports whether the code can no longer be verified at now.
func (r *VerificationRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Exhausted reports whether the attempt budget is spent.
func (r *VerificationRecord) Exhausted() bool {
	return r.AttemptsLeft <= 0
}
