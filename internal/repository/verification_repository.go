package repository

import (
	"context"
	"errors"
	"time"

	"github.com/KinuGra/tosho-2509-back/internal/domain"
)

// RecordAction tells Mutate what to do with the record after the callback ran.
type RecordAction int

const (
	// RecordKeep leaves the stored record untouched.
	RecordKeep RecordAction = iota
	// RecordSave persists the callback's changes.
	RecordSave
	// RecordDelete removes the record.
	RecordDelete
)

// ErrContended is returned when an atomic update kept losing to concurrent writers.
var ErrContended = errors.New("repository: verification record contended")

// MutateFunc inspects and may change the current record. Its error is returned
// from Mutate after the chosen action has been applied.
type MutateFunc func(record *domain.VerificationRecord) (RecordAction, error)

// VerificationRepository stores at most one verification record per identity.
// Every method is atomic with respect to the identity it touches.
type VerificationRepository interface {
	// Replace stores record, superseding any previous record for the same identity.
	Replace(ctx context.Context, record *domain.VerificationRecord) error
	Get(ctx context.Context, identity string) (*domain.VerificationRecord, error)
	// Mutate runs fn against the current record as one read-modify-write step.
	// It returns ErrNotFound without calling fn when no record exists.
	Mutate(ctx context.Context, identity string, fn MutateFunc) error
	// DeleteIfCurrent removes the record only if it still carries id.
	DeleteIfCurrent(ctx context.Context, identity, id string) error
	// Purge drops records that expired before cutoff and returns how many were removed.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}
