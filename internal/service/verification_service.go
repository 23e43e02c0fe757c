package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KinuGra/tosho-2509-back/internal/auth"
	"github.com/KinuGra/tosho-2509-back/internal/config"
	"github.com/KinuGra/tosho-2509-back/internal/domain"
	"github.com/KinuGra/tosho-2509-back/internal/events"
	"github.com/KinuGra/tosho-2509-back/internal/mail"
	"github.com/KinuGra/tosho-2509-back/internal/observability"
	"github.com/KinuGra/tosho-2509-back/internal/repository"
)

// VerificationDependencies encapsulates collaborators of the verification service.
type VerificationDependencies struct {
	Codes      repository.VerificationRepository
	Mailer     mail.Mailer
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      auth.Clock
}

// VerificationService issues and checks one-time codes. Each identity holds at most
// one active code; requesting a new one supersedes the previous code.
type VerificationService struct {
	codes       repository.VerificationRepository
	mailer      mail.Mailer
	generator   *auth.CodeGenerator
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         auth.Clock
	ttl         time.Duration
	maxAttempts int
}

// NewVerificationService builds the service.
func NewVerificationService(cfg config.VerificationConfig, deps VerificationDependencies) *VerificationService {
	clock := deps.Clock
	if clock == nil {
		clock = auth.SystemClock
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CodeTTL()
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &VerificationService{
		codes:       deps.Codes,
		mailer:      deps.Mailer,
		generator:   auth.NewCodeGenerator(),
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		now:         clock,
		ttl:         ttl,
		maxAttempts: maxAttempts,
	}
}

// RequestCode issues a fresh code for identity, stores its digest and delivers it.
// If delivery fails the stored record is withdrawn and ErrDeliveryFailed is returned.
func (s *VerificationService) RequestCode(ctx context.Context, identity string) (string, error) {
	identity = NormalizeEmail(identity)

	code, err := s.generator.Generate()
	if err != nil {
		s.metrics.RecordCodeIssued("generate_error")
		return "", err
	}

	now := s.now()
	record := &domain.VerificationRecord{
		ID:           uuid.NewString(),
		Identity:     identity,
		CodeHash:     auth.HashCode(code),
		ExpiresAt:    now.Add(s.ttl),
		AttemptsLeft: s.maxAttempts,
		CreatedAt:    now,
	}
	if err := s.codes.Replace(ctx, record); err != nil {
		s.metrics.RecordCodeIssued("store_error")
		return "", fmt.Errorf("store verification code: %w", err)
	}

	if err := s.mailer.Deliver(ctx, identity, code); err != nil {
		s.logger.Warn("verification code delivery failed", zap.String("identity", identity), zap.Error(err))
		if delErr := s.codes.DeleteIfCurrent(context.WithoutCancel(ctx), identity, record.ID); delErr != nil {
			s.logger.Error("withdraw undelivered code", zap.String("identity", identity), zap.Error(delErr))
		}
		s.metrics.RecordCodeIssued("delivery_failed")
		return "", ErrDeliveryFailed
	}

	s.metrics.RecordCodeIssued("delivered")
	s.logger.Info("verification code issued",
		zap.String("identity", identity),
		zap.Time("expires_at", record.ExpiresAt))
	return code, nil
}

// VerifyCode checks submitted against the identity's current code. Checks run in order:
// presence, expiry, remaining attempts, digest comparison. A mismatch spends one attempt
// and a match consumes the code.
func (s *VerificationService) VerifyCode(ctx context.Context, identity, submitted string) error {
	identity = NormalizeEmail(identity)
	now := s.now()

	var attemptsLeft int
	err := s.codes.Mutate(ctx, identity, func(record *domain.VerificationRecord) (repository.RecordAction, error) {
		if record.Expired(now) {
			return repository.RecordKeep, ErrCodeExpired
		}
		if record.Exhausted() {
			return repository.RecordKeep, ErrNoAttemptsLeft
		}
		if !auth.CodeMatches(submitted, record.CodeHash) {
			record.AttemptsLeft--
			attemptsLeft = record.AttemptsLeft
			return repository.RecordSave, ErrInvalidCode
		}
		return repository.RecordDelete, nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		err = ErrNoCodeRequested
	}

	s.metrics.RecordVerification(outcomeLabel(err))

	switch {
	case err == nil:
		s.logger.Info("verification code accepted", zap.String("identity", identity))
		publish(ctx, s.dispatcher, s.logger, events.Event{Type: events.EventCodeVerified, Identity: identity, Timestamp: now})
		return nil
	case errors.Is(err, ErrInvalidCode):
		s.logger.Info("verification code rejected", zap.String("identity", identity), zap.Int("attempts_left", attemptsLeft))
		return err
	case errors.Is(err, ErrCodeExpired), errors.Is(err, ErrNoAttemptsLeft), errors.Is(err, ErrNoCodeRequested):
		return err
	default:
		return fmt.Errorf("verify code: %w", err)
	}
}
