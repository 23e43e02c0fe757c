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
	"github.com/KinuGra/tosho-2509-back/internal/observability"
	"github.com/KinuGra/tosho-2509-back/internal/repository"
	apperrors "github.com/KinuGra/tosho-2509-back/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	hasher     *auth.PasswordHasher
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	dummyHash  string
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      auth.Clock
}

// NewAuthService builds the service. It hashes a throwaway password once so that
// logins for unknown emails cost the same as logins with a wrong password.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) (*AuthService, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &AuthService{
		users:      deps.UserRepo,
		hasher:     hasher,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL(), deps.Clock),
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		dummyHash:  dummy,
	}, nil
}

// Register creates a new account and issues its first session token.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	email = NormalizeEmail(email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, ErrAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", time.Time{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if auth.IsPasswordTooLong(err) {
			return nil, "", time.Time{}, ErrPasswordTooLong
		}
		return nil, "", time.Time{}, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", time.Time{}, ErrAlreadyExists
		}
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.Issue(user.ID)
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	publish(ctx, s.dispatcher, s.logger, events.Event{Type: events.EventUserRegistered, UserID: user.ID, Identity: email, Timestamp: user.CreatedAt})
	return user, token, exp, nil
}

// Login authenticates by email and password. Unknown emails and wrong passwords
// fail with the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			s.metrics.RecordLogin("failure")
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", time.Time{}, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) || !user.IsActive {
		s.metrics.RecordLogin("failure")
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, exp, err := s.tokenMgr.Issue(user.ID)
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}
	s.metrics.RecordLogin("success")
	return user, token, exp, nil
}

// Logout currently no-ops for stateless JWT approach.
func (s *AuthService) Logout(_ context.Context, _ string) error {
	return nil
}

// Me returns the account behind an authenticated subject.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
