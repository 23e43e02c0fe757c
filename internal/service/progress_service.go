package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/KinuGra/tosho-2509-back/internal/auth"
	"github.com/KinuGra/tosho-2509-back/internal/domain"
	"github.com/KinuGra/tosho-2509-back/internal/events"
	"github.com/KinuGra/tosho-2509-back/internal/repository"
	apperrors "github.com/KinuGra/tosho-2509-back/pkg/util/errorutil"
)

// StepCompletion reports the learner's standing after completing a step.
type StepCompletion struct {
	AlreadyCleared bool
	Level          int
	Exp            int
	Reward         int
}

// ProgressService awards XP for cleared steps.
type ProgressService struct {
	progress   repository.ProgressRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        auth.Clock
}

// NewProgressService builds the service.
func NewProgressService(progress repository.ProgressRepository, dispatcher events.Dispatcher, logger *zap.Logger, clock auth.Clock) *ProgressService {
	if clock == nil {
		clock = auth.SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{progress: progress, dispatcher: dispatcher, logger: logger, now: clock}
}

// CompleteStep clears stepID for userID. Each step pays out once.
func (s *ProgressService) CompleteStep(ctx context.Context, userID string, stepID int) (*StepCompletion, error) {
	now := s.now()
	var oldLevel int

	result, err := s.progress.ClearStep(ctx, userID, stepID, now, func(u *domain.User, step *domain.Step) int {
		oldLevel = u.Level
		return u.ApplyXP(step.XPReward)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("step", map[string]any{"step_id": stepID})
		}
		return nil, err
	}

	completion := &StepCompletion{
		AlreadyCleared: result.AlreadyCleared,
		Level:          result.User.Level,
		Exp:            result.User.Exp,
	}
	if result.AlreadyCleared {
		return completion, nil
	}
	completion.Reward = result.Step.XPReward

	s.logger.Info("step cleared",
		zap.String("user_id", userID),
		zap.Int("step_id", stepID),
		zap.Int("reward", completion.Reward))
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventStepCleared,
		UserID:    userID,
		Timestamp: now,
		Payload:   events.StepClearedPayload{StepID: stepID, Reward: completion.Reward, Exp: completion.Exp},
	})
	if result.LevelsGained > 0 {
		publish(ctx, s.dispatcher, s.logger, events.Event{
			Type:      events.EventLevelUp,
			UserID:    userID,
			Timestamp: now,
			Payload:   events.LevelUpPayload{OldLevel: oldLevel, NewLevel: completion.Level},
		})
	}
	return completion, nil
}
