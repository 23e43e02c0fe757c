package service

import (
	"context"

	"github.com/KinuGra/tosho-2509-back/internal/domain"
	"github.com/KinuGra/tosho-2509-back/internal/repository"
)

// Ranking page bounds.
const (
	DefaultRankingLimit = 50
	MaxRankingLimit     = 100
)

// RankingService serves the leaderboard.
type RankingService struct {
	users repository.UserRepository
}

// NewRankingService builds the service.
func NewRankingService(users repository.UserRepository) *RankingService {
	return &RankingService{users: users}
}

// Top returns the best learners by level then exp. Out of range limits are clamped.
func (s *RankingService) Top(ctx context.Context, limit int) ([]domain.RankingEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultRankingLimit
	case limit > MaxRankingLimit:
		limit = MaxRankingLimit
	}
	return s.users.TopByLevel(ctx, limit)
}
