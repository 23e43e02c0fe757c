package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/KinuGra/tosho-2509-back/internal/api/dto"
	"github.com/KinuGra/tosho-2509-back/internal/auth"
	"github.com/KinuGra/tosho-2509-back/internal/domain"
	"github.com/KinuGra/tosho-2509-back/internal/service"
)

// ProgressTracker records cleared steps.
type ProgressTracker interface {
	CompleteStep(ctx context.Context, userID string, stepID int) (*service.StepCompletion, error)
}

// Leaderboard lists the top learners.
type Leaderboard interface {
	Top(ctx context.Context, limit int) ([]domain.RankingEntry, error)
}

// ProgressHandler exposes progress and ranking endpoints.
type ProgressHandler struct {
	progress ProgressTracker
	ranking  Leaderboard
}

// NewProgressHandler constructs handler.
func NewProgressHandler(progress ProgressTracker, ranking Leaderboard) *ProgressHandler {
	return &ProgressHandler{progress: progress, ranking: ranking}
}

// Complete handles POST /progress/complete.
func (h *ProgressHandler) Complete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.StepCompleteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.StepID <= 0 {
		return fiber.NewError(http.StatusBadRequest, "step_id required")
	}

	result, err := h.progress.CompleteStep(c.UserContext(), principal.UserID, req.StepID)
	if err != nil {
		return err
	}

	resp := dto.StepCompleteResponse{Message: "Cleared", Level: result.Level, Exp: result.Exp}
	if result.AlreadyCleared {
		resp.Message = "Already cleared"
	} else {
		reward := result.Reward
		resp.Reward = &reward
	}
	return c.JSON(resp)
}

// Ranking handles GET /ranking.
func (h *ProgressHandler) Ranking(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", service.DefaultRankingLimit)
	entries, err := h.ranking.Top(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewRankingResponse(entries))
}
