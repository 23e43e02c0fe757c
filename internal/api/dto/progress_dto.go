package dto

import "github.com/KinuGra/tosho-2509-back/internal/domain"

// StepCompleteRequest marks a step as done.
type StepCompleteRequest struct {
	StepID int `json:"step_id"`
}

// StepCompleteResponse reports the learner's standing after completing a step.
type StepCompleteResponse struct {
	Message string `json:"message"`
	Level   int    `json:"level"`
	Exp     int    `json:"exp"`
	Reward  *int   `json:"reward,omitempty"`
}

// RankingEntryResponse is one leaderboard row.
type RankingEntryResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Level  int    `json:"level"`
	Exp    int    `json:"exp"`
}

// NewRankingResponse maps leaderboard rows.
func NewRankingResponse(entries []domain.RankingEntry) []RankingEntryResponse {
	out := make([]RankingEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, RankingEntryResponse{UserID: e.UserID, Email: e.Email, Level: e.Level, Exp: e.Exp})
	}
	return out
}
