package domain

import "time"

// User is the domain model for learners. It doubles as the stored credential.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
	Level        int
	Exp          int
	CreatedAt    time.Time
}

// RankingEntry is one row of the leaderboard.
type RankingEntry struct {
	UserID string
	Email  string
	Level  int
	Exp    int
}
