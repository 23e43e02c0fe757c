package domain

import "time"

// Topic groups ordered learning steps.
type Topic struct {
	ID          int
	Title       string
	Description string
}

// Step is a single exercise that awards XP once.
type Step struct {
	ID       int
	TopicID  int
	OrderNo  int
	Title    string
	XPReward int
}

// StepProgress tracks whether a user has cleared a step.
type StepProgress struct {
	UserID    string
	StepID    int
	IsCleared bool
	ClearedAt *time.Time
}

// XPForNextLevel is the experience threshold that lifts level to level+1.
func XPForNextLevel(level int) int {
	return level * level * 50
}

// ApplyXP adds xp to the user and raises the level while thresholds are met.
// It returns the number of levels gained.
func (u *User) ApplyXP(xp int) int {
	u.Exp += xp
	gained := 0
	for u.Exp >= XPForNextLevel(u.Level) {
		u.Level++
		gained++
	}
	return gained
}
