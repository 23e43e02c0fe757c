package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/KinuGra/tosho-2509-back/internal/domain"
)

// AwardFunc applies a step's reward to the locked user row and returns levels gained.
type AwardFunc func(user *domain.User, step *domain.Step) int

// ClearResult describes the outcome of clearing a step.
type ClearResult struct {
	User           *domain.User
	Step           *domain.Step
	AlreadyCleared bool
	LevelsGained   int
}

// ProgressRepository persists topics, steps and per-user progress.
type ProgressRepository interface {
	GetStep(ctx context.Context, id int) (*domain.Step, error)
	ListSteps(ctx context.Context, topicID int) ([]domain.Step, error)
	ClearStep(ctx context.Context, userID string, stepID int, clearedAt time.Time, award AwardFunc) (*ClearResult, error)
	EnsureTopic(ctx context.Context, topic *domain.Topic) (bool, error)
	EnsureStep(ctx context.Context, step *domain.Step) (bool, error)
}

type progressRepository struct {
	db DB
}

// NewProgressRepository returns a Postgres-backed implementation.
func NewProgressRepository(db DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) GetStep(ctx context.Context, id int) (*domain.Step, error) {
	const query = `
        SELECT id, topic_id, order_no, title, xp_reward
        FROM steps WHERE id=$1`
	return scanStep(r.db.QueryRow(ctx, query, id))
}

func (r *progressRepository) ListSteps(ctx context.Context, topicID int) ([]domain.Step, error) {
	const query = `
        SELECT id, topic_id, order_no, title, xp_reward
        FROM steps WHERE topic_id=$1
        ORDER BY order_no`

	rows, err := r.db.Query(ctx, query, topicID)
	if err != nil {
		return nil, fmt.Errorf("select steps: %w", err)
	}
	defer rows.Close()

	var steps []domain.Step
	for rows.Next() {
		var s domain.Step
		if err := rows.Scan(&s.ID, &s.TopicID, &s.OrderNo, &s.Title, &s.XPReward); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// ClearStep marks the step cleared and applies award in one transaction.
// A step that was already cleared leaves the user untouched.
func (r *progressRepository) ClearStep(ctx context.Context, userID string, stepID int, clearedAt time.Time, award AwardFunc) (*ClearResult, error) {
	const (
		stepQuery = `
        SELECT id, topic_id, order_no, title, xp_reward
        FROM steps WHERE id=$1`
		userQuery = `
        SELECT id, email, password_hash, is_active, level, exp, created_at
        FROM users WHERE id=$1 FOR UPDATE`
		progressQuery = `
        SELECT is_cleared FROM user_step_progress
        WHERE user_id=$1 AND step_id=$2`
		upsertProgress = `
        INSERT INTO user_step_progress (user_id, step_id, is_cleared, cleared_at)
        VALUES ($1, $2, TRUE, $3)
        ON CONFLICT (user_id, step_id) DO UPDATE SET is_cleared=TRUE, cleared_at=EXCLUDED.cleared_at`
		updateUser = `
        UPDATE users SET level=$2, exp=$3 WHERE id=$1`
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin progress tx: %w", err)
	}
	defer rollback(ctx, tx)

	step, err := scanStep(tx.QueryRow(ctx, stepQuery, stepID))
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := tx.QueryRow(ctx, userQuery, userID).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.Level,
		&user.Exp,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock user: %w", err)
	}

	result := &ClearResult{User: &user, Step: step}

	var cleared bool
	err = tx.QueryRow(ctx, progressQuery, userID, stepID).Scan(&cleared)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("select progress: %w", err)
	}
	if cleared {
		result.AlreadyCleared = true
		return result, nil
	}

	if _, err := tx.Exec(ctx, upsertProgress, userID, stepID, clearedAt); err != nil {
		return nil, fmt.Errorf("upsert progress: %w", err)
	}
	result.LevelsGained = award(&user, step)
	if _, err := tx.Exec(ctx, updateUser, user.ID, user.Level, user.Exp); err != nil {
		return nil, fmt.Errorf("update user xp: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit progress tx: %w", err)
	}
	return result, nil
}

// EnsureTopic inserts the topic unless one with the same title exists and fills in its ID.
func (r *progressRepository) EnsureTopic(ctx context.Context, topic *domain.Topic) (bool, error) {
	const (
		insertQuery = `
        INSERT INTO topics (title, description) VALUES ($1, $2)
        ON CONFLICT (title) DO NOTHING
        RETURNING id`
		selectQuery = `SELECT id FROM topics WHERE title=$1`
	)

	err := r.db.QueryRow(ctx, insertQuery, topic.Title, topic.Description).Scan(&topic.ID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("insert topic: %w", err)
	}
	if err := r.db.QueryRow(ctx, selectQuery, topic.Title).Scan(&topic.ID); err != nil {
		return false, fmt.Errorf("select topic: %w", err)
	}
	return false, nil
}

// EnsureStep inserts the step unless its (topic, order) slot is taken and fills in its ID.
func (r *progressRepository) EnsureStep(ctx context.Context, step *domain.Step) (bool, error) {
	const (
		insertQuery = `
        INSERT INTO steps (topic_id, order_no, title, xp_reward) VALUES ($1, $2, $3, $4)
        ON CONFLICT (topic_id, order_no) DO NOTHING
        RETURNING id`
		selectQuery = `SELECT id FROM steps WHERE topic_id=$1 AND order_no=$2`
	)

	err := r.db.QueryRow(ctx, insertQuery, step.TopicID, step.OrderNo, step.Title, step.XPReward).Scan(&step.ID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("insert step: %w", err)
	}
	if err := r.db.QueryRow(ctx, selectQuery, step.TopicID, step.OrderNo).Scan(&step.ID); err != nil {
		return false, fmt.Errorf("select step: %w", err)
	}
	return false, nil
}

func scanStep(row pgx.Row) (*domain.Step, error) {
	var s domain.Step
	if err := row.Scan(&s.ID, &s.TopicID, &s.OrderNo, &s.Title, &s.XPReward); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select step: %w", err)
	}
	return &s, nil
}
