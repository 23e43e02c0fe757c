package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/KinuGra/tosho-2509-back/internal/domain"
)

type postgresVerificationRepository struct {
	db DB
}

// NewPostgresVerificationRepository keys records by identity in verification_codes.
func NewPostgresVerificationRepository(db DB) VerificationRepository {
	return &postgresVerificationRepository{db: db}
}

func (r *postgresVerificationRepository) Replace(ctx context.Context, record *domain.VerificationRecord) error {
	const query = `
        INSERT INTO verification_codes (identity, id, code_hash, expires_at, attempts_left, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (identity) DO UPDATE SET
            id = EXCLUDED.id,
            code_hash = EXCLUDED.code_hash,
            expires_at = EXCLUDED.expires_at,
            attempts_left = EXCLUDED.attempts_left,
            created_at = EXCLUDED.created_at`

	if _, err := r.db.Exec(ctx, query,
		record.Identity,
		record.ID,
		record.CodeHash,
		record.ExpiresAt,
		record.AttemptsLeft,
		record.CreatedAt,
	); err != nil {
		return fmt.Errorf("store verification record: %w", err)
	}
	return nil
}

func (r *postgresVerificationRepository) Get(ctx context.Context, identity string) (*domain.VerificationRecord, error) {
	const query = `
        SELECT identity, id, code_hash, expires_at, attempts_left, created_at
        FROM verification_codes WHERE identity=$1`
	return scanVerificationRecord(r.db.QueryRow(ctx, query, identity))
}

func (r *postgresVerificationRepository) Mutate(ctx context.Context, identity string, fn MutateFunc) error {
	const (
		selectQuery = `
        SELECT identity, id, code_hash, expires_at, attempts_left, created_at
        FROM verification_codes WHERE identity=$1 FOR UPDATE`
		updateQuery = `
        UPDATE verification_codes SET attempts_left=$3
        WHERE identity=$1 AND id=$2`
		deleteQuery = `
        DELETE FROM verification_codes
        WHERE identity=$1 AND id=$2`
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin verification tx: %w", err)
	}
	defer rollback(ctx, tx)

	record, err := scanVerificationRecord(tx.QueryRow(ctx, selectQuery, identity))
	if err != nil {
		return err
	}

	action, fnErr := fn(record)
	switch action {
	case RecordSave:
		if _, err := tx.Exec(ctx, updateQuery, record.Identity, record.ID, record.AttemptsLeft); err != nil {
			return fmt.Errorf("update verification record: %w", err)
		}
	case RecordDelete:
		if _, err := tx.Exec(ctx, deleteQuery, record.Identity, record.ID); err != nil {
			return fmt.Errorf("delete verification record: %w", err)
		}
	default:
		return fnErr
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit verification tx: %w", err)
	}
	return fnErr
}

func (r *postgresVerificationRepository) DeleteIfCurrent(ctx context.Context, identity, id string) error {
	const query = `DELETE FROM verification_codes WHERE identity=$1 AND id=$2`
	if _, err := r.db.Exec(ctx, query, identity, id); err != nil {
		return fmt.Errorf("delete verification record: %w", err)
	}
	return nil
}

func (r *postgresVerificationRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM verification_codes WHERE expires_at < $1`
	cmd, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge verification records: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func scanVerificationRecord(row pgx.Row) (*domain.VerificationRecord, error) {
	var record domain.VerificationRecord
	if err := row.Scan(
		&record.Identity,
		&record.ID,
		&record.CodeHash,
		&record.ExpiresAt,
		&record.AttemptsLeft,
		&record.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select verification record: %w", err)
	}
	return &record, nil
}
