package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/KinuGra/tosho-2509-back/internal/domain"
)

const (
	verificationKeyPrefix = "vc"
	maxWatchRetries       = 8
)

// watchBackoff paces retries after a WATCHed key changed under a transaction.
func watchBackoff() retry.Backoff {
	b := retry.NewExponential(time.Millisecond)
	b = retry.WithCappedDuration(20*time.Millisecond, b)
	return retry.WithMaxRetries(maxWatchRetries, b)
}

type redisVerificationRecord struct {
	ID           string    `json:"id"`
	Identity     string    `json:"identity"`
	CodeHash     string    `json:"code_hash"`
	ExpiresAt    time.Time `json:"expires_at"`
	AttemptsLeft int       `json:"attempts_left"`
	CreatedAt    time.Time `json:"created_at"`
}

type redisVerificationRepository struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewRedisVerificationRepository stores records as JSON under one key per identity.
// Keys outlive the code by retention so expired codes still report as expired.
func NewRedisVerificationRepository(client *redis.Client, retention time.Duration) VerificationRepository {
	return &redisVerificationRepository{
		client:    client,
		prefix:    verificationKeyPrefix,
		retention: retention,
	}
}

func (r *redisVerificationRepository) key(identity string) string {
	return r.prefix + ":" + identity
}

func (r *redisVerificationRepository) Replace(ctx context.Context, record *domain.VerificationRecord) error {
	data, err := encodeVerificationRecord(record)
	if err != nil {
		return err
	}
	ttl := record.ExpiresAt.Sub(record.CreatedAt) + r.retention
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := r.client.Set(ctx, r.key(record.Identity), data, ttl).Err(); err != nil {
		return fmt.Errorf("store verification record: %w", err)
	}
	return nil
}

func (r *redisVerificationRepository) Get(ctx context.Context, identity string) (*domain.VerificationRecord, error) {
	data, err := r.client.Get(ctx, r.key(identity)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load verification record: %w", err)
	}
	return decodeVerificationRecord(data)
}

func (r *redisVerificationRepository) Mutate(ctx context.Context, identity string, fn MutateFunc) error {
	key := r.key(identity)
	var fnErr error

	err := retry.Do(ctx, watchBackoff(), func(ctx context.Context) error {
		fnErr = nil
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			if err != nil {
				return err
			}

			record, err := decodeVerificationRecord(data)
			if err != nil {
				return err
			}

			action, err := fn(record)
			fnErr = err

			switch action {
			case RecordSave:
				updated, err := encodeVerificationRecord(record)
				if err != nil {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, redis.KeepTTL)
					return nil
				})
				return err
			case RecordDelete:
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			default:
				return nil
			}
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			return retry.RetryableError(err)
		}
		return err
	})

	switch {
	case err == nil:
		return fnErr
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, redis.TxFailedErr):
		return ErrContended
	default:
		return fmt.Errorf("mutate verification record: %w", err)
	}
}

func (r *redisVerificationRepository) DeleteIfCurrent(ctx context.Context, identity, id string) error {
	key := r.key(identity)

	err := retry.Do(ctx, watchBackoff(), func(ctx context.Context) error {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return nil
			}
			if err != nil {
				return err
			}
			record, err := decodeVerificationRecord(data)
			if err != nil {
				return err
			}
			if record.ID != id {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			return retry.RetryableError(err)
		}
		return err
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return ErrContended
	default:
		return fmt.Errorf("delete verification record: %w", err)
	}
}

// Purge is a no-op: Redis drops keys once their TTL lapses.
func (r *redisVerificationRepository) Purge(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func encodeVerificationRecord(record *domain.VerificationRecord) ([]byte, error) {
	data, err := json.Marshal(redisVerificationRecord{
		ID:           record.ID,
		Identity:     record.Identity,
		CodeHash:     record.CodeHash,
		ExpiresAt:    record.ExpiresAt,
		AttemptsLeft: record.AttemptsLeft,
		CreatedAt:    record.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode verification record: %w", err)
	}
	return data, nil
}

func decodeVerificationRecord(data []byte) (*domain.VerificationRecord, error) {
	var stored redisVerificationRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode verification record: %w", err)
	}
	return &domain.VerificationRecord{
		ID:           stored.ID,
		Identity:     stored.Identity,
		CodeHash:     stored.CodeHash,
		ExpiresAt:    stored.ExpiresAt,
		AttemptsLeft: stored.AttemptsLeft,
		CreatedAt:    stored.CreatedAt,
	}, nil
}
