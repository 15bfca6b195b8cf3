package repository

import (
	"context"
	"fmt"
	"time"

	"account-service/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const revokedTokenKeyPrefix = "revoked_token:"

// RedisRevocationLedger stores revoked refresh token ids as self-expiring Redis keys.
type RedisRevocationLedger struct {
	client    redis.Cmdable
	retention time.Duration
	logger    *zap.Logger
}

// NewRedisRevocationLedger returns a ledger whose entries expire after retention,
// which should be at least the refresh token lifetime.
func NewRedisRevocationLedger(client redis.Cmdable, retention time.Duration, logger *zap.Logger) *RedisRevocationLedger {
	return &RedisRevocationLedger{
		client:    client,
		retention: retention,
		logger:    logger.Named("RedisRevocationLedger"),
	}
}

// Insert records tid with SET NX. An existing entry yields models.ErrConflict.
func (l *RedisRevocationLedger) Insert(ctx context.Context, tid string) (models.RevokedToken, error) {
	rec := models.RevokedToken{TID: tid, CreatedAt: time.Now().UTC()}
	key := revokedTokenKeyPrefix + tid

	l.logger.Debug("Inserting revoked token", zap.String("key", key), zap.Duration("retention", l.retention))
	ok, err := l.client.SetNX(ctx, key, rec.CreatedAt.Unix(), l.retention).Result()
	if err != nil {
		l.logger.Error("Failed to insert revoked token", zap.String("tid", tid), zap.Error(err))
		return models.RevokedToken{}, fmt.Errorf("failed to insert revoked token: %w", err)
	}
	if !ok {
		return models.RevokedToken{}, fmt.Errorf("%w: token %s is already in the ledger", models.ErrConflict, tid)
	}
	return rec, nil
}

// Exists reports whether tid has been revoked and not yet expired.
func (l *RedisRevocationLedger) Exists(ctx context.Context, tid string) (bool, error) {
	n, err := l.client.Exists(ctx, revokedTokenKeyPrefix+tid).Result()
	if err != nil {
		l.logger.Error("Failed to check revoked token", zap.String("tid", tid), zap.Error(err))
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return n > 0, nil
}
