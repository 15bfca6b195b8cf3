package repository

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"account-service/internal/interfaces"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const phoneCodeKeyPrefix = "phone_code:"

var _ interfaces.PhoneCodeRepository = (*redisPhoneCodeRepository)(nil)

type redisPhoneCodeRepository struct {
	client redis.Cmdable
	logger *zap.Logger
}

// NewRedisPhoneCodeRepository creates a Redis-backed PhoneCodeRepository.
func NewRedisPhoneCodeRepository(client redis.Cmdable, logger *zap.Logger) interfaces.PhoneCodeRepository {
	return &redisPhoneCodeRepository{
		client: client,
		logger: logger.Named("RedisPhoneCodeRepo"),
	}
}

func phoneCodeKey(userID uuid.UUID, phone string) string {
	return phoneCodeKeyPrefix + userID.String() + ":" + phone
}

// Save stores code for userID and phone, replacing any earlier code.
func (r *redisPhoneCodeRepository) Save(ctx context.Context, userID uuid.UUID, phone, code string, ttl time.Duration) error {
	if err := r.client.Set(ctx, phoneCodeKey(userID, phone), code, ttl).Err(); err != nil {
		r.logger.Error("Failed to save phone code", zap.String("userID", userID.String()), zap.String("phone", phone), zap.Error(err))
		return fmt.Errorf("failed to save phone code: %w", err)
	}
	return nil
}

// Consume deletes the stored code whether or not it matches, so each code allows a single attempt.
func (r *redisPhoneCodeRepository) Consume(ctx context.Context, userID uuid.UUID, phone, code string) (bool, error) {
	stored, err := r.client.GetDel(ctx, phoneCodeKey(userID, phone)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		r.logger.Error("Failed to consume phone code", zap.String("userID", userID.String()), zap.String("phone", phone), zap.Error(err))
		return false, fmt.Errorf("failed to consume phone code: %w", err)
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1, nil
}
