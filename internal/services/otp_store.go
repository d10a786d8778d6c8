package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
)

var (
	ErrOTPNotFound    = errors.New("no pending OTP for this phone number")
	ErrOTPMaxAttempts = errors.New("too many incorrect attempts, request a new OTP")
)

const otpMaxAttempts = 5

// OTPStore keeps pending OTP hashes with a TTL and counts verification
// attempts. Codes are single-use: Consume removes the entry.
type OTPStore interface {
	Save(ctx context.Context, phoneNumber, codeHash string, ttl time.Duration) error
	// IncrementAttempts bumps the attempt counter and returns
	// ErrOTPMaxAttempts once the limit is reached.
	IncrementAttempts(ctx context.Context, phoneNumber string) error
	GetHash(ctx context.Context, phoneNumber string) (string, error)
	Consume(ctx context.Context, phoneNumber string) error
}

type redisOTPStore struct {
	rdb *redis.Client
	log *logger.Logger
}

func NewRedisOTPStore(rdb *redis.Client, baseLog *logger.Logger) OTPStore {
	return &redisOTPStore{rdb: rdb, log: baseLog.With("service", "OTPStore")}
}

func otpKey(phone string) string        { return "otp:code:" + phone }
func otpAttemptKey(phone string) string { return "otp:attempts:" + phone }

func (s *redisOTPStore) Save(ctx context.Context, phoneNumber, codeHash string, ttl time.Duration) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, otpKey(phoneNumber), codeHash, ttl)
	pipe.Set(ctx, otpAttemptKey(phoneNumber), 0, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}
	return nil
}

func (s *redisOTPStore) IncrementAttempts(ctx context.Context, phoneNumber string) error {
	n, err := s.rdb.Incr(ctx, otpAttemptKey(phoneNumber)).Result()
	if err != nil {
		return fmt.Errorf("failed to count OTP attempt: %w", err)
	}
	if n > otpMaxAttempts {
		// Burn the code so further guessing is pointless.
		_ = s.Consume(ctx, phoneNumber)
		return ErrOTPMaxAttempts
	}
	return nil
}

func (s *redisOTPStore) GetHash(ctx context.Context, phoneNumber string) (string, error) {
	hash, err := s.rdb.Get(ctx, otpKey(phoneNumber)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrOTPNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load OTP: %w", err)
	}
	return hash, nil
}

func (s *redisOTPStore) Consume(ctx context.Context, phoneNumber string) error {
	return s.rdb.Del(ctx, otpKey(phoneNumber), otpAttemptKey(phoneNumber)).Err()
}
