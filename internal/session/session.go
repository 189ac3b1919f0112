// Package session keeps short-lived authentication state in Redis: revoked
// bearer tokens and one-time codes mailed to users.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/config"
)

// OTP purposes, used as the key suffix.
const (
	PurposeVerifyEmail   = "verify_email"
	PurposeResetPassword = "reset_password"
)

type Store struct {
	cfg *config.Config
	rdb *redis.Client
}

func NewStore(cfg *config.Config, rdb *redis.Client) *Store {
	return &Store{cfg: cfg, rdb: rdb}
}

func otpKey(purpose, email string) string {
	return fmt.Sprintf("otp_%s_%s", email, purpose)
}

func otpAttemptsKey(purpose, email string) string {
	return fmt.Sprintf("otp_attempts_%s_%s", email, purpose)
}

func revokedKey(token string) string {
	return fmt.Sprintf("revoked_%s", token)
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(s.cfg.Redis.OperationTimeout)*time.Second)
}

// Revoke blacklists token for ttl. A non-positive ttl means the token has
// already expired and nothing is stored.
func (s *Store) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return s.rdb.Set(ctx, revokedKey(token), 1, ttl).Err()
}

func (s *Store) IsRevoked(ctx context.Context, token string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	n, err := s.rdb.Exists(ctx, revokedKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveOTP replaces any previous code and clears its failure count.
func (s *Store) SaveOTP(ctx context.Context, purpose, email, otp string, ttl time.Duration) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, otpKey(purpose, email), otp, ttl)
		pipe.Del(ctx, otpAttemptsKey(purpose, email))
		return nil
	})
	return err
}

// CheckOTP reports whether otp matches the stored code. A missing or expired
// code is a mismatch, not an error.
func (s *Store) CheckOTP(ctx context.Context, purpose, email, otp string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	stored, err := s.rdb.Get(ctx, otpKey(purpose, email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return stored == otp, nil
}

// RecordOTPFailure counts a wrong guess against the live code. Once limit
// guesses have failed the code is deleted and true is returned. Without a
// live code nothing is counted.
func (s *Store) RecordOTPFailure(ctx context.Context, purpose, email string, limit int) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ttl, err := s.rdb.TTL(ctx, otpKey(purpose, email)).Result()
	if err != nil {
		return false, err
	}
	if ttl < 0 {
		return false, nil
	}

	attemptsKey := otpAttemptsKey(purpose, email)
	n, err := s.rdb.Incr(ctx, attemptsKey).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		// the counter dies with the code it guards
		if err := s.rdb.Expire(ctx, attemptsKey, ttl).Err(); err != nil {
			return false, err
		}
	}
	if n < int64(limit) {
		return false, nil
	}

	return true, s.rdb.Del(ctx, otpKey(purpose, email), attemptsKey).Err()
}

func (s *Store) DeleteOTP(ctx context.Context, purpose, email string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return s.rdb.Del(ctx, otpKey(purpose, email), otpAttemptsKey(purpose, email)).Err()
}
