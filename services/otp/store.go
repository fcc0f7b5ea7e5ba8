package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stylo/config"
	"stylo/models"
	"stylo/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	challengePrefix = "otp:booking:"
	attemptsPrefix  = "otp:attempts:"
)

var (
	// ErrExpired means no live challenge exists for the session.
	ErrExpired = errors.New("otp expired or not issued")
	// ErrLocked means the session used up its verification attempts.
	ErrLocked = errors.New("too many failed otp attempts")
)

// MismatchError is returned by Verify for a wrong code that still leaves attempts.
type MismatchError struct {
	Remaining int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("otp mismatch, %d attempts remaining", e.Remaining)
}

// Store issues and verifies the one-time codes of booking sessions.
type Store interface {
	// Issue replaces any previous challenge of the session with a fresh code.
	Issue(ctx context.Context, sessionToken, phoneNumber string) (string, *models.OTPChallenge, error)
	// Verify checks code against the live challenge. Every wrong code counts
	// against the session. A match leaves the challenge in place; callers
	// Invalidate it once the booking is written.
	Verify(ctx context.Context, sessionToken, code string) error
	// Locked reports whether the session exhausted its attempts.
	Locked(ctx context.Context, sessionToken string) (bool, error)
	// Invalidate drops the challenge and the attempt counter of a session.
	Invalidate(ctx context.Context, sessionToken string) error
}

// Options tune code generation and lockout.
type Options struct {
	Length      int
	Expiry      time.Duration
	MaxAttempts int
	// AttemptsTTL bounds the life of the attempt counter; it outlives single challenges
	// so resending never resets a lockout.
	AttemptsTTL time.Duration
}

// OptionsFromConfig builds Options from the OTP and session settings.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Length:      cfg.OTPLength,
		Expiry:      cfg.OTPExpiry(),
		MaxAttempts: cfg.OTPMaxAttempts,
		AttemptsTTL: cfg.SessionTTL(),
	}
}

// RedisStore keeps challenges in the OTP Redis DB, hashed with bcrypt.
type RedisStore struct {
	client *redis.Client
	opts   Options
	logger *zap.Logger
	now    func() time.Time
	check  func(hash, code string) bool
}

func NewRedisStore(client *redis.Client, opts Options, logger *zap.Logger) *RedisStore {
	if opts.Length <= 0 {
		opts.Length = 6
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Expiry <= 0 {
		opts.Expiry = 5 * time.Minute
	}
	if opts.AttemptsTTL < opts.Expiry {
		opts.AttemptsTTL = opts.Expiry
	}
	return &RedisStore{client: client, opts: opts, logger: logger, now: time.Now, check: utils.CheckOTP}
}

func challengeKey(token string) string { return challengePrefix + token }
func attemptsKey(token string) string  { return attemptsPrefix + token }

func (s *RedisStore) attempts(ctx context.Context, token string) (int, error) {
	n, err := s.client.Get(ctx, attemptsKey(token)).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read otp attempts: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Locked(ctx context.Context, sessionToken string) (bool, error) {
	n, err := s.attempts(ctx, sessionToken)
	if err != nil {
		return false, err
	}
	return n >= s.opts.MaxAttempts, nil
}

func (s *RedisStore) Issue(ctx context.Context, sessionToken, phoneNumber string) (string, *models.OTPChallenge, error) {
	n, err := s.attempts(ctx, sessionToken)
	if err != nil {
		return "", nil, err
	}
	if n >= s.opts.MaxAttempts {
		return "", nil, ErrLocked
	}

	code, err := utils.GenerateNumericOTP(s.opts.Length)
	if err != nil {
		return "", nil, err
	}
	hash, err := utils.HashOTP(code)
	if err != nil {
		return "", nil, err
	}

	now := s.now()
	ch := &models.OTPChallenge{
		SessionToken: sessionToken,
		PhoneNumber:  phoneNumber,
		CodeHash:     hash,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.opts.Expiry),
		Attempts:     n,
		MaxAttempts:  s.opts.MaxAttempts,
	}
	data, err := json.Marshal(ch)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal otp challenge: %w", err)
	}
	// Set overwrites, so the previous code of this session stops verifying here.
	if err := s.client.Set(ctx, challengeKey(sessionToken), data, s.opts.Expiry).Err(); err != nil {
		s.logger.Error("Failed to cache OTP", zap.Error(err))
		return "", nil, fmt.Errorf("failed to store otp challenge: %w", err)
	}
	return code, ch, nil
}

func (s *RedisStore) load(ctx context.Context, token string) (*models.OTPChallenge, error) {
	data, err := s.client.Get(ctx, challengeKey(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("failed to retrieve otp challenge: %w", err)
	}
	var ch models.OTPChallenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal otp challenge: %w", err)
	}
	if s.now().After(ch.ExpiresAt) {
		return nil, ErrExpired
	}
	return &ch, nil
}

func (s *RedisStore) Verify(ctx context.Context, sessionToken, code string) error {
	// The attempt is reserved before the comparison so parallel guesses can
	// not all slip past the limit while bcrypt runs.
	n, err := s.client.Incr(ctx, attemptsKey(sessionToken)).Result()
	if err != nil {
		return fmt.Errorf("failed to record otp attempt: %w", err)
	}
	if n == 1 {
		s.client.Expire(ctx, attemptsKey(sessionToken), s.opts.AttemptsTTL)
	}
	if int(n) > s.opts.MaxAttempts {
		return ErrLocked
	}

	ch, err := s.load(ctx, sessionToken)
	if err != nil {
		s.giveBack(ctx, sessionToken)
		return err
	}

	if !s.check(ch.CodeHash, code) {
		remaining := s.opts.MaxAttempts - int(n)
		if remaining <= 0 {
			if err := s.client.Del(ctx, challengeKey(sessionToken)).Err(); err != nil {
				s.logger.Warn("Failed to drop locked OTP challenge", zap.Error(err))
			}
			return ErrLocked
		}
		return &MismatchError{Remaining: remaining}
	}

	// A match is not a failed attempt. The challenge stays until Invalidate,
	// so a booking that fails to persist can be retried with the same code.
	s.giveBack(ctx, sessionToken)
	return nil
}

func (s *RedisStore) giveBack(ctx context.Context, token string) {
	if err := s.client.Decr(ctx, attemptsKey(token)).Err(); err != nil {
		s.logger.Warn("Failed to release OTP attempt", zap.Error(err))
	}
}

func (s *RedisStore) Invalidate(ctx context.Context, sessionToken string) error {
	if err := s.client.Del(ctx, challengeKey(sessionToken), attemptsKey(sessionToken)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate otp: %w", err)
	}
	return nil
}
