package otp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stylo/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	utils.OTPHashCost = bcrypt.MinCost

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client, Options{
		Length:      6,
		Expiry:      5 * time.Minute,
		MaxAttempts: 3,
		AttemptsTTL: 15 * time.Minute,
	}, zap.NewNop())
	return store, mr
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestIssueStoresHashedChallenge(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	code, ch, err := store.Issue(ctx, "tok", "+51987654321")
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Equal(t, "+51987654321", ch.PhoneNumber)
	assert.Equal(t, 3, ch.MaxAttempts)

	raw, err := mr.Get(challengeKey("tok"))
	require.NoError(t, err)
	assert.NotContains(t, raw, code)
	assert.InDelta(t, (5 * time.Minute).Seconds(), mr.TTL(challengeKey("tok")).Seconds(), 1)
}

func TestVerifyKeepsChallengeUntilInvalidated(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	code, _, err := store.Issue(ctx, "tok", "+51987654321")
	require.NoError(t, err)

	require.NoError(t, store.Verify(ctx, "tok", code))
	require.NoError(t, store.Verify(ctx, "tok", code))

	locked, err := store.Locked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, locked, "a matching code is not a failed attempt")

	require.NoError(t, store.Invalidate(ctx, "tok"))
	assert.ErrorIs(t, store.Verify(ctx, "tok", code), ErrExpired)
}

func TestParallelGuessesRespectAttemptLimit(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	code, _, err := store.Issue(ctx, "tok", "+51987654321")
	require.NoError(t, err)

	var wrongChecks atomic.Int32
	store.check = func(hash, guess string) bool {
		if guess != code {
			wrongChecks.Add(1)
		}
		return utils.CheckOTP(hash, guess)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		guess := code
		if i > 0 {
			guess = fmt.Sprintf("%06d", (i*7919)%1000000)
			if guess == code {
				guess = wrongCode(code)
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Verify(ctx, "tok", guess)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, int(wrongChecks.Load()), 3)
}

func TestOnlyLatestCodeVerifiesAfterResends(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var codes []string
	for i := 0; i < 4; i++ {
		code, _, err := store.Issue(ctx, "tok", "+51987654321")
		require.NoError(t, err)
		codes = append(codes, code)
	}
	latest := codes[len(codes)-1]

	// An older code only verifies if it happens to equal the latest one.
	older := codes[0]
	if older != latest {
		var mm *MismatchError
		require.True(t, errors.As(store.Verify(ctx, "tok", older), &mm))
		assert.Equal(t, 2, mm.Remaining)
	}
	assert.NoError(t, store.Verify(ctx, "tok", latest))
}

func TestWrongCodesLockSession(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	code, _, err := store.Issue(ctx, "tok", "+51987654321")
	require.NoError(t, err)
	bad := wrongCode(code)

	var mm *MismatchError
	require.True(t, errors.As(store.Verify(ctx, "tok", bad), &mm))
	assert.Equal(t, 2, mm.Remaining)
	require.True(t, errors.As(store.Verify(ctx, "tok", bad), &mm))
	assert.Equal(t, 1, mm.Remaining)
	assert.ErrorIs(t, store.Verify(ctx, "tok", bad), ErrLocked)

	// The correct code no longer helps and resending can not reset the counter.
	assert.ErrorIs(t, store.Verify(ctx, "tok", code), ErrLocked)
	_, _, err = store.Issue(ctx, "tok", "+51987654321")
	assert.ErrorIs(t, err, ErrLocked)

	locked, err := store.Locked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestAttemptsCarryOverResend(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	code, _, err := store.Issue(ctx, "tok", "+51987654321")
	require.NoError(t, err)
	var mm *MismatchError
	require.True(t, errors.As(store.Verify(ctx, "tok", wrongCode(code)), &mm))

	_, ch, err := store.Issue(ctx, "tok", "+51987654321")
	require.NoError(t, err)
	assert.Equal(t, 1, ch.Attempts)
}

func TestVerifyExpiredChallenge(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	code, _, err := store.Issue(ctx, "tok", "+51987654321")
	require.NoError(t, err)

	store.now = func() time.Time { return time.Now().Add(6 * time.Minute) }
	assert.ErrorIs(t, store.Verify(ctx, "tok", code), ErrExpired)
}

func TestVerifyWithoutChallenge(t *testing.T) {
	store, _ := newTestStore(t)
	assert.ErrorIs(t, store.Verify(context.Background(), "missing", "123456"), ErrExpired)
}

func TestInvalidate(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.Issue(ctx, "tok", "+51987654321")
	require.NoError(t, err)
	require.NoError(t, store.Invalidate(ctx, "tok"))
	assert.False(t, mr.Exists(challengeKey("tok")))
}
