package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stylo/models"
	"stylo/utils"

	"github.com/go-redis/redis/v8"
)

const (
	// expiredGrace keeps an expired session readable for a while so late calls
	// get "session expired" instead of "invalid session".
	expiredGrace = 10 * time.Minute
	// completedTTL is how long a verified session is kept to reject replays.
	completedTTL = 30 * time.Minute
)

// errAlreadyClaimed is returned by Claim when the session is no longer awaiting verification.
var errAlreadyClaimed = errors.New("booking session already claimed")

// SessionStore persists booking sessions in the session cache.
type SessionStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client, now: time.Now}
}

func sessionKey(token string) string {
	return utils.BookingSessionPrefix + token
}

func (s *SessionStore) ttlFor(session *models.BookingSession) time.Duration {
	if session.Status == models.SessionCompleted {
		return completedTTL
	}
	ttl := session.ExpiresAt.Sub(s.now()) + expiredGrace
	if ttl <= 0 {
		ttl = time.Second
	}
	return ttl
}

// Save writes the session, keeping it until shortly after its expiry.
func (s *SessionStore) Save(ctx context.Context, session *models.BookingSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal booking session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.Token), data, s.ttlFor(session)).Err(); err != nil {
		return fmt.Errorf("failed to store booking session: %w", err)
	}
	return nil
}

// Get returns the session stored under token, or nil when there is none.
func (s *SessionStore) Get(ctx context.Context, token string) (*models.BookingSession, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve booking session: %w", err)
	}
	var session models.BookingSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse booking session: %w", err)
	}
	return &session, nil
}

// Claim moves an OTP_SENT session to COMPLETED inside a WATCH transaction, so
// exactly one caller wins. Losers get errAlreadyClaimed.
func (s *SessionStore) Claim(ctx context.Context, token, appointmentID string) (*models.BookingSession, error) {
	key := sessionKey(token)
	var claimed *models.BookingSession

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return errAlreadyClaimed
			}
			return err
		}
		var session models.BookingSession
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("failed to parse booking session: %w", err)
		}
		if session.Status != models.SessionOTPSent {
			return errAlreadyClaimed
		}

		verifiedAt := s.now()
		session.Status = models.SessionCompleted
		session.VerifiedAt = &verifiedAt
		session.AppointmentID = appointmentID
		updated, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal booking session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, completedTTL)
			return nil
		})
		if err != nil {
			return err
		}
		claimed = &session
		return nil
	}

	if err := s.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) || errors.Is(err, errAlreadyClaimed) {
			return nil, errAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim booking session: %w", err)
	}
	return claimed, nil
}

// Release hands a claimed session back to OTP_SENT after a failure that happened
// before the appointment was written.
func (s *SessionStore) Release(ctx context.Context, session *models.BookingSession) error {
	session.Status = models.SessionOTPSent
	session.VerifiedAt = nil
	session.AppointmentID = ""
	return s.Save(ctx, session)
}
