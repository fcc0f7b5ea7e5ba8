package models

import "time"

// OTPChallenge is the single active one-time code of a booking session.
// Only the bcrypt hash of the code is stored.
type OTPChallenge struct {
	SessionToken string    `json:"sessionToken"`
	PhoneNumber  string    `json:"phoneNumber"`
	CodeHash     string    `json:"codeHash"`
	IssuedAt     time.Time `json:"issuedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Attempts     int       `json:"attempts"`
	MaxAttempts  int       `json:"maxAttempts"`
}
