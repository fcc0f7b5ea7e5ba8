// File: utils/constants.go
package utils

// Machine-readable error codes returned in the "code" field of error bodies.
const (
	CodeValidation          = "validation"
	CodeSlotUnavailable     = "slot_unavailable"
	CodeBusinessUnavailable = "business_unavailable"
	CodeNotFound            = "not_found"
	CodeSessionInvalid      = "session_invalid"
	CodeSessionExpired      = "session_expired"
	CodeOTPInvalid          = "otp_invalid"
	CodeOTPExpired          = "otp_expired"
	CodeOTPLocked           = "otp_locked"
	CodeInternal            = "internal"
	CodeRateLimited         = "rate_limited"
)

// BookingSessionPrefix is the prefix of booking session keys in the session cache.
const BookingSessionPrefix = "bookingSession:"
