package models

import "time"

// Booking session statuses.
const (
	SessionPending   = "PENDING"
	SessionOTPSent   = "OTP_SENT"
	SessionCompleted = "COMPLETED"
	SessionExpired   = "EXPIRED"
)

// BookingSession holds a provisional slot hold between start and OTP verification.
// It lives only in the session cache, keyed by its token.
type BookingSession struct {
	Token     string    `json:"sessionToken"`
	Status    string    `json:"status"`
	BranchID  string    `json:"branchId"`
	ServiceID string    `json:"serviceId"`
	StaffID   string    `json:"staffId"`
	Start     time.Time `json:"startDatetime"`
	End       time.Time `json:"endDatetime"`
	Notes     string    `json:"notes,omitempty"`
	Price     float64   `json:"price"`

	// Filled at send-otp.
	Client *SessionClient `json:"client,omitempty"`

	AppointmentID string     `json:"appointmentId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	VerifiedAt    *time.Time `json:"verifiedAt,omitempty"`
}

// SessionClient is the client data captured during a booking session.
type SessionClient struct {
	PhoneNumber     string `json:"phoneNumber"`
	DocumentType    string `json:"documentType"`
	DocumentNumber  string `json:"documentNumber"`
	FirstName       string `json:"firstName"`
	LastNamePaterno string `json:"lastNamePaterno"`
	LastNameMaterno string `json:"lastNameMaterno,omitempty"`
	Email           string `json:"email,omitempty"`
	Gender          string `json:"gender"`
	BirthDate       string `json:"birthDate,omitempty"`
	PhotoURL        string `json:"photoUrl,omitempty"`
}

func (s BookingSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// StartBookingRequest is the body of the start endpoint. StaffID nil means no preference.
type StartBookingRequest struct {
	BranchID      string  `json:"branch_id" binding:"required"`
	ServiceID     string  `json:"service_id" binding:"required"`
	StaffID       *string `json:"staff_id"`
	StartDatetime string  `json:"start_datetime" binding:"required"`
	Notes         string  `json:"notes"`
}

// BookingSummary describes the slot held by a booking session.
type BookingSummary struct {
	BusinessName    string  `json:"business_name"`
	BranchName      string  `json:"branch_name"`
	BranchAddress   string  `json:"branch_address"`
	ServiceID       string  `json:"service_id"`
	ServiceName     string  `json:"service_name"`
	ServiceDuration int     `json:"service_duration"`
	StaffID         string  `json:"staff_id"`
	StaffName       string  `json:"staff_name"`
	StaffPhoto      *string `json:"staff_photo"`
	StartDatetime   string  `json:"start_datetime"`
	EndDatetime     string  `json:"end_datetime"`
	Price           string  `json:"price"`
}

type StartBookingResponse struct {
	SessionToken   string         `json:"session_token"`
	ExpiresIn      int            `json:"expires_in"`
	BookingSummary BookingSummary `json:"booking_summary"`
}

// SendOTPRequest carries the client identity submitted at the client step.
type SendOTPRequest struct {
	SessionToken    string `json:"session_token" form:"session_token" binding:"required"`
	PhoneNumber     string `json:"phone_number" form:"phone_number"`
	DocumentType    string `json:"document_type" form:"document_type"`
	DocumentNumber  string `json:"document_number" form:"document_number"`
	FirstName       string `json:"first_name" form:"first_name"`
	LastNamePaterno string `json:"last_name_paterno" form:"last_name_paterno"`
	LastNameMaterno string `json:"last_name_materno" form:"last_name_materno"`
	Email           string `json:"email" form:"email"`
	Gender          string `json:"gender" form:"gender"`
	BirthDate       string `json:"birth_date" form:"birth_date"`
}

// OTPSentResponse answers send-otp and resend-otp. DebugOTP is only set outside production.
type OTPSentResponse struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
	DebugOTP  string `json:"debug_otp,omitempty"`
}

type ResendOTPRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
}

type VerifyOTPRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
	OTPCode      string `json:"otp_code" binding:"required"`
}

type LookupClientRequest struct {
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
}

type LookupReniecRequest struct {
	DNI string `json:"dni"`
}
