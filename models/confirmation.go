package models

import "time"

// AppointmentConfirmation is the immutable record returned once a booking is verified.
type AppointmentConfirmation struct {
	ID              string    `json:"id"`
	BusinessName    string    `json:"business_name"`
	BranchName      string    `json:"branch_name"`
	BranchAddress   string    `json:"branch_address"`
	StaffName       string    `json:"staff_name"`
	StaffPhoto      *string   `json:"staff_photo"`
	ServiceName     string    `json:"service_name"`
	StartDatetime   string    `json:"start_datetime"`
	EndDatetime     string    `json:"end_datetime"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Price           string    `json:"price"`
	CreatedAt       time.Time `json:"created_at"`
}

// VerifyOTPResponse is the body of a successful verify-otp call.
type VerifyOTPResponse struct {
	Success     bool                    `json:"success"`
	Message     string                  `json:"message"`
	Appointment AppointmentConfirmation `json:"appointment"`
}
