package models

import "time"

// Appointment statuses.
const (
	AppointmentPending    = "pending"
	AppointmentConfirmed  = "confirmed"
	AppointmentInProgress = "in_progress"
	AppointmentCompleted  = "completed"
	AppointmentCancelled  = "cancelled"
	AppointmentNoShow     = "no_show"
)

// BlockingStatuses are the appointment statuses that occupy a staff member's calendar.
var BlockingStatuses = []string{AppointmentPending, AppointmentConfirmed}

// Appointment is a confirmed booking record.
type Appointment struct {
	ID        string    `bson:"id" json:"id"`
	BranchID  string    `bson:"branch_id" json:"branch_id"`
	ClientID  string    `bson:"client_id" json:"client_id"`
	StaffID   string    `bson:"staff_id" json:"staff_id"`
	ServiceID string    `bson:"service_id" json:"service_id"`
	Start     time.Time `bson:"start_datetime" json:"start_datetime"`
	End       time.Time `bson:"end_datetime" json:"end_datetime"`
	Status    string    `bson:"status" json:"status"`
	Notes     string    `bson:"notes,omitempty" json:"notes,omitempty"`
	Price     float64   `bson:"price" json:"price"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (a Appointment) DurationMinutes() int {
	return int(a.End.Sub(a.Start).Minutes())
}

// Reminder statuses.
const (
	ReminderPending   = "pending"
	ReminderSent      = "sent"
	ReminderFailed    = "failed"
	ReminderCancelled = "cancelled"
)

// AppointmentReminder tracks one scheduled reminder of an appointment.
type AppointmentReminder struct {
	ID            string     `bson:"id" json:"id"`
	AppointmentID string     `bson:"appointment_id" json:"appointment_id"`
	Channel       string     `bson:"channel" json:"channel"`
	ScheduledAt   time.Time  `bson:"scheduled_at" json:"scheduled_at"`
	SentAt        *time.Time `bson:"sent_at,omitempty" json:"sent_at,omitempty"`
	Status        string     `bson:"status" json:"status"`
	ErrorMessage  string     `bson:"error_message,omitempty" json:"error_message,omitempty"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
}

// ReminderPayload is the task payload of a scheduled appointment reminder.
type ReminderPayload struct {
	ReminderID    string `json:"reminderId"`
	AppointmentID string `json:"appointmentId"`
}
