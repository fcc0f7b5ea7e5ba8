package appointmentRepo

import (
	"context"
	"time"

	"stylo/models"
)

// AppointmentRepository defines methods for appointment and reminder data access.
type AppointmentRepository interface {
	// Create inserts a new appointment.
	Create(ctx context.Context, appt *models.Appointment) error
	// GetByID retrieves an appointment, or nil when unknown.
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	// HasConflict reports whether the staff member has a pending or confirmed
	// appointment overlapping [start, end).
	HasConflict(ctx context.Context, staffID string, start, end time.Time) (bool, error)
	// ListBlocking returns the pending or confirmed appointments of a staff member overlapping [from, to).
	ListBlocking(ctx context.Context, staffID string, from, to time.Time) ([]models.Appointment, error)

	// CreateReminder inserts a scheduled reminder.
	CreateReminder(ctx context.Context, reminder *models.AppointmentReminder) error
	// GetReminder retrieves a reminder, or nil when unknown.
	GetReminder(ctx context.Context, id string) (*models.AppointmentReminder, error)
	// UpdateReminderStatus records the outcome of a reminder delivery.
	UpdateReminderStatus(ctx context.Context, id, status, errMsg string, sentAt *time.Time) error
}
