package booking

import (
	"context"
	"io"
	"time"

	"stylo/config"
	appointmentRepo "stylo/database/repository/appointment"
	catalogRepo "stylo/database/repository/catalog"
	clientRepo "stylo/database/repository/client"
	"stylo/models"
	"stylo/services/availability"
	"stylo/services/identity"
	"stylo/services/notification"
	"stylo/services/otp"
	"stylo/services/storage"

	"go.uber.org/zap"
)

// BookingService runs the public booking session: start, identify, challenge, verify.
type BookingService interface {
	StartBooking(ctx context.Context, req models.StartBookingRequest) (*models.StartBookingResponse, error)
	LookupClient(ctx context.Context, documentType, documentNumber string) (*models.ClientLookupResponse, error)
	LookupReniec(ctx context.Context, dni string) (*models.RegistryPerson, error)
	SendOTP(ctx context.Context, req models.SendOTPRequest, photo *Photo) (*models.OTPSentResponse, error)
	ResendOTP(ctx context.Context, sessionToken string) (*models.OTPSentResponse, error)
	VerifyOTP(ctx context.Context, sessionToken, code string) (*models.VerifyOTPResponse, error)
}

// Photo is an optional client picture uploaded with send-otp.
type Photo struct {
	Filename string
	Content  io.Reader
}

// ReminderScheduler enqueues the delivery of a reminder at a given time.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, payload models.ReminderPayload, at time.Time) error
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Sessions      *SessionStore
	OTP           otp.Store
	Catalog       catalogRepo.CatalogRepository
	Clients       clientRepo.ClientRepository
	Appointments  appointmentRepo.AppointmentRepository
	Availability  availability.AvailabilityService
	Registry      identity.RegistryService
	Storage       storage.StorageService
	Notifications notification.NotificationService
	Reminders     ReminderScheduler
	Logger        *zap.Logger

	SessionTTL   time.Duration
	OTPExpiry    time.Duration
	MaxDaysAhead int
	Location     *time.Location
	// DebugOTP echoes issued codes in responses. It must stay off in production.
	DebugOTP bool
	Now      func() time.Time
}

// Settings copies the booking rules of cfg onto the service.
func (s *DefaultBookingService) Settings(cfg config.Config) *DefaultBookingService {
	s.SessionTTL = cfg.SessionTTL()
	s.OTPExpiry = cfg.OTPExpiry()
	s.MaxDaysAhead = cfg.BookingMaxDaysAhead
	s.Location = cfg.Location()
	s.DebugOTP = config.DebugOTPEnabled()
	return s
}

func (s *DefaultBookingService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *DefaultBookingService) sessionTTL() time.Duration {
	if s.SessionTTL <= 0 {
		return 15 * time.Minute
	}
	return s.SessionTTL
}

func (s *DefaultBookingService) otpExpiry() time.Duration {
	if s.OTPExpiry <= 0 {
		return 5 * time.Minute
	}
	return s.OTPExpiry
}

func (s *DefaultBookingService) maxDaysAhead() int {
	if s.MaxDaysAhead <= 0 {
		return 60
	}
	return s.MaxDaysAhead
}

func (s *DefaultBookingService) location(branch models.Branch) *time.Location {
	fallback := s.Location
	if fallback == nil {
		fallback = time.UTC
	}
	return branch.Location(fallback)
}
