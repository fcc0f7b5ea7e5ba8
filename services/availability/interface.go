package availability

import (
	"context"
	"time"

	"stylo/config"
	appointmentRepo "stylo/database/repository/appointment"
	catalogRepo "stylo/database/repository/catalog"
	"stylo/models"
)

// AvailabilityService computes bookable slots from schedules, blocks and existing appointments.
type AvailabilityService interface {
	// GetAvailableSlots lists the free slots of a service on a YYYY-MM-DD date.
	// A nil staffID means any bookable staff member.
	GetAvailableSlots(ctx context.Context, branchID, serviceID string, staffID *string, date string) (*models.AvailabilityResponse, error)
	// GetMonthAvailability summarizes each remaining bookable day of a YYYY-MM month.
	GetMonthAvailability(ctx context.Context, branchID, serviceID string, staffID *string, month string) (*models.MonthAvailabilityResponse, error)
	// FirstAvailableStaff returns the first staff member with a free slot starting exactly at start,
	// or nil when nobody is free.
	FirstAvailableStaff(ctx context.Context, branch models.Branch, service models.Service, start time.Time) (*models.StaffMember, error)
}

// DefaultAvailabilityService implements AvailabilityService.
type DefaultAvailabilityService struct {
	Catalog      catalogRepo.CatalogRepository
	Appointments appointmentRepo.AppointmentRepository
	SlotStep     time.Duration
	MaxDaysAhead int
	// Location applies to branches without a timezone of their own.
	Location *time.Location
	Now      func() time.Time
}

// NewAvailabilityService builds the service from the booking settings in cfg.
func NewAvailabilityService(catalog catalogRepo.CatalogRepository, appts appointmentRepo.AppointmentRepository, cfg config.Config) *DefaultAvailabilityService {
	return &DefaultAvailabilityService{
		Catalog:      catalog,
		Appointments: appts,
		SlotStep:     time.Duration(cfg.SlotStepMin) * time.Minute,
		MaxDaysAhead: cfg.BookingMaxDaysAhead,
		Location:     cfg.Location(),
		Now:          time.Now,
	}
}

func (s *DefaultAvailabilityService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *DefaultAvailabilityService) step() time.Duration {
	if s.SlotStep <= 0 {
		return 30 * time.Minute
	}
	return s.SlotStep
}

func (s *DefaultAvailabilityService) location(branch models.Branch) *time.Location {
	fallback := s.Location
	if fallback == nil {
		fallback = time.UTC
	}
	return branch.Location(fallback)
}
