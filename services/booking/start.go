package booking

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"stylo/models"
	"stylo/utils"

	"go.uber.org/zap"
)

// Accepted start_datetime layouts without an offset, read in branch local time.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseStart(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", raw)
}

// canReceiveBookings reports whether the subscription status lets a business take bookings.
func canReceiveBookings(b models.Business) bool {
	if !b.IsActive {
		return false
	}
	return b.SubscriptionStatus == models.SubscriptionTrial || b.SubscriptionStatus == models.SubscriptionActive
}

func (s *DefaultBookingService) StartBooking(ctx context.Context, req models.StartBookingRequest) (*models.StartBookingResponse, error) {
	branch, err := s.Catalog.GetBranch(ctx, req.BranchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load branch: %w", err)
	}
	if branch == nil || !branch.IsActive {
		return nil, notFoundError("Sucursal no encontrada")
	}
	loc := s.location(*branch)

	start, err := parseStart(req.StartDatetime, loc)
	if err != nil {
		return nil, validationError("Formato de fecha y hora inválido")
	}
	now := s.now()
	if !start.After(now) {
		return nil, validationError("No se pueden crear citas en el pasado")
	}
	if start.After(now.AddDate(0, 0, s.maxDaysAhead())) {
		return nil, validationError(fmt.Sprintf("No se pueden crear citas con más de %d días de anticipación", s.maxDaysAhead()))
	}

	service, err := s.Catalog.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	if service == nil || !service.IsActive || service.BranchID != branch.ID {
		return nil, validationError("Servicio no disponible en esta sucursal")
	}

	business, err := s.Catalog.GetBusiness(ctx, branch.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load business: %w", err)
	}
	if business == nil {
		return nil, notFoundError("Sucursal no encontrada")
	}
	if !canReceiveBookings(*business) {
		s.Logger.Info("Booking refused by subscription status",
			zap.String("businessId", business.ID), zap.String("status", business.SubscriptionStatus))
		return nil, businessUnavailableError(business.SubscriptionStatus)
	}

	staff, link, err := s.resolveStaff(ctx, *branch, *service, req.StaffID, start)
	if err != nil {
		return nil, err
	}

	end := start.Add(time.Duration(service.TotalDuration()) * time.Minute)
	conflict, err := s.Appointments.HasConflict(ctx, staff.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to check appointment conflicts: %w", err)
	}
	if conflict {
		return nil, slotUnavailableError()
	}

	token, err := utils.GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	price := link.PriceFor(*service)
	session := &models.BookingSession{
		Token:     token,
		Status:    models.SessionPending,
		BranchID:  branch.ID,
		ServiceID: service.ID,
		StaffID:   staff.ID,
		Start:     start,
		End:       end,
		Notes:     req.Notes,
		Price:     price,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL()),
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	s.Logger.Info("Booking session started",
		zap.String("branchId", branch.ID),
		zap.String("serviceId", service.ID),
		zap.String("staffId", staff.ID),
		zap.Time("start", start))

	var photo *string
	if staff.PhotoURL != "" {
		p := staff.PhotoURL
		photo = &p
	}
	return &models.StartBookingResponse{
		SessionToken: token,
		ExpiresIn:    int(s.sessionTTL().Seconds()),
		BookingSummary: models.BookingSummary{
			BusinessName:    business.Name,
			BranchName:      branch.Name,
			BranchAddress:   branch.Address,
			ServiceID:       service.ID,
			ServiceName:     service.Name,
			ServiceDuration: service.TotalDuration(),
			StaffID:         staff.ID,
			StaffName:       staff.FullName(),
			StaffPhoto:      photo,
			StartDatetime:   start.In(loc).Format(time.RFC3339),
			EndDatetime:     end.In(loc).Format(time.RFC3339),
			Price:           utils.FormatPrice(price),
		},
	}, nil
}

// resolveStaff returns the staff member for the booking and their service link.
// A nil staffID picks the first staff member free at start.
func (s *DefaultBookingService) resolveStaff(ctx context.Context, branch models.Branch, service models.Service, staffID *string, start time.Time) (*models.StaffMember, *models.StaffService, error) {
	var staff *models.StaffMember
	if staffID == nil || *staffID == "" {
		member, err := s.Availability.FirstAvailableStaff(ctx, branch, service, start)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find available staff: %w", err)
		}
		if member == nil {
			return nil, nil, slotUnavailableError()
		}
		staff = member
	} else {
		member, err := s.Catalog.GetStaff(ctx, *staffID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load staff: %w", err)
		}
		if member == nil || !member.IsActive || !slices.Contains(member.BranchIDs, branch.ID) {
			return nil, nil, validationError("Profesional no disponible en esta sucursal")
		}
		sub, err := s.Catalog.GetStaffSubscription(ctx, member.ID, branch.BusinessID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load staff subscription: %w", err)
		}
		if sub == nil || !sub.Bookable(s.now()) {
			return nil, nil, validationError("Profesional no disponible para reservas")
		}
		staff = member
	}

	link, err := s.Catalog.GetStaffService(ctx, staff.ID, service.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load staff service: %w", err)
	}
	if link == nil {
		return nil, nil, validationError("Este profesional no ofrece el servicio seleccionado")
	}
	return staff, link, nil
}
