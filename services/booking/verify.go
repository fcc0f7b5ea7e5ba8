package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stylo/models"
	"stylo/services/notification"
	"stylo/services/otp"
	"stylo/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const reminderLead = 24 * time.Hour

func (s *DefaultBookingService) VerifyOTP(ctx context.Context, sessionToken, code string) (*models.VerifyOTPResponse, error) {
	code = utils.DigitsOnly(code)
	if len(code) != 6 {
		return nil, validationError("El código debe tener 6 dígitos")
	}

	session, err := s.sessionIn(ctx, sessionToken, models.SessionOTPSent)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(s.now()) {
		return nil, otpExpiredError()
	}

	if err := s.OTP.Verify(ctx, sessionToken, code); err != nil {
		return nil, s.challengeError(ctx, sessionToken, err)
	}

	appointmentID := uuid.New().String()
	claimed, err := s.Sessions.Claim(ctx, sessionToken, appointmentID)
	if err != nil {
		if errors.Is(err, errAlreadyClaimed) {
			return nil, sessionInvalidError()
		}
		return nil, err
	}
	log := s.Logger.With(zap.String("appointmentId", appointmentID))

	appt, confirmation, notice, err := s.confirm(ctx, claimed, appointmentID)
	if err != nil {
		if se, ok := utils.AsServiceError(err); ok && se.Code == utils.CodeSlotUnavailable {
			// The slot is gone for good, the session can not be retried.
			claimed.Status = models.SessionExpired
			if saveErr := s.Sessions.Save(ctx, claimed); saveErr != nil {
				log.Warn("Failed to expire booking session", zap.Error(saveErr))
			}
			s.consumeChallenge(ctx, sessionToken, log)
			return nil, err
		}
		// The challenge is still live, so the same code can be retried.
		if relErr := s.Sessions.Release(ctx, claimed); relErr != nil {
			log.Error("Failed to release booking session", zap.Error(relErr))
		}
		return nil, err
	}
	s.consumeChallenge(ctx, sessionToken, log)

	s.scheduleReminder(ctx, appt)

	go s.Notifications.BookingConfirmed(context.WithoutCancel(ctx), notice)

	log.Info("Booking confirmed",
		zap.String("staffId", appt.StaffID),
		zap.String("clientId", appt.ClientID),
		zap.Time("start", appt.Start))

	return &models.VerifyOTPResponse{
		Success:     true,
		Message:     "¡Reserva confirmada!",
		Appointment: *confirmation,
	}, nil
}

func (s *DefaultBookingService) consumeChallenge(ctx context.Context, token string, log *zap.Logger) {
	if err := s.OTP.Invalidate(ctx, token); err != nil {
		log.Warn("Failed to drop OTP challenge", zap.Error(err))
	}
}

// challengeError maps an OTP store failure onto its client facing error.
func (s *DefaultBookingService) challengeError(ctx context.Context, token string, err error) error {
	var mm *otp.MismatchError
	switch {
	case errors.As(err, &mm):
		return otpInvalidError(mm.Remaining)
	case errors.Is(err, otp.ErrLocked):
		return otpLockedError()
	case errors.Is(err, otp.ErrExpired):
		// A concurrent verify may have consumed the code and completed the session.
		if current, getErr := s.Sessions.Get(ctx, token); getErr == nil && current != nil && current.Status != models.SessionOTPSent {
			return sessionInvalidError()
		}
		return otpExpiredError()
	default:
		return err
	}
}

// confirm writes the client and the appointment of a claimed session.
func (s *DefaultBookingService) confirm(ctx context.Context, session *models.BookingSession, appointmentID string) (*models.Appointment, *models.AppointmentConfirmation, notification.BookingNotice, error) {
	var notice notification.BookingNotice
	if session.Client == nil {
		return nil, nil, notice, sessionInvalidError()
	}

	branch, err := s.Catalog.GetBranch(ctx, session.BranchID)
	if err != nil {
		return nil, nil, notice, fmt.Errorf("failed to load branch: %w", err)
	}
	service, err := s.Catalog.GetService(ctx, session.ServiceID)
	if err != nil {
		return nil, nil, notice, fmt.Errorf("failed to load service: %w", err)
	}
	staff, err := s.Catalog.GetStaff(ctx, session.StaffID)
	if err != nil {
		return nil, nil, notice, fmt.Errorf("failed to load staff: %w", err)
	}
	if branch == nil || service == nil || staff == nil {
		return nil, nil, notice, validationError("Servicio no encontrado")
	}
	business, err := s.Catalog.GetBusiness(ctx, branch.BusinessID)
	if err != nil {
		return nil, nil, notice, fmt.Errorf("failed to load business: %w", err)
	}
	businessName := ""
	if business != nil {
		businessName = business.Name
	}

	conflict, err := s.Appointments.HasConflict(ctx, session.StaffID, session.Start, session.End)
	if err != nil {
		return nil, nil, notice, fmt.Errorf("failed to check appointment conflicts: %w", err)
	}
	if conflict {
		return nil, nil, notice, slotUnavailableError()
	}

	client, err := s.upsertClient(ctx, *session.Client)
	if err != nil {
		return nil, nil, notice, err
	}

	appt := &models.Appointment{
		ID:        appointmentID,
		BranchID:  branch.ID,
		ClientID:  client.ID,
		StaffID:   staff.ID,
		ServiceID: service.ID,
		Start:     session.Start,
		End:       session.End,
		Status:    models.AppointmentConfirmed,
		Notes:     session.Notes,
		Price:     session.Price,
	}
	if err := s.Appointments.Create(ctx, appt); err != nil {
		return nil, nil, notice, fmt.Errorf("failed to create appointment: %w", err)
	}

	loc := s.location(*branch)
	var photo *string
	if staff.PhotoURL != "" {
		p := staff.PhotoURL
		photo = &p
	}
	confirmation := &models.AppointmentConfirmation{
		ID:              appt.ID,
		BusinessName:    businessName,
		BranchName:      branch.Name,
		BranchAddress:   branch.Address,
		StaffName:       staff.FullName(),
		StaffPhoto:      photo,
		ServiceName:     service.Name,
		StartDatetime:   appt.Start.In(loc).Format(time.RFC3339),
		EndDatetime:     appt.End.In(loc).Format(time.RFC3339),
		DurationMinutes: appt.DurationMinutes(),
		Status:          appt.Status,
		Price:           utils.FormatPrice(appt.Price),
		CreatedAt:       appt.CreatedAt,
	}
	notice = notification.BookingNotice{
		AppointmentID: appt.ID,
		ClientName:    client.FullName(),
		ClientPhone:   client.PhoneNumber,
		ClientEmail:   client.Email,
		ServiceName:   service.Name,
		StaffName:     staff.FullName(),
		StaffFCMToken: staff.FCMToken,
		BranchName:    branch.Name,
		BranchAddress: branch.Address,
		BusinessName:  businessName,
		Start:         appt.Start.In(loc),
		Price:         confirmation.Price,
	}
	return appt, confirmation, notice, nil
}

// upsertClient finds the client by document and refreshes their contact data,
// or creates them.
func (s *DefaultBookingService) upsertClient(ctx context.Context, data models.SessionClient) (*models.Client, error) {
	existing, err := s.Clients.FindByDocument(ctx, data.DocumentType, data.DocumentNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to look up client: %w", err)
	}

	if existing != nil {
		changed := false
		if existing.PhoneNumber != data.PhoneNumber {
			existing.PhoneNumber = data.PhoneNumber
			changed = true
		}
		if existing.Gender != data.Gender {
			existing.Gender = data.Gender
			changed = true
		}
		if data.BirthDate != "" && existing.BirthDate != data.BirthDate {
			existing.BirthDate = data.BirthDate
			changed = true
		}
		if data.PhotoURL != "" && existing.PhotoURL == "" {
			existing.PhotoURL = data.PhotoURL
			changed = true
		}
		if data.Email != "" && existing.Email != data.Email {
			existing.Email = data.Email
			changed = true
		}
		if changed {
			if err := s.Clients.Update(ctx, existing); err != nil {
				return nil, fmt.Errorf("failed to update client: %w", err)
			}
		}
		return existing, nil
	}

	client := &models.Client{
		ID:              uuid.New().String(),
		DocumentType:    data.DocumentType,
		DocumentNumber:  data.DocumentNumber,
		FirstName:       data.FirstName,
		LastNamePaterno: data.LastNamePaterno,
		LastNameMaterno: data.LastNameMaterno,
		PhoneNumber:     data.PhoneNumber,
		Email:           data.Email,
		Gender:          data.Gender,
		BirthDate:       data.BirthDate,
		PhotoURL:        data.PhotoURL,
		WhatsAppOptIn:   true,
	}
	if err := s.Clients.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// scheduleReminder records the day-before reminder and queues its delivery.
// Failures are logged only, the appointment stands.
func (s *DefaultBookingService) scheduleReminder(ctx context.Context, appt *models.Appointment) {
	at := appt.Start.Add(-reminderLead)
	if !at.After(s.now()) {
		return
	}
	log := s.Logger.With(zap.String("appointmentId", appt.ID))

	reminder := &models.AppointmentReminder{
		ID:            uuid.New().String(),
		AppointmentID: appt.ID,
		Channel:       "whatsapp",
		ScheduledAt:   at,
		Status:        models.ReminderPending,
	}
	if err := s.Appointments.CreateReminder(ctx, reminder); err != nil {
		log.Error("Failed to create reminder", zap.Error(err))
		return
	}
	if s.Reminders == nil {
		return
	}
	payload := models.ReminderPayload{ReminderID: reminder.ID, AppointmentID: appt.ID}
	if err := s.Reminders.ScheduleReminder(ctx, payload, at); err != nil {
		log.Error("Failed to schedule reminder", zap.Error(err))
	}
}
