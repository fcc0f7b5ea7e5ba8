package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// BookingNotice carries what the client and staff messages of one appointment need.
type BookingNotice struct {
	AppointmentID string
	ClientName    string
	ClientPhone   string
	ClientEmail   string
	ServiceName   string
	StaffName     string
	StaffFCMToken string
	BranchName    string
	BranchAddress string
	BusinessName  string
	Start         time.Time
	Price         string
}

// NotificationService delivers OTP codes and appointment messages.
type NotificationService interface {
	// SendOTP delivers a verification code to a phone number.
	SendOTP(ctx context.Context, phoneNumber, code string) error
	// BookingConfirmed notifies the client (WhatsApp and e-mail) and the staff member (push).
	// Failures are logged only.
	BookingConfirmed(ctx context.Context, notice BookingNotice)
	// SendReminder sends the day-before reminder to the client.
	SendReminder(ctx context.Context, notice BookingNotice) error
}

// DefaultNotificationService is the production implementation. Mailer and Push are optional.
type DefaultNotificationService struct {
	Messenger     Messenger
	Mailer        Mailer
	Push          PushSender
	OTPExpiryMins int
	Logger        *zap.Logger
}

func NewDefaultNotificationService(messenger Messenger, mailer Mailer, push PushSender, otpExpiryMins int, logger *zap.Logger) (*DefaultNotificationService, error) {
	if messenger == nil {
		return nil, fmt.Errorf("notification service initialization error: messenger is nil")
	}
	return &DefaultNotificationService{
		Messenger:     messenger,
		Mailer:        mailer,
		Push:          push,
		OTPExpiryMins: otpExpiryMins,
		Logger:        logger,
	}, nil
}

func (s *DefaultNotificationService) SendOTP(ctx context.Context, phoneNumber, code string) error {
	id, err := s.Messenger.SendText(ctx, phoneNumber, OTPMessage(code, s.OTPExpiryMins))
	if err != nil {
		return fmt.Errorf("SendOTP: %w", err)
	}
	s.Logger.Info("OTP sent", zap.String("phone", maskPhone(phoneNumber)), zap.String("messageId", id))
	return nil
}

func (s *DefaultNotificationService) BookingConfirmed(ctx context.Context, notice BookingNotice) {
	log := s.Logger.With(zap.String("appointmentId", notice.AppointmentID))

	if notice.ClientPhone != "" {
		if _, err := s.Messenger.SendText(ctx, notice.ClientPhone, ConfirmationMessage(notice)); err != nil {
			log.Warn("Failed to send booking confirmation via WhatsApp", zap.Error(err))
		}
	}

	if s.Mailer != nil && notice.ClientEmail != "" {
		subject, body := ConfirmationEmail(notice)
		if err := s.Mailer.Send(notice.ClientEmail, subject, body); err != nil {
			log.Warn("Failed to send booking confirmation e-mail", zap.Error(err))
		}
	}

	if s.Push != nil && notice.StaffFCMToken != "" {
		if _, err := s.Push.Send(ctx, staffBookingPush(notice)); err != nil {
			log.Warn("Failed to push new booking to staff", zap.Error(err))
		}
	}
}

func (s *DefaultNotificationService) SendReminder(ctx context.Context, notice BookingNotice) error {
	if notice.ClientPhone == "" {
		return fmt.Errorf("SendReminder: appointment %s has no client phone", notice.AppointmentID)
	}
	if _, err := s.Messenger.SendText(ctx, notice.ClientPhone, ReminderMessage(notice)); err != nil {
		return fmt.Errorf("SendReminder: %w", err)
	}
	return nil
}

// maskPhone keeps only the last three digits of a phone number for logs.
func maskPhone(phone string) string {
	if len(phone) <= 3 {
		return "***"
	}
	return "***" + phone[len(phone)-3:]
}
