package booking

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"stylo/models"
	"stylo/services/otp"
	"stylo/services/storage"
	"stylo/utils"

	"go.uber.org/zap"
)

func (s *DefaultBookingService) LookupClient(ctx context.Context, documentType, documentNumber string) (*models.ClientLookupResponse, error) {
	documentNumber = utils.NormalizeDocument(documentNumber)
	if documentType == "" || documentNumber == "" {
		return nil, validationError("document_type y document_number son requeridos")
	}
	client, err := s.Clients.FindByDocument(ctx, documentType, documentNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to look up client: %w", err)
	}
	if client == nil {
		return &models.ClientLookupResponse{Found: false}, nil
	}
	return &models.ClientLookupResponse{Found: true, Client: client.Public()}, nil
}

func (s *DefaultBookingService) LookupReniec(ctx context.Context, dni string) (*models.RegistryPerson, error) {
	dni = strings.TrimSpace(dni)
	if dni == "" {
		return nil, validationError("DNI es requerido")
	}
	person := s.Registry.LookupDNI(ctx, dni)
	if person.Found && person.Gender == "" {
		person.Gender = "M"
	}
	return &person, nil
}

// liveSession loads a session that is in one of the given statuses and not yet expired.
func (s *DefaultBookingService) liveSession(ctx context.Context, token string, statuses ...string) (*models.BookingSession, error) {
	session, err := s.sessionIn(ctx, token, statuses...)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(s.now()) {
		return nil, sessionExpiredError()
	}
	return session, nil
}

// sessionIn loads a session that is in one of the given statuses, expired or not.
func (s *DefaultBookingService) sessionIn(ctx context.Context, token string, statuses ...string) (*models.BookingSession, error) {
	if token == "" {
		return nil, sessionInvalidError()
	}
	session, err := s.Sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, sessionInvalidError()
	}
	if !slices.Contains(statuses, session.Status) {
		return nil, sessionInvalidError()
	}
	return session, nil
}

func lengthBetween(v string, min, max int) bool {
	n := utf8.RuneCountInString(v)
	return n >= min && n <= max
}

// clientFromRequest validates the identity fields of send-otp.
func clientFromRequest(req models.SendOTPRequest) (*models.SessionClient, error) {
	phone := strings.TrimSpace(req.PhoneNumber)
	if !utils.ValidPhone(phone) {
		return nil, validationError("Formato de teléfono inválido. Use formato internacional: +51987654321")
	}
	if !models.ValidDocumentType(req.DocumentType) {
		return nil, validationError("Tipo de documento inválido")
	}
	doc := utils.NormalizeDocument(req.DocumentNumber)
	if !lengthBetween(doc, 6, 20) {
		return nil, validationError("Número de documento inválido")
	}
	first := strings.TrimSpace(req.FirstName)
	if !lengthBetween(first, 2, 100) {
		return nil, validationError("El nombre debe tener entre 2 y 100 caracteres")
	}
	paterno := strings.TrimSpace(req.LastNamePaterno)
	if !lengthBetween(paterno, 2, 100) {
		return nil, validationError("El apellido paterno debe tener entre 2 y 100 caracteres")
	}

	gender := strings.ToUpper(strings.TrimSpace(req.Gender))
	if gender == "" {
		gender = "M"
	}
	if gender != "M" && gender != "F" {
		return nil, validationError("Género inválido")
	}

	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, validationError("Correo electrónico inválido")
		}
	}

	birth := strings.TrimSpace(req.BirthDate)
	if birth != "" {
		if _, err := time.Parse("2006-01-02", birth); err != nil {
			return nil, validationError("Fecha de nacimiento inválida. Use formato YYYY-MM-DD")
		}
	}

	return &models.SessionClient{
		PhoneNumber:     phone,
		DocumentType:    req.DocumentType,
		DocumentNumber:  doc,
		FirstName:       first,
		LastNamePaterno: paterno,
		LastNameMaterno: strings.TrimSpace(req.LastNameMaterno),
		Email:           email,
		Gender:          gender,
		BirthDate:       birth,
	}, nil
}

// issue creates a fresh challenge for the session and delivers it.
func (s *DefaultBookingService) issue(ctx context.Context, session *models.BookingSession) (string, error) {
	code, _, err := s.OTP.Issue(ctx, session.Token, session.Client.PhoneNumber)
	if err != nil {
		if errors.Is(err, otp.ErrLocked) {
			return "", otpLockedError()
		}
		return "", err
	}
	if err := s.Notifications.SendOTP(ctx, session.Client.PhoneNumber, code); err != nil {
		s.Logger.Error("Failed to deliver OTP", zap.Error(err))
		return "", utils.NewServiceError(utils.CodeInternal, "No se pudo enviar el código de verificación. Intente nuevamente.")
	}
	return code, nil
}

func (s *DefaultBookingService) otpResponse(message, code string) *models.OTPSentResponse {
	resp := &models.OTPSentResponse{
		Message:   message,
		ExpiresIn: int(s.otpExpiry().Seconds()),
	}
	if s.DebugOTP {
		resp.DebugOTP = code
	}
	return resp
}

func (s *DefaultBookingService) SendOTP(ctx context.Context, req models.SendOTPRequest, photo *Photo) (*models.OTPSentResponse, error) {
	session, err := s.liveSession(ctx, req.SessionToken, models.SessionPending, models.SessionOTPSent)
	if err != nil {
		return nil, err
	}
	client, err := clientFromRequest(req)
	if err != nil {
		return nil, err
	}

	if photo != nil && photo.Content != nil {
		url, err := s.Storage.UploadImage(ctx, photo.Content, storage.FolderClientPhotos, client.DocumentNumber+"_"+photo.Filename)
		if err != nil {
			s.Logger.Warn("Client photo upload failed", zap.Error(err))
		} else {
			client.PhotoURL = url
		}
	}
	session.Client = client

	code, err := s.issue(ctx, session)
	if err != nil {
		return nil, err
	}

	session.Status = models.SessionOTPSent
	session.ExpiresAt = s.now().Add(s.otpExpiry())
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return s.otpResponse("Código de verificación enviado a "+client.PhoneNumber, code), nil
}

// ResendOTP also serves sessions whose code already expired; the stored record
// itself only lives a short grace period past expiry.
func (s *DefaultBookingService) ResendOTP(ctx context.Context, sessionToken string) (*models.OTPSentResponse, error) {
	session, err := s.sessionIn(ctx, sessionToken, models.SessionOTPSent)
	if err != nil {
		return nil, err
	}
	if session.Client == nil {
		return nil, sessionInvalidError()
	}

	code, err := s.issue(ctx, session)
	if err != nil {
		return nil, err
	}

	session.ExpiresAt = s.now().Add(s.otpExpiry())
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return s.otpResponse("Nuevo código enviado a "+session.Client.PhoneNumber, code), nil
}
