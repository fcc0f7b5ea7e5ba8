package booking

import (
	"fmt"

	"stylo/models"
	"stylo/utils"
)

const (
	msgSessionInvalid = "Sesión no válida"
	msgSessionExpired = "Sesión expirada. Inicie una nueva reserva."
	msgOTPExpired     = "Código expirado. Solicite uno nuevo."
	msgOTPLocked      = "Demasiados intentos fallidos. Inicie una nueva reserva."
	msgSlotTaken      = "El horario seleccionado no está disponible"
)

func validationError(msg string) error {
	return utils.NewServiceError(utils.CodeValidation, msg)
}

func notFoundError(msg string) error {
	return utils.NewServiceError(utils.CodeNotFound, msg)
}

func slotUnavailableError() error {
	return utils.NewServiceError(utils.CodeSlotUnavailable, msgSlotTaken)
}

func sessionInvalidError() error {
	return utils.NewServiceError(utils.CodeSessionInvalid, msgSessionInvalid)
}

func sessionExpiredError() error {
	return utils.NewServiceError(utils.CodeSessionExpired, msgSessionExpired)
}

func otpInvalidError(remaining int) error {
	return utils.NewServiceError(utils.CodeOTPInvalid, fmt.Sprintf("Código incorrecto. %d intentos restantes.", remaining))
}

func otpExpiredError() error {
	return utils.NewServiceError(utils.CodeOTPExpired, msgOTPExpired)
}

func otpLockedError() error {
	return utils.NewServiceError(utils.CodeOTPLocked, msgOTPLocked)
}

// businessUnavailableError explains why a business can not take bookings.
func businessUnavailableError(status string) error {
	var msg string
	switch status {
	case models.SubscriptionPastDue:
		msg = "Tu suscripción tiene un pago pendiente. Por favor actualiza tu método de pago para seguir recibiendo reservas."
	case models.SubscriptionSuspended:
		msg = "Tu suscripción ha sido suspendida por falta de pago. Contacta a soporte para reactivarla."
	case models.SubscriptionCancelled:
		msg = "Tu suscripción ha sido cancelada. Contacta a soporte para reactivarla."
	default:
		msg = "Este negocio no puede recibir reservas en este momento."
	}
	return utils.NewServiceError(utils.CodeBusinessUnavailable, msg)
}
