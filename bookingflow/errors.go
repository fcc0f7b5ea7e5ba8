package bookingflow

import (
	"context"
	"errors"

	"stylo/apiclient"
	"stylo/utils"
)

var (
	// ErrIllegalTransition is a programming error: the action does not belong
	// to the current step. State is left untouched.
	ErrIllegalTransition = errors.New("bookingflow: illegal transition")
	// ErrInFlight means the same action is already waiting for the backend.
	ErrInFlight = errors.New("bookingflow: action already in flight")
	// ErrDiscarded is returned for a response that arrived after its attempt was left.
	ErrDiscarded = errors.New("bookingflow: booking attempt discarded")
)

// Kind classifies a failed action.
type Kind int

const (
	// Transient covers network and unexpected failures; the same action may be retried.
	Transient Kind = iota
	// Validation is caught locally, before any network call.
	Validation
	// Conflict means the chosen slot is gone; the caller goes back to slot selection.
	Conflict
	// Challenge is a wrong, expired or locked OTP.
	Challenge
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case Challenge:
		return "challenge"
	default:
		return "transient"
	}
}

// Error is the single visible failure of the current step.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a flow *Error of kind k.
func IsKind(err error, k Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == k
}

const genericMessage = "No pudimos completar la operación. Intenta nuevamente."

func validation(message string) *Error {
	return &Error{Kind: Validation, Code: utils.CodeValidation, Message: message}
}

func kindForCode(code string) Kind {
	switch code {
	case utils.CodeSlotUnavailable:
		return Conflict
	case utils.CodeOTPInvalid, utils.CodeOTPExpired, utils.CodeOTPLocked:
		return Challenge
	case utils.CodeValidation:
		return Validation
	default:
		return Transient
	}
}

// classify turns a backend or transport failure into a flow *Error.
func classify(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if apiErr.Code == "" || msg == "" {
			msg = genericMessage
		}
		return &Error{Kind: kindForCode(apiErr.Code), Code: apiErr.Code, Message: msg, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: Transient, Message: "El servidor tardó demasiado en responder. Intenta nuevamente.", Err: err}
	}
	return &Error{Kind: Transient, Message: genericMessage, Err: err}
}
