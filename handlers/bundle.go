package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Availability endpoints
	GetAvailability      gin.HandlerFunc
	GetMonthAvailability gin.HandlerFunc

	// Booking session endpoints
	StartBooking gin.HandlerFunc
	LookupClient gin.HandlerFunc
	LookupReniec gin.HandlerFunc
	SendOTP      gin.HandlerFunc
	ResendOTP    gin.HandlerFunc
	VerifyOTP    gin.HandlerFunc

	Health gin.HandlerFunc
}

// NewHandlerBundle wires the handlers of every public endpoint.
func NewHandlerBundle(bookingHandler *BookingHandler, availabilityHandler *AvailabilityHandler, health gin.HandlerFunc) *HandlerBundle {
	return &HandlerBundle{
		GetAvailability:      availabilityHandler.GetAvailability,
		GetMonthAvailability: availabilityHandler.GetMonthAvailability,
		StartBooking:         bookingHandler.StartBooking,
		LookupClient:         bookingHandler.LookupClient,
		LookupReniec:         bookingHandler.LookupReniec,
		SendOTP:              bookingHandler.SendOTP,
		ResendOTP:            bookingHandler.ResendOTP,
		VerifyOTP:            bookingHandler.VerifyOTP,
		Health:               health,
	}
}
