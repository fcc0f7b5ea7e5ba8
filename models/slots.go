package models

// AvailableSlot is one bookable start time for one staff member.
type AvailableSlot struct {
	Datetime  string `json:"datetime"`
	StaffID   string `json:"staff_id"`
	StaffName string `json:"staff_name"`
}

type AvailabilityService struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Duration int     `json:"duration"`
	Price    float64 `json:"price"`
}

type AvailabilityStaff struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AvailabilityResponse lists the free slots of a service on one date.
type AvailabilityResponse struct {
	Date           string              `json:"date"`
	Service        AvailabilityService `json:"service"`
	Staff          *AvailabilityStaff  `json:"staff"`
	Slots          []AvailableSlot     `json:"slots"`
	AvailableCount int                 `json:"available_count"`
}

// DayAvailability summarizes one date of a month view.
type DayAvailability struct {
	Date       string `json:"date"`
	Available  bool   `json:"available"`
	SlotsCount int    `json:"slots_count"`
}

type MonthAvailabilityResponse struct {
	StartDate string            `json:"start_date"`
	EndDate   string            `json:"end_date"`
	ServiceID string            `json:"service_id"`
	StaffID   *string           `json:"staff_id"`
	Days      []DayAvailability `json:"days"`
}
