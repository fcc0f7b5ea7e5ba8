package models

// Service is a bookable service offered at one branch.
type Service struct {
	ID               string  `bson:"id" json:"id"`
	BranchID         string  `bson:"branch_id" json:"branch_id"`
	Name             string  `bson:"name" json:"name"`
	Description      string  `bson:"description,omitempty" json:"description,omitempty"`
	Gender           string  `bson:"gender,omitempty" json:"gender,omitempty"`
	DurationMinutes  int     `bson:"duration_minutes" json:"duration_minutes"`
	BufferBeforeMins int     `bson:"buffer_time_before" json:"buffer_time_before"`
	BufferAfterMins  int     `bson:"buffer_time_after" json:"buffer_time_after"`
	Price            float64 `bson:"price" json:"price"`
	IsActive         bool    `bson:"is_active" json:"is_active"`
}

// TotalDuration is the time a booking blocks in the calendar, buffers included.
func (s Service) TotalDuration() int {
	return s.DurationMinutes + s.BufferBeforeMins + s.BufferAfterMins
}

// StaffService links a staff member to a service they perform, optionally at their own price.
type StaffService struct {
	StaffID        string   `bson:"staff_id" json:"staff_id"`
	ServiceID      string   `bson:"service_id" json:"service_id"`
	CustomPrice    *float64 `bson:"custom_price,omitempty" json:"custom_price,omitempty"`
	CustomDuration *int     `bson:"custom_duration,omitempty" json:"custom_duration,omitempty"`
	IsActive       bool     `bson:"is_active" json:"is_active"`
}

// PriceFor returns the staff member's custom price, or the service price.
func (ss *StaffService) PriceFor(svc Service) float64 {
	if ss != nil && ss.CustomPrice != nil && *ss.CustomPrice > 0 {
		return *ss.CustomPrice
	}
	return svc.Price
}
