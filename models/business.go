package models

import "time"

// Subscription statuses of a business. Only trial and active businesses receive bookings.
const (
	SubscriptionTrial     = "trial"
	SubscriptionActive    = "active"
	SubscriptionPastDue   = "past_due"
	SubscriptionSuspended = "suspended"
	SubscriptionCancelled = "cancelled"
)

// Business is a salon or barbershop tenant.
type Business struct {
	ID                 string `bson:"id" json:"id"`
	Name               string `bson:"name" json:"name"`
	Slug               string `bson:"slug" json:"slug"`
	SubscriptionStatus string `bson:"subscription_status" json:"subscription_status"`
	IsActive           bool   `bson:"is_active" json:"is_active"`
}

// Branch is a physical location of a business.
type Branch struct {
	ID         string           `bson:"id" json:"id"`
	BusinessID string           `bson:"business_id" json:"business_id"`
	Name       string           `bson:"name" json:"name"`
	Address    string           `bson:"address" json:"address"`
	Timezone   string           `bson:"timezone,omitempty" json:"timezone,omitempty"`
	IsActive   bool             `bson:"is_active" json:"is_active"`
	Schedule   []BranchSchedule `bson:"schedule" json:"schedule"`
}

// BranchSchedule is the regular opening window for one weekday.
// Weekday follows time.Weekday (0 = Sunday). Times are "HH:MM" in branch local time.
type BranchSchedule struct {
	Weekday     time.Weekday `bson:"weekday" json:"weekday"`
	IsOpen      bool         `bson:"is_open" json:"is_open"`
	OpeningTime string       `bson:"opening_time" json:"opening_time"`
	ClosingTime string       `bson:"closing_time" json:"closing_time"`
}

// Special date types.
const (
	SpecialDateClosed       = "closed"
	SpecialDateSpecialHours = "special_hours"
)

// SpecialDate overrides the weekly schedule of a branch for one date.
type SpecialDate struct {
	BranchID    string `bson:"branch_id" json:"branch_id"`
	Date        string `bson:"date" json:"date"` // YYYY-MM-DD
	DateType    string `bson:"date_type" json:"date_type"`
	OpeningTime string `bson:"opening_time,omitempty" json:"opening_time,omitempty"`
	ClosingTime string `bson:"closing_time,omitempty" json:"closing_time,omitempty"`
}

// Location returns the branch timezone, or fallback when unset or unknown.
func (b Branch) Location(fallback *time.Location) *time.Location {
	if b.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}

// ScheduleFor returns the regular schedule of the given weekday, if any.
func (b Branch) ScheduleFor(day time.Weekday) (BranchSchedule, bool) {
	for _, s := range b.Schedule {
		if s.Weekday == day {
			return s, true
		}
	}
	return BranchSchedule{}, false
}
