package models

import "time"

// StaffMember is a professional who performs services.
type StaffMember struct {
	ID        string   `bson:"id" json:"id"`
	FirstName string   `bson:"first_name" json:"first_name"`
	LastName  string   `bson:"last_name" json:"last_name"`
	PhotoURL  string   `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	BranchIDs []string `bson:"branch_ids" json:"branch_ids"`
	IsActive  bool     `bson:"is_active" json:"is_active"`
	FCMToken  string   `bson:"fcm_token,omitempty" json:"-"`
}

func (s StaffMember) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// WorkSchedule is a staff member's working window at a branch on one weekday.
type WorkSchedule struct {
	StaffID   string       `bson:"staff_id" json:"staff_id"`
	BranchID  string       `bson:"branch_id" json:"branch_id"`
	Weekday   time.Weekday `bson:"weekday" json:"weekday"`
	IsWorking bool         `bson:"is_working" json:"is_working"`
	StartTime string       `bson:"start_time" json:"start_time"`
	EndTime   string       `bson:"end_time" json:"end_time"`
}

// BlockedTime is a period in which a staff member can not be booked.
type BlockedTime struct {
	StaffID string    `bson:"staff_id" json:"staff_id"`
	Start   time.Time `bson:"start_datetime" json:"start_datetime"`
	End     time.Time `bson:"end_datetime" json:"end_datetime"`
	Reason  string    `bson:"reason,omitempty" json:"reason,omitempty"`
}

// StaffSubscription is the billing seat of a staff member within a business.
type StaffSubscription struct {
	StaffID     string     `bson:"staff_id" json:"staff_id"`
	BusinessID  string     `bson:"business_id" json:"business_id"`
	IsActive    bool       `bson:"is_active" json:"is_active"`
	IsBillable  bool       `bson:"is_billable" json:"is_billable"`
	TrialEndsAt *time.Time `bson:"trial_ends_at,omitempty" json:"trial_ends_at,omitempty"`
}

// Bookable reports whether the seat lets the staff member receive bookings at now:
// active and either billable or still within the trial.
func (s StaffSubscription) Bookable(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	return s.IsBillable || (s.TrialEndsAt != nil && s.TrialEndsAt.After(now))
}
