package catalogRepo

import (
	"context"
	"time"

	"stylo/models"
)

// CatalogRepository reads the business catalog the public booking flow depends on.
// Single-document getters return (nil, nil) when nothing matches.
type CatalogRepository interface {
	// GetBusiness retrieves a business by its ID.
	GetBusiness(ctx context.Context, id string) (*models.Business, error)
	// GetBranch retrieves a branch by its ID.
	GetBranch(ctx context.Context, id string) (*models.Branch, error)
	// GetService retrieves a service by its ID.
	GetService(ctx context.Context, id string) (*models.Service, error)
	// GetStaff retrieves a staff member by its ID.
	GetStaff(ctx context.Context, id string) (*models.StaffMember, error)
	// ListStaffForService returns the active staff of a branch with an active link to the service.
	ListStaffForService(ctx context.Context, branchID, serviceID string) ([]models.StaffMember, error)
	// GetStaffService retrieves the active staff/service link.
	GetStaffService(ctx context.Context, staffID, serviceID string) (*models.StaffService, error)
	// GetWorkSchedule retrieves a staff member's schedule at a branch for one weekday.
	GetWorkSchedule(ctx context.Context, staffID, branchID string, day time.Weekday) (*models.WorkSchedule, error)
	// GetSpecialDate retrieves the override of a branch for a YYYY-MM-DD date.
	GetSpecialDate(ctx context.Context, branchID, date string) (*models.SpecialDate, error)
	// ListBlockedTimes returns the blocked periods of a staff member overlapping [from, to).
	ListBlockedTimes(ctx context.Context, staffID string, from, to time.Time) ([]models.BlockedTime, error)
	// GetStaffSubscription retrieves the billing seat of a staff member in a business.
	GetStaffSubscription(ctx context.Context, staffID, businessID string) (*models.StaffSubscription, error)
}
