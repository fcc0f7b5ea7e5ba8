package catalogRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stylo/database"
	"stylo/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MongoCatalogRepo implements CatalogRepository using MongoDB.
type MongoCatalogRepo struct {
	businesses    *mongo.Collection
	branches      *mongo.Collection
	services      *mongo.Collection
	staff         *mongo.Collection
	staffServices *mongo.Collection
	schedules     *mongo.Collection
	specialDates  *mongo.Collection
	blockedTimes  *mongo.Collection
	subscriptions *mongo.Collection
}

// NewMongoCatalogRepo creates a CatalogRepository backed by db.
func NewMongoCatalogRepo(db *mongo.Database, logger *zap.Logger) CatalogRepository {
	repo := &MongoCatalogRepo{
		businesses:    db.Collection("businesses"),
		branches:      db.Collection("branches"),
		services:      db.Collection("services"),
		staff:         db.Collection("staff"),
		staffServices: db.Collection("staff_services"),
		schedules:     db.Collection("work_schedules"),
		specialDates:  db.Collection("special_dates"),
		blockedTimes:  db.Collection("blocked_times"),
		subscriptions: db.Collection("staff_subscriptions"),
	}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("failed to create catalog indexes", zap.Error(err))
	}
	return repo
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) (*T, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc T
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	return &doc, nil
}

func findMany[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) ([]T, error) {
	ctx, cancel := database.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var docs []T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return docs, nil
}

func (r *MongoCatalogRepo) GetBusiness(ctx context.Context, id string) (*models.Business, error) {
	return findOne[models.Business](ctx, r.businesses, bson.M{"id": id})
}

func (r *MongoCatalogRepo) GetBranch(ctx context.Context, id string) (*models.Branch, error) {
	return findOne[models.Branch](ctx, r.branches, bson.M{"id": id})
}

func (r *MongoCatalogRepo) GetService(ctx context.Context, id string) (*models.Service, error) {
	return findOne[models.Service](ctx, r.services, bson.M{"id": id})
}

func (r *MongoCatalogRepo) GetStaff(ctx context.Context, id string) (*models.StaffMember, error) {
	return findOne[models.StaffMember](ctx, r.staff, bson.M{"id": id})
}

func (r *MongoCatalogRepo) ListStaffForService(ctx context.Context, branchID, serviceID string) ([]models.StaffMember, error) {
	links, err := findMany[models.StaffService](ctx, r.staffServices, bson.M{
		"service_id": serviceID,
		"is_active":  true,
	})
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.StaffID)
	}
	return findMany[models.StaffMember](ctx, r.staff, bson.M{
		"id":         bson.M{"$in": ids},
		"branch_ids": branchID,
		"is_active":  true,
	})
}

func (r *MongoCatalogRepo) GetStaffService(ctx context.Context, staffID, serviceID string) (*models.StaffService, error) {
	return findOne[models.StaffService](ctx, r.staffServices, bson.M{
		"staff_id":   staffID,
		"service_id": serviceID,
		"is_active":  true,
	})
}

func (r *MongoCatalogRepo) GetWorkSchedule(ctx context.Context, staffID, branchID string, day time.Weekday) (*models.WorkSchedule, error) {
	return findOne[models.WorkSchedule](ctx, r.schedules, bson.M{
		"staff_id":  staffID,
		"branch_id": branchID,
		"weekday":   int(day),
	})
}

func (r *MongoCatalogRepo) GetSpecialDate(ctx context.Context, branchID, date string) (*models.SpecialDate, error) {
	return findOne[models.SpecialDate](ctx, r.specialDates, bson.M{
		"branch_id": branchID,
		"date":      date,
	})
}

func (r *MongoCatalogRepo) ListBlockedTimes(ctx context.Context, staffID string, from, to time.Time) ([]models.BlockedTime, error) {
	return findMany[models.BlockedTime](ctx, r.blockedTimes, bson.M{
		"staff_id":       staffID,
		"start_datetime": bson.M{"$lt": to},
		"end_datetime":   bson.M{"$gt": from},
	})
}

func (r *MongoCatalogRepo) GetStaffSubscription(ctx context.Context, staffID, businessID string) (*models.StaffSubscription, error) {
	return findOne[models.StaffSubscription](ctx, r.subscriptions, bson.M{
		"staff_id":    staffID,
		"business_id": businessID,
	})
}
