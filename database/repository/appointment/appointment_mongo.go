package appointmentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stylo/database"
	"stylo/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoAppointmentRepo implements AppointmentRepository using MongoDB.
type MongoAppointmentRepo struct {
	appointments *mongo.Collection
	reminders    *mongo.Collection
}

// NewMongoAppointmentRepo creates an AppointmentRepository backed by db.
func NewMongoAppointmentRepo(db *mongo.Database, logger *zap.Logger) AppointmentRepository {
	repo := &MongoAppointmentRepo{
		appointments: db.Collection("appointments"),
		reminders:    db.Collection("appointment_reminders"),
	}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("failed to create appointment indexes", zap.Error(err))
	}
	return repo
}

func (r *MongoAppointmentRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.appointments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "staff_id", Value: 1}, {Key: "start_datetime", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "client_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create appointment indexes: %w", err)
	}
	_, err = r.reminders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "appointment_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create reminder indexes: %w", err)
	}
	return nil
}

func overlapFilter(staffID string, from, to time.Time) bson.M {
	return bson.M{
		"staff_id":       staffID,
		"status":         bson.M{"$in": models.BlockingStatuses},
		"start_datetime": bson.M{"$lt": to},
		"end_datetime":   bson.M{"$gt": from},
	}
}

func (r *MongoAppointmentRepo) Create(ctx context.Context, appt *models.Appointment) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	if _, err := r.appointments.InsertOne(ctx, appt); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *MongoAppointmentRepo) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var appt models.Appointment
	if err := r.appointments.FindOne(ctx, bson.M{"id": id}).Decode(&appt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch appointment with id %s: %w", id, err)
	}
	return &appt, nil
}

func (r *MongoAppointmentRepo) HasConflict(ctx context.Context, staffID string, start, end time.Time) (bool, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := r.appointments.CountDocuments(ctx, overlapFilter(staffID, start, end), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check conflicts for staff %s: %w", staffID, err)
	}
	return n > 0, nil
}

func (r *MongoAppointmentRepo) ListBlocking(ctx context.Context, staffID string, from, to time.Time) ([]models.Appointment, error) {
	ctx, cancel := database.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_datetime", Value: 1}})
	cursor, err := r.appointments.Find(ctx, overlapFilter(staffID, from, to), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments for staff %s: %w", staffID, err)
	}
	defer cursor.Close(ctx)

	var appts []models.Appointment
	if err := cursor.All(ctx, &appts); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appts, nil
}

func (r *MongoAppointmentRepo) CreateReminder(ctx context.Context, reminder *models.AppointmentReminder) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	reminder.CreatedAt = time.Now()
	if _, err := r.reminders.InsertOne(ctx, reminder); err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

func (r *MongoAppointmentRepo) GetReminder(ctx context.Context, id string) (*models.AppointmentReminder, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rem models.AppointmentReminder
	if err := r.reminders.FindOne(ctx, bson.M{"id": id}).Decode(&rem); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch reminder with id %s: %w", id, err)
	}
	return &rem, nil
}

func (r *MongoAppointmentRepo) UpdateReminderStatus(ctx context.Context, id, status, errMsg string, sentAt *time.Time) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"status": status, "error_message": errMsg}
	if sentAt != nil {
		set["sent_at"] = *sentAt
	}
	result, err := r.reminders.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update reminder with id %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("reminder with id %s not found", id)
	}
	return nil
}
