package catalogRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates the lookup indexes of every catalog collection.
func (r *MongoCatalogRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	unique := options.Index().SetUnique(true)
	plan := map[*mongo.Collection][]mongo.IndexModel{
		r.businesses: {{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique}},
		r.branches:   {{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique}},
		r.services: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "branch_id", Value: 1}}},
		},
		r.staff: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "branch_ids", Value: 1}}},
		},
		r.staffServices: {{Keys: bson.D{{Key: "staff_id", Value: 1}, {Key: "service_id", Value: 1}}, Options: unique}},
		r.schedules: {{Keys: bson.D{
			{Key: "staff_id", Value: 1}, {Key: "branch_id", Value: 1}, {Key: "weekday", Value: 1},
		}, Options: unique}},
		r.specialDates:  {{Keys: bson.D{{Key: "branch_id", Value: 1}, {Key: "date", Value: 1}}, Options: unique}},
		r.blockedTimes:  {{Keys: bson.D{{Key: "staff_id", Value: 1}, {Key: "start_datetime", Value: 1}}}},
		r.subscriptions: {{Keys: bson.D{{Key: "staff_id", Value: 1}, {Key: "business_id", Value: 1}}, Options: unique}},
	}

	for coll, idx := range plan {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}
