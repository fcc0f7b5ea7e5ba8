// Command seed loads a demo salon catalog into MongoDB for local development.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"stylo/config"
	"stylo/database"
	catalogRepo "stylo/database/repository/catalog"
	"stylo/models"
	"stylo/utils"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	businessID = "biz-stylo-demo"
	branchID   = "branch-miraflores"
)

func ptr[T any](v T) *T { return &v }

// seedOptions holds the flags of the seed command.
type seedOptions struct {
	Keep      bool
	ClosedIn  int
	TrialDays int
	Timeout   time.Duration
}

func newSeedCommand() *cobra.Command {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo salon catalog into MongoDB",
		Long: `Load a demo business with one branch, three services and three staff
members into the database named by DATABASE_URL and DATABASE_NAME.

Example:
  seed --closed-in 14 --trial-days 30`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadConfig()
			database.InitDB()
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()
			defer database.Disconnect(ctx)
			return seed(ctx, database.DB(), opts, cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.Keep, "keep", false, "insert without clearing the catalog collections first")
	cmd.Flags().IntVar(&opts.ClosedIn, "closed-in", 14, "days from today of the demo closed special date (0 disables it)")
	cmd.Flags().IntVar(&opts.TrialDays, "trial-days", 30, "remaining trial days of the trial staff seat")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "overall database timeout")
	return cmd
}

func main() {
	if err := newSeedCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, db *mongo.Database, opts *seedOptions, cmd *cobra.Command) error {
	// Builds the catalog indexes.
	catalogRepo.NewMongoCatalogRepo(db, utils.GetLogger())

	trialEnds := time.Now().AddDate(0, 0, opts.TrialDays)

	var weekly []models.BranchSchedule
	for d := time.Sunday; d <= time.Saturday; d++ {
		weekly = append(weekly, models.BranchSchedule{
			Weekday:     d,
			IsOpen:      d != time.Sunday,
			OpeningTime: "09:00",
			ClosingTime: "20:00",
		})
	}

	staff := []any{
		models.StaffMember{ID: "staff-ana", FirstName: "Ana", LastName: "Torres", BranchIDs: []string{branchID}, IsActive: true},
		models.StaffMember{ID: "staff-luis", FirstName: "Luis", LastName: "Ramos", BranchIDs: []string{branchID}, IsActive: true},
		models.StaffMember{ID: "staff-carla", FirstName: "Carla", LastName: "Vega", BranchIDs: []string{branchID}, IsActive: true},
	}

	var schedules []any
	for _, id := range []string{"staff-ana", "staff-luis", "staff-carla"} {
		for d := time.Monday; d <= time.Saturday; d++ {
			schedules = append(schedules, models.WorkSchedule{
				StaffID: id, BranchID: branchID, Weekday: d, IsWorking: true, StartTime: "09:00", EndTime: "18:00",
			})
		}
	}

	collections := map[string][]any{
		"businesses": {
			models.Business{ID: businessID, Name: "Stylo Salón", Slug: "stylo-salon", SubscriptionStatus: models.SubscriptionTrial, IsActive: true},
		},
		"branches": {
			models.Branch{ID: branchID, BusinessID: businessID, Name: "Miraflores", Address: "Av. Larco 123, Miraflores", Timezone: "America/Lima", IsActive: true, Schedule: weekly},
		},
		"services": {
			models.Service{ID: "svc-corte", BranchID: branchID, Name: "Corte de cabello", DurationMinutes: 30, Price: 35, IsActive: true},
			models.Service{ID: "svc-tinte", BranchID: branchID, Name: "Tinte completo", DurationMinutes: 90, BufferAfterMins: 15, Price: 120, IsActive: true},
			models.Service{ID: "svc-barba", BranchID: branchID, Name: "Perfilado de barba", Gender: "M", DurationMinutes: 20, Price: 25, IsActive: true},
		},
		"staff": staff,
		"staff_services": {
			models.StaffService{StaffID: "staff-ana", ServiceID: "svc-corte", IsActive: true},
			models.StaffService{StaffID: "staff-ana", ServiceID: "svc-tinte", IsActive: true},
			models.StaffService{StaffID: "staff-luis", ServiceID: "svc-corte", CustomPrice: ptr(40.0), IsActive: true},
			models.StaffService{StaffID: "staff-luis", ServiceID: "svc-barba", IsActive: true},
			models.StaffService{StaffID: "staff-carla", ServiceID: "svc-tinte", CustomDuration: ptr(75), IsActive: true},
		},
		"work_schedules": schedules,
		"staff_subscriptions": {
			models.StaffSubscription{StaffID: "staff-ana", BusinessID: businessID, IsActive: true, IsBillable: true},
			models.StaffSubscription{StaffID: "staff-luis", BusinessID: businessID, IsActive: true, TrialEndsAt: &trialEnds},
			// Carla's seat is inactive, so she never shows up in availability.
			models.StaffSubscription{StaffID: "staff-carla", BusinessID: businessID, IsActive: false},
		},
	}
	if opts.ClosedIn > 0 {
		collections["special_dates"] = []any{
			models.SpecialDate{BranchID: branchID, Date: time.Now().AddDate(0, 0, opts.ClosedIn).Format("2006-01-02"), DateType: models.SpecialDateClosed},
		}
	}

	out := cmd.OutOrStdout()
	for name, docs := range collections {
		coll := db.Collection(name)
		if !opts.Keep {
			if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
				return fmt.Errorf("failed to clear %s collection: %w", name, err)
			}
		}
		if _, err := coll.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to insert %s: %w", name, err)
		}
		fmt.Fprintf(out, "Seeded %d documents into %s\n", len(docs), name)
	}
	fmt.Fprintf(out, "Demo catalog ready: branch %s, services svc-corte, svc-tinte, svc-barba\n", branchID)
	return nil
}
