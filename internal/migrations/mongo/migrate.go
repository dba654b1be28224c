package mongo

import (
	"context"
	"fmt"

	coachrepo "roster/internal/coaches/repository"
	issuerepo "roster/internal/issues/repository"
	"roster/internal/migrations/mongo/validators"
	publishrepo "roster/internal/publish/repository"
	schedulerepo "roster/internal/schedule/repository"
	venuerepo "roster/internal/venues/repository"
	"roster/pkg/logger"
	"roster/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CollectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

var (
	EventContainersIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "venue_id", Value: 1}, {Key: "year", Value: 1}, {Key: "month", Value: 1}}},
	}

	EventsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "container_id", Value: 1},
			{Key: "week_of_month", Value: 1},
			{Key: "status", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "host_user_id", Value: 1},
			{Key: "start_time", Value: 1},
			{Key: "end_time", Value: 1},
		}},
		{Keys: bson.D{{Key: "external_ref", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	CoachProfilesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "venue_ids", Value: 1}, {Key: "class_type_ids", Value: 1}}},
	}

	AvailabilityIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "venue_ids", Value: 1},
			{Key: "start_time", Value: 1},
		}},
		{Keys: bson.D{{Key: "event_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	StaffDirectoryIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "site_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}

	// One unrepaired issue per event and type; repaired history is unconstrained.
	IssuesIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "type", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": model.IssueStatusUnrepaired}),
		},
		{Keys: bson.D{
			{Key: "container_id", Value: 1},
			{Key: "week_of_month", Value: 1},
			{Key: "status", Value: 1},
		}},
	}

	PublishRunsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "container_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "created_at", Value: -1},
		}},
	}

	BookingLogsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "run_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "event_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	// Expired locks are reaped by the server; Acquire also takes over an expired lock itself.
	PublishLocksIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	}
)

// Collections lists every collection the services read or write.
func Collections() map[string]CollectionDef {
	return map[string]CollectionDef{
		schedulerepo.ContainersCollection:   {Indexes: EventContainersIndexes, Validator: validators.EventContainerValidator},
		schedulerepo.EventsCollection:       {Indexes: EventsIndexes, Validator: validators.EventValidator},
		venuerepo.VenuesCollection:          {},
		coachrepo.UsersCollection:           {},
		coachrepo.ProfilesCollection:        {Indexes: CoachProfilesIndexes},
		coachrepo.AvailabilityCollection:    {Indexes: AvailabilityIndexes},
		coachrepo.ClassTypesCollection:      {},
		coachrepo.StaffDirectoryCollection:  {Indexes: StaffDirectoryIndexes},
		issuerepo.IssuesCollection:          {Indexes: IssuesIndexes, Validator: validators.IssueValidator},
		publishrepo.PublishRunsCollection:   {Indexes: PublishRunsIndexes, Validator: validators.PublishRunValidator},
		publishrepo.BookingLogsCollection:   {Indexes: BookingLogsIndexes, Validator: validators.BookingLogValidator},
		publishrepo.PublishLocksCollection:  {Indexes: PublishLocksIndexes, Validator: validators.PublishLockValidator},
	}
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for name, def := range Collections() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	names, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", names)
	return nil
}
