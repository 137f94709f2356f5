package mongo

import (
	"context"
	"courtkeeper/internal/migrations/mongo/validators"
	"courtkeeper/pkg/logger"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ReservationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "club_id", Value: 1},
			{Key: "resource_id", Value: 1},
			{Key: "date", Value: 1},
			{Key: "status", Value: 1},
		}},
		// Replays find the first reservation stored under a key. Requests
		// without a key are not indexed.
		{
			Keys: bson.D{{Key: "club_id", Value: 1}, {Key: "request_key", Value: 1}},
			Options: options.Index().
				SetName("club_request_key_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"request_key": bson.M{"$type": "string"}}),
		},
		{Keys: bson.D{
			{Key: "club_id", Value: 1},
			{Key: "requester_id", Value: 1},
			{Key: "starts_at", Value: -1},
		}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "hold_expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "ends_at", Value: 1}}},
	}

	CourtsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "club_id", Value: 1}, {Key: "name", Value: 1}}},
	}

	EntitlementsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "club_id", Value: 1},
			{Key: "user_id", Value: 1},
			{Key: "valid_from", Value: 1},
			{Key: "valid_until", Value: 1},
		}},
		{Keys: bson.D{{Key: "season_pass_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	TournamentsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "club_id", Value: 1}, {Key: "status", Value: 1}}},
	}

	SeasonPassesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "club_id", Value: 1}, {Key: "holder_id", Value: 1}}},
	}
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

var collections = map[string]collectionDef{
	"Reservations": {
		Indexes:   ReservationsIndexes,
		Validator: validators.ReservationValidator,
	},
	"Reservation_guards": {
		Validator: validators.ReservationGuardValidator,
	},
	"Courts": {
		Indexes:   CourtsIndexes,
		Validator: validators.CourtValidator,
	},
	"Entitlements": {
		Indexes:   EntitlementsIndexes,
		Validator: validators.EntitlementValidator,
	},
	"Tournaments": {
		Indexes:   TournamentsIndexes,
		Validator: validators.TournamentValidator,
	},
	"Season_passes": {
		Indexes:   SeasonPassesIndexes,
		Validator: validators.SeasonPassValidator,
	},
}

// RunMigration creates every collection with its validator and indexes.
// It is safe to run repeatedly: existing collections get their validator
// replaced and existing indexes are left alone.
func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := collections[name]
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All Mongo migrations applied")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
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
	coll := db.Collection(name)
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
