package main

import (
	"context"
	"courtkeeper/internal/clubs"
	courtsrepository "courtkeeper/internal/courts/repository"
	mongoMigration "courtkeeper/internal/migrations/mongo"
	postgresMigration "courtkeeper/internal/migrations/postgres"
	"courtkeeper/pkg/config"
	"courtkeeper/pkg/validation"
	"time"

	"github.com/joho/godotenv"
)

const JobName = "migrate"

func main() {
	_ = godotenv.Load(".env")

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	if cfg.StoreDriver == config.StoreDriverMemory {
		cfg.Log.Info("Memory store selected, nothing to migrate")
		return
	}
	cfg.SetStore()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting migration job", "store_driver", cfg.StoreDriver)
	migrateMongo(ctx, cfg)
	if cfg.StoreDriver == config.StoreDriverPostgres {
		migratePostgres(ctx, cfg)
	}
	seedCourts(ctx, cfg)
	cfg.Log.Info("Migration completed successfully")
}

func migrateMongo(ctx context.Context, cfg *config.Config) {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	if err := mongoMigration.RunMigration(ctx, db, cfg.Log); err != nil {
		cfg.Log.Fatal("Mongo migration failed", "error", err)
	}
}

func migratePostgres(ctx context.Context, cfg *config.Config) {
	if err := postgresMigration.RunMigration(ctx, cfg.Client.Postgres, cfg.Log); err != nil {
		cfg.Log.Fatal("Postgres migration failed", "error", err)
	}
}

// seedCourts upserts the courts declared in the club catalog so booking can
// look them up from the store.
func seedCourts(ctx context.Context, cfg *config.Config) {
	catalog, err := clubs.LoadCatalog(cfg.ClubsFile, validation.New(cfg.Log))
	if err != nil {
		cfg.Log.Fatal("Failed to load club catalog", "path", cfg.ClubsFile, "error", err)
	}

	courts := courtsrepository.NewMongoCourtRepository(cfg)
	seeded := 0
	for _, club := range catalog.Clubs() {
		for _, court := range catalog.Courts(club.ID) {
			court := court
			if err := courts.Upsert(ctx, &court); err != nil {
				cfg.Log.Fatal("Failed to seed court", "club_id", club.ID, "court_id", court.ID, "error", err)
			}
			seeded++
		}
	}
	cfg.Log.Info("Seeded courts from catalog", "courts", seeded)
}
