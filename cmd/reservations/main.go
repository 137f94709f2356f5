package main

import (
	"context"
	"courtkeeper/internal/availability"
	"courtkeeper/internal/clubs"
	courtsrepository "courtkeeper/internal/courts/repository"
	entitlementsrepository "courtkeeper/internal/entitlements/repository"
	"courtkeeper/internal/entitlements/resolver"
	"courtkeeper/internal/reservations/consumer"
	"courtkeeper/internal/reservations/events"
	"courtkeeper/internal/reservations/handler"
	"courtkeeper/internal/reservations/repository"
	"courtkeeper/internal/reservations/service"
	"courtkeeper/internal/reservations/sweeper"
	"courtkeeper/internal/reservations/validator"
	seasonpasseshandler "courtkeeper/internal/seasonpasses/handler"
	seasonpassesrepository "courtkeeper/internal/seasonpasses/repository"
	seasonpassesservice "courtkeeper/internal/seasonpasses/service"
	tournamentshandler "courtkeeper/internal/tournaments/handler"
	tournamentsrepository "courtkeeper/internal/tournaments/repository"
	tournamentsservice "courtkeeper/internal/tournaments/service"
	"courtkeeper/pkg/app"
	"courtkeeper/pkg/clock"
	"courtkeeper/pkg/config"
	"courtkeeper/pkg/kafka"
	kafka_config "courtkeeper/pkg/kafka/config"
	kafka_middleware "courtkeeper/pkg/kafka/middleware"
	"courtkeeper/pkg/validation"

	"github.com/joho/godotenv"
)

const ServiceName = "reservations"

type stores struct {
	reservations repository.ReservationRepository
	courts       courtsrepository.CourtRepository
	entitlements entitlementsrepository.EntitlementRepository
	tournaments  tournamentsrepository.TournamentRepository
	seasonPasses seasonpassesrepository.SeasonPassRepository
}

func main() {
	_ = godotenv.Load(".env")

	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Reservations service")

	v := validation.New(cfg.Log)
	catalog, err := clubs.LoadCatalog(cfg.ClubsFile, v)
	if err != nil {
		cfg.Log.Fatal("Failed to load club catalog", "path", cfg.ClubsFile, "error", err)
	}

	cfg.SetStore()
	cfg.SetRedis()

	st := initStores(cfg, catalog)
	clk := clock.New()
	serverApp := app.NewApplication()

	var kafkaCfg *kafka_config.Config
	if cfg.KafkaEnabled {
		kafkaCfg = loadKafkaConfig(cfg)
	}

	cache := availability.NewCache(availability.NewRedisStore(cfg.Client.Redis), st.reservations, clk, cfg)
	policy := clubs.NewPolicy(clk)
	guard := service.NewConflictGuard(st.reservations, policy, cache, clk, cfg.Log)
	lifecycle := service.NewLifecycle(st.reservations, cache, initPublisher(cfg, kafkaCfg, serverApp), clk, cfg.Log)

	bookingService := service.NewBookingService(service.Deps{
		Clubs:        catalog,
		Courts:       st.courts,
		Repo:         st.reservations,
		Access:       resolver.NewResolver(st.entitlements),
		Policy:       policy,
		Guard:        guard,
		Lifecycle:    lifecycle,
		Availability: cache,
		Validator:    validator.NewReservationValidator(v),
		Clock:        clk,
	}, cfg)

	allocator := service.NewBlockAllocator(guard, lifecycle)
	tournamentService := tournamentsservice.NewTournamentService(
		st.tournaments, catalog, st.courts, allocator, v, clk, cfg,
	)
	seasonPassService := seasonpassesservice.NewSeasonPassService(
		st.seasonPasses, catalog, st.courts, allocator, st.entitlements, v, clk, cfg,
	)

	serverApp.AddWorker(sweeper.New(st.reservations, lifecycle, clk, cfg))
	if kafkaCfg != nil {
		serverApp.AddWorker(initPaymentConsumer(cfg, kafkaCfg, bookingService))
	}

	serverApp.SetApp(cfg,
		handler.NewHealthHandler(cfg.Log, dependencyChecks(cfg)...),
		handler.NewReservationHandler(bookingService, cfg.Log),
		tournamentshandler.NewTournamentHandler(tournamentService, cfg.Log),
		seasonpasseshandler.NewSeasonPassHandler(seasonPassService, cfg.Log),
	)
	serverApp.Run()
}

func initStores(cfg *config.Config, catalog *clubs.Catalog) stores {
	if cfg.StoreDriver == config.StoreDriverMemory {
		courts := courtsrepository.NewMemoryCourtRepository()
		for _, club := range catalog.Clubs() {
			for _, court := range catalog.Courts(club.ID) {
				court := court
				if err := courts.Upsert(context.Background(), &court); err != nil {
					cfg.Log.Fatal("Failed to seed court", "club_id", club.ID, "court_id", court.ID, "error", err)
				}
			}
		}
		return stores{
			reservations: repository.NewMemoryReservationRepository(),
			courts:       courts,
			entitlements: entitlementsrepository.NewMemoryEntitlementRepository(),
			tournaments:  tournamentsrepository.NewMemoryTournamentRepository(),
			seasonPasses: seasonpassesrepository.NewMemorySeasonPassRepository(),
		}
	}

	st := stores{
		courts:       courtsrepository.NewMongoCourtRepository(cfg),
		entitlements: entitlementsrepository.NewMongoEntitlementRepository(cfg),
		tournaments:  tournamentsrepository.NewMongoTournamentRepository(cfg),
		seasonPasses: seasonpassesrepository.NewMongoSeasonPassRepository(cfg),
	}
	if cfg.StoreDriver == config.StoreDriverPostgres {
		st.reservations = repository.NewPostgresReservationRepository(cfg)
	} else {
		st.reservations = repository.NewMongoReservationRepository(cfg)
	}
	cfg.Log.Info("Stores initialized", "store_driver", cfg.StoreDriver, "database", cfg.MongoDatabaseName)
	return st
}

func initPublisher(cfg *config.Config, kafkaCfg *kafka_config.Config, serverApp *app.Application) service.Publisher {
	if kafkaCfg == nil {
		return events.NewNopPublisher(cfg.Log)
	}

	producer, err := kafka.NewProducer(kafkaCfg, cfg.ReservationEventsTopic, "", cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "topic", cfg.ReservationEventsTopic, "error", err)
	}
	if kafkaCfg.LogMessages {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	serverApp.AddCloser("kafka_producer", producer)
	return events.NewKafkaPublisher(producer, cfg.Log)
}

func initPaymentConsumer(cfg *config.Config, kafkaCfg *kafka_config.Config, bookings service.BookingService) *kafka.Consumer {
	payments := consumer.NewPaymentHandler(bookings, cfg.Log)
	c, err := kafka.NewConsumer(kafkaCfg, cfg.PaymentsTopic, cfg.PaymentsGroupID, cfg.PaymentsDLQTopic, payments.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "topic", cfg.PaymentsTopic, "error", err)
	}
	if kafkaCfg.LogMessages {
		c.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	}
	return c
}

func loadKafkaConfig(cfg *config.Config) *kafka_config.Config {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)
	return kafkaCfg
}

func dependencyChecks(cfg *config.Config) []handler.DependencyCheck {
	var checks []handler.DependencyCheck
	if cfg.Client.Mongo != nil {
		checks = append(checks, handler.DependencyCheck{
			Name: "mongo",
			Ping: func(ctx context.Context) error { return cfg.Client.Mongo.Ping(ctx, nil) },
		})
	}
	if cfg.Client.Postgres != nil {
		checks = append(checks, handler.DependencyCheck{
			Name: "postgres",
			Ping: cfg.Client.Postgres.PingContext,
		})
	}
	if cfg.Client.Redis != nil {
		checks = append(checks, handler.DependencyCheck{
			Name:     "redis",
			Ping:     func(ctx context.Context) error { return cfg.Client.Redis.Ping(ctx).Err() },
			Optional: true,
		})
	}
	return checks
}
