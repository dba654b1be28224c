package main

import (
	"context"

	coachhandler "roster/internal/coaches/handler"
	coachrepo "roster/internal/coaches/repository"
	coachservice "roster/internal/coaches/service"
	issuehandler "roster/internal/issues/handler"
	issuerepo "roster/internal/issues/repository"
	issueservice "roster/internal/issues/service"
	"roster/internal/publish"
	publishhandler "roster/internal/publish/handler"
	publishrepo "roster/internal/publish/repository"
	publishservice "roster/internal/publish/service"
	schedulerepo "roster/internal/schedule/repository"
	"roster/internal/schedule/validator"
	venuerepo "roster/internal/venues/repository"
	"roster/pkg/app"
	"roster/pkg/config"
	"roster/pkg/contracts"
	mongotx "roster/pkg/db/mongo"
	"roster/pkg/kafka"
	kafkamiddleware "roster/pkg/kafka/middleware"
)

const ServiceName = "scheduler"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Scheduler service")

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.PublishTopic, cfg.PublishDLQTopic, cfg.Log.Component("kafka-producer"))
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if cfg.Kafka.EnableMiddleware {
		kafkamiddleware.Instrument(producer, cfg.Log)
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(initHandlers(cfg, publish.NewKafkaQueue(producer, ServiceName, cfg.Log)))
	serverApp.OnShutdown(func(ctx context.Context) error { return producer.Close() })
	serverApp.OnShutdown(func(ctx context.Context) error {
		cfg.GracefulShutdown()
		return nil
	})
	serverApp.Run()
}

func initHandlers(cfg *config.Config, queue publish.Queue) contracts.Handler {
	scheduleValidator := validator.NewScheduleValidator(cfg.Log)

	containers := schedulerepo.NewMongoContainerRepository(cfg)
	events := schedulerepo.NewMongoEventRepository(cfg)
	venues := venuerepo.NewMongoVenueRepository(cfg)
	coaches := coachrepo.NewMongoCoachRepository(cfg)
	availability := coachrepo.NewMongoAvailabilityRepository(cfg)
	issues := issuerepo.NewMongoIssueRepository(cfg, mongotx.NewTransactionManager(cfg.Client.Mongo, cfg.Log))

	rankingService := coachservice.NewRankingService(coaches, availability, events, venues, cfg)
	conflictService := issueservice.NewConflictService(containers, events, coaches, availability, venues, issues, cfg)
	orchestrator := publishservice.NewOrchestrator(publishservice.Stores{
		Containers:   containers,
		Events:       events,
		Venues:       venues,
		Users:        coaches,
		ClassTypes:   coachrepo.NewMongoClassTypeRepository(cfg),
		Availability: availability,
		Runs:         publishrepo.NewMongoPublishRunRepository(cfg),
		Logs:         publishrepo.NewMongoBookingLogRepository(cfg),
		Locks:        publishrepo.NewMongoPublishLockRepository(cfg),
	}, queue, cfg)

	cfg.Log.Info("Scheduler service initialized", "database", cfg.MongoDatabaseName)

	return contracts.Handlers{
		coachhandler.NewRankingHandler(rankingService, scheduleValidator, cfg.Log),
		issuehandler.NewConflictHandler(conflictService, scheduleValidator, cfg.Log),
		publishhandler.NewPublishHandler(orchestrator, scheduleValidator, cfg.Log),
	}
}
