package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	coachrepo "roster/internal/coaches/repository"
	"roster/internal/mbo"
	"roster/internal/publish"
	publishrepo "roster/internal/publish/repository"
	publishservice "roster/internal/publish/service"
	schedulerepo "roster/internal/schedule/repository"
	"roster/internal/translator"
	venuerepo "roster/internal/venues/repository"
	"roster/pkg/config"
	"roster/pkg/kafka"
	kafkamiddleware "roster/pkg/kafka/middleware"

	"golang.org/x/sync/errgroup"
)

const ServiceName = "publish-worker"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting publish worker", "consumers", cfg.Kafka.ConsumerConcurrency)

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.PublishTopic, cfg.PublishDLQTopic, cfg.Log.Component("kafka-producer"))
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if cfg.Kafka.EnableMiddleware {
		kafkamiddleware.Instrument(producer, cfg.Log)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}()

	handler := publish.NewMessageHandler(initWorker(cfg, publish.NewKafkaQueue(producer, ServiceName, cfg.Log)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Kafka.ConsumerConcurrency; i++ {
		consumer, err := kafka.NewConsumer(cfg.Kafka, cfg.PublishTopic, cfg.PublishConsumerGroup, cfg.PublishDLQTopic, handler,
			cfg.Log.Component("kafka-consumer").With("consumer", i))
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
		}
		if cfg.Kafka.EnableMiddleware {
			for _, m := range kafkamiddleware.ConsumerChain(cfg.Log) {
				consumer.Use(m)
			}
		}

		g.Go(func() error {
			defer func() {
				if err := consumer.Close(); err != nil {
					cfg.Log.Error("Failed to close Kafka consumer", "error", err)
				}
			}()
			return consumer.Start(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Publish worker stopped", "error", err)
		return
	}
	cfg.Log.Info("Publish worker stopped")
}

func initWorker(cfg *config.Config, queue publish.Queue) publish.TaskHandler {
	coaches := coachrepo.NewMongoCoachRepository(cfg)
	client := mbo.NewClient(cfg)

	stores := publishservice.Stores{
		Containers:   schedulerepo.NewMongoContainerRepository(cfg),
		Events:       schedulerepo.NewMongoEventRepository(cfg),
		Venues:       venuerepo.NewMongoVenueRepository(cfg),
		Users:        coaches,
		ClassTypes:   coachrepo.NewMongoClassTypeRepository(cfg),
		Availability: coachrepo.NewMongoAvailabilityRepository(cfg),
		Runs:         publishrepo.NewMongoPublishRunRepository(cfg),
		Logs:         publishrepo.NewMongoBookingLogRepository(cfg),
		Locks:        publishrepo.NewMongoPublishLockRepository(cfg),
	}
	tr := translator.NewTranslator(client, coachrepo.NewMongoStaffDirectoryRepository(cfg), cfg)

	cfg.Log.Info("Publish worker initialized", "topic", cfg.PublishTopic, "group", cfg.PublishConsumerGroup)
	return publishservice.NewWorker(stores, client, tr, queue, cfg)
}
