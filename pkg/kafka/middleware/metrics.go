package kafka_middleware

import (
	"context"
	"time"

	"roster/pkg/kafka"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

var (
	messagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roster_kafka_messages_published_total",
			Help: "Messages written to Kafka, by topic and result",
		},
		[]string{"topic", "result"},
	)
	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roster_kafka_publish_duration_seconds",
			Help:    "Time spent writing one message to Kafka",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
	messagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roster_kafka_messages_consumed_total",
			Help: "Messages handled by consumers, by topic, event type and result",
		},
		[]string{"topic", "event_type", "result"},
	)
	consumeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roster_kafka_consume_duration_seconds",
			Help:    "Handler time for one consumed message",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"topic", "event_type"},
	)
)

func result(err error) string {
	if err != nil {
		return resultFailure
	}
	return resultSuccess
}

func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)

		publishDuration.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
		messagesPublished.WithLabelValues(msg.Topic, result(err)).Inc()
		return err
	}
}

func MetricsConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)

		eventType := msg.GetEventType()
		consumeDuration.WithLabelValues(msg.Topic, eventType).Observe(time.Since(start).Seconds())
		messagesConsumed.WithLabelValues(msg.Topic, eventType, result(err)).Inc()
		return err
	}
}
