package kafka_middleware

import (
	"roster/pkg/kafka"
	"roster/pkg/logger"
)

// ProducerChain is the middleware every producer carries, outermost first.
func ProducerChain(log *logger.Logger) []kafka.ProducerMiddleware {
	return []kafka.ProducerMiddleware{
		LoggingProducerMiddleware(log),
		MetricsProducerMiddleware(),
	}
}

func ConsumerChain(log *logger.Logger) []kafka.ConsumerMiddleware {
	return []kafka.ConsumerMiddleware{
		LoggingConsumerMiddleware(log),
		MetricsConsumerMiddleware(),
	}
}

// Instrument attaches ProducerChain to p.
func Instrument(p *kafka.Producer, log *logger.Logger) {
	for _, m := range ProducerChain(log) {
		p.Use(m)
	}
}
