package publish

import (
	"context"
	"errors"
	"fmt"

	"roster/pkg/kafka"
	"roster/pkg/logger"
)

type TaskType string

const (
	// TaskRemove retires the container's old bookings, then fans out session tasks.
	TaskRemove TaskType = "publish.remove"
	// TaskSession publishes one session.
	TaskSession TaskType = "publish.session"
)

const taskSchemaVersion = "1"

// Task is one unit of publish work. Delivery is at least once.
type Task struct {
	Type        TaskType `json:"type"`
	RunID       string   `json:"run_id"`
	ContainerID string   `json:"container_id"`
	EventID     string   `json:"event_id,omitempty"`
}

func (t Task) Validate() error {
	if t.RunID == "" || t.ContainerID == "" {
		return errors.New("task requires run_id and container_id")
	}
	switch t.Type {
	case TaskRemove:
		return nil
	case TaskSession:
		if t.EventID == "" {
			return errors.New("session task requires event_id")
		}
		return nil
	}
	return fmt.Errorf("unknown task type %q", t.Type)
}

// key routes a run's removal task and each session to their own partitions.
func (t Task) key() string {
	if t.Type == TaskSession {
		return t.EventID
	}
	return t.RunID
}

// Queue is the durable work queue between the orchestrator and the workers.
type Queue interface {
	Enqueue(ctx context.Context, tasks ...Task) error
}

// Publisher is the producer side of a Kafka topic.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	PublishBatch(ctx context.Context, messages []kafka.Message) error
}

type kafkaQueue struct {
	producer Publisher
	source   string
	log      *logger.Logger
}

func NewKafkaQueue(producer Publisher, source string, log *logger.Logger) Queue {
	return &kafkaQueue{
		producer: producer,
		source:   source,
		log:      log,
	}
}

func (q *kafkaQueue) Enqueue(ctx context.Context, tasks ...Task) error {
	if len(tasks) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(tasks))
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return err
		}
		messages = append(messages, kafka.NewMessage().
			WithKey(t.key()).
			WithValue(t).
			WithEventType(string(t.Type)).
			WithCorrelationID(t.RunID).
			WithSchemaVersion(taskSchemaVersion).
			WithSource(q.source).
			Build())
	}

	var err error
	if len(messages) == 1 {
		err = q.producer.Publish(ctx, messages[0])
	} else {
		err = q.producer.PublishBatch(ctx, messages)
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue %d publish task(s): %w", len(messages), err)
	}

	q.log.Debug("Enqueued publish tasks",
		"run_id", tasks[0].RunID,
		"type", tasks[0].Type,
		"count", len(messages),
	)
	return nil
}

// TaskHandler executes decoded tasks.
type TaskHandler interface {
	HandleTask(ctx context.Context, task Task) error
}

// NewMessageHandler decodes publish tasks for a Kafka consumer. Undecodable messages
// are permanent failures and go to the dead letter topic.
func NewMessageHandler(h TaskHandler) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var task Task
		if err := msg.DecodeValue(&task); err != nil {
			return kafka.NewPermanentError("failed to decode publish task", err)
		}
		if err := task.Validate(); err != nil {
			return kafka.NewPermanentError("invalid publish task", err)
		}

		err := h.HandleTask(ctx, task)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return kafka.NewTransientError("publish task interrupted", err)
		}
		return err
	}
}
