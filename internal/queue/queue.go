// Package queue moves ingest and delete jobs between the API server and the
// worker over RabbitMQ. Every work queue has a _retry queue that dead-letters
// back into it after a delay and a _dlq for messages that kept failing.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/graphrag-chat/backend/internal/app"
	"github.com/graphrag-chat/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	IngestQueue = "ingest_queue"
	DeleteQueue = "delete_queue"

	retryDelay = 10 * time.Second
)

// Queues lists the work queues the worker consumes.
var Queues = []string{IngestQueue, DeleteQueue}

// Name returns the work queue for a job kind.
func Name(kind app.JobKind) (string, error) {
	switch kind {
	case app.JobIngest:
		return IngestQueue, nil
	case app.JobDelete:
		return DeleteQueue, nil
	}
	return "", fmt.Errorf("unknown job kind %q", kind)
}

func Init(cfg app.QueueConfig) *amqp091.Connection {
	conn, err := amqp091.Dial(cfg.URL())
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "host", cfg.Host, "err", err)
	}
	return conn
}

type declarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
}

// SetupQueues declares each queue together with its _dlq and _retry queues.
func SetupQueues(ch declarer, queueNames []string) error {
	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("QueueDeclare %s: %w", name, err)
		}

		dlqName := name + "_dlq"
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("QueueDeclare %s: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err := ch.QueueDeclare(
			retryName,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			amqp091.Table{
				"x-message-ttl":             int32(retryDelay.Milliseconds()),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("QueueDeclare %s: %w", retryName, err)
		}
	}
	return nil
}

type publisherChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// PublishFIFO sends a persistent message to queueName via the default
// exchange.
func PublishFIFO(ctx context.Context, ch publisherChannel, queueName string, data []byte, headers amqp091.Table) error {
	return ch.PublishWithContext(ctx, "", queueName, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		Headers:      headers,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	})
}

// Publisher implements app.Publisher on an AMQP channel.
type Publisher struct {
	ch publisherChannel
}

func NewPublisher(ch *amqp091.Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) Publish(ctx context.Context, kind app.JobKind, job app.Job) error {
	name, err := Name(kind)
	if err != nil {
		return err
	}
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return PublishFIFO(ctx, p.ch, name, body, nil)
}
