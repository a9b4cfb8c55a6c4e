package queue

import (
	"context"

	"github.com/graphrag-chat/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// MaxRetries is how often a message is retried before it goes to the DLQ.
const MaxRetries = 10

const retriesHeader = "x-retries"

// Retries reads the retry counter. Brokers and clients disagree on the
// integer width, so every integer type is accepted.
func Retries(headers amqp091.Table) int {
	switch v := headers[retriesHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case int8:
		return int(v)
	case uint8:
		return int(v)
	}
	return 0
}

// HandleProcessingError republishes a failed message to the retry queue or,
// once MaxRetries is reached, to the DLQ. The original delivery is acked
// after a successful publish and requeued otherwise.
func HandleProcessingError(ctx context.Context, ch publisherChannel, msg amqp091.Delivery, queueName string) {
	retries := Retries(msg.Headers)

	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}

	target := queueName + "_retry"
	if retries >= MaxRetries {
		target = queueName + "_dlq"
		logger.Warn("[Queue] Sending message to DLQ", "dlq", target, "retries", retries)
	} else {
		headers[retriesHeader] = int32(retries + 1)
		logger.Info("[Queue] Scheduling retry", "retry_queue", target, "attempt", retries+1)
	}

	if err := PublishFIFO(ctx, ch, target, msg.Body, headers); err != nil {
		logger.Error("[Queue] Failed to republish message", "queue", target, "err", err)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
