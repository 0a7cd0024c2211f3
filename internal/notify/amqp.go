package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/wibookly/mailcore/internal/logging"
)

const (
	// jobsExchange is the topic exchange job events are published to.
	jobsExchange = "mailcore.jobs"

	routingKeyJobCompleted = "jobs.completed"
)

// AMQPPublisher publishes job events to a RabbitMQ topic exchange.
type AMQPPublisher struct {
	channel *amqp.Channel
	logger  *slog.Logger
}

// NewAMQPPublisher opens a channel on the connection and declares the jobs
// exchange. The caller owns the connection's lifecycle.
func NewAMQPPublisher(conn *amqp.Connection, logger *slog.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		jobsExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = channel.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", jobsExchange, err)
	}

	return &AMQPPublisher{channel: channel, logger: logger}, nil
}

// JobCompleted publishes the event as a persistent JSON message.
func (p *AMQPPublisher) JobCompleted(ctx context.Context, event JobCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	err = p.channel.PublishWithContext(
		ctx,
		jobsExchange,
		routingKeyJobCompleted,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", jobsExchange, err)
	}

	p.logger.Debug("published job completed event",
		logging.JobID(event.JobID.String()))
	return nil
}

// Close releases the channel.
func (p *AMQPPublisher) Close() error {
	return p.channel.Close()
}
