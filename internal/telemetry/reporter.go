// Package telemetry publishes delivery failure events to RabbitMQ so that
// downstream alerting can consume them. Publishing is fire-and-forget and
// never blocks or fails delivery processing.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// FailureQueueName is the durable queue failure events are published to
const FailureQueueName = "delivery_failures"

// FailureEvent describes one failed delivery attempt
type FailureEvent struct {
	DeliveryID  int       `json:"delivery_id"`
	Channel     string    `json:"channel"`
	TemplateKey string    `json:"template_key"`
	Attempt     int       `json:"attempt"`
	MaxAttempts int       `json:"max_attempts"`
	Error       string    `json:"error"`
	FailedAt    time.Time `json:"failed_at"`
}

// Reporter receives delivery failure events
type Reporter interface {
	ReportFailure(event FailureEvent)
}

// AMQPReporter publishes failure events to a durable RabbitMQ queue
type AMQPReporter struct {
	conn   *Connection
	logger zerolog.Logger
}

// NewAMQPReporter creates a reporter and declares the failure queue
func NewAMQPReporter(conn *Connection, logger zerolog.Logger) (*AMQPReporter, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		FailureQueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &AMQPReporter{conn: conn, logger: logger}, nil
}

// ReportFailure publishes the event. Errors are logged, never returned, so a
// broker outage cannot interfere with delivery processing.
func (r *AMQPReporter) ReportFailure(event FailureEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn().Err(err).Int("delivery_id", event.DeliveryID).Msg("failed to marshal failure event")
		return
	}

	ch, err := r.conn.Channel()
	if err != nil {
		r.logger.Warn().Err(err).Int("delivery_id", event.DeliveryID).Msg("failed to get telemetry channel")
		return
	}

	err = ch.Publish(
		"",               // exchange (default)
		FailureQueueName, // routing key
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
	if err != nil {
		r.logger.Warn().Err(err).Int("delivery_id", event.DeliveryID).Msg("failed to publish failure event")
	}
}

// NoopReporter discards failure events. Used when telemetry is disabled.
type NoopReporter struct{}

// ReportFailure implements Reporter
func (NoopReporter) ReportFailure(FailureEvent) {}
