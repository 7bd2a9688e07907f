package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/leadpage/internal/leads"
	"github.com/MarkoPoloResearchLab/leadpage/internal/webhook"
)

const (
	defaultHandleTimeout = 30 * time.Second

	errorMessageConsume = "queue: consume"

	logEventInvalidMessage = "queue_invalid_message"
	logEventDeliverFailed  = "queue_deliver_failed"
	logEventAckFailed      = "queue_ack_failed"
	logEventConsumerClosed = "queue_consumer_closed"
)

var ErrDeliveriesClosed = errors.New("queue: deliveries channel closed")

// Consumer is the subset of *amqp.Channel used to consume.
type Consumer interface {
	Consume(queue string, consumer string, autoAck bool, exclusive bool, noLocal bool, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Worker consumes lead events and hands them to the webhook dispatcher with manual acks.
type Worker struct {
	consumer      Consumer
	deliverer     webhook.Deliverer
	logger        *zap.Logger
	handleTimeout time.Duration
}

func NewWorker(consumer Consumer, deliverer webhook.Deliverer, logger *zap.Logger, handleTimeout time.Duration) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if handleTimeout <= 0 {
		handleTimeout = defaultHandleTimeout
	}
	return &Worker{
		consumer:      consumer,
		deliverer:     deliverer,
		logger:        logger,
		handleTimeout: handleTimeout,
	}
}

// Run blocks until ctx is cancelled or the broker closes the deliveries channel.
func (worker *Worker) Run(ctx context.Context) error {
	deliveries, consumeErr := worker.consumer.Consume(QueueName, "", false, false, false, false, nil)
	if consumeErr != nil {
		return fmt.Errorf("%s: %w", errorMessageConsume, consumeErr)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, open := <-deliveries:
			if !open {
				worker.logger.Warn(logEventConsumerClosed)
				return ErrDeliveriesClosed
			}
			worker.handle(ctx, delivery)
		}
	}
}

func (worker *Worker) handle(ctx context.Context, delivery amqp.Delivery) {
	var event leads.Event
	if err := json.Unmarshal(delivery.Body, &event); err != nil || event.LeadID == "" {
		worker.logger.Warn(logEventInvalidMessage, zap.Error(err), zap.String("message_id", delivery.MessageId))
		worker.settle(delivery.Nack(false, false))
		return
	}

	handleCtx, cancel := context.WithTimeout(ctx, worker.handleTimeout)
	defer cancel()
	if _, err := worker.deliverer.Deliver(handleCtx, event); err != nil {
		worker.logger.Warn(logEventDeliverFailed, zap.Error(err), zap.String("lead_id", event.LeadID))
		worker.settle(delivery.Nack(false, false))
		return
	}
	worker.settle(delivery.Ack(false))
}

func (worker *Worker) settle(err error) {
	if err != nil {
		worker.logger.Warn(logEventAckFailed, zap.Error(err))
	}
}
