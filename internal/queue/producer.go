package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/MarkoPoloResearchLab/leadpage/internal/leads"
)

const (
	contentTypeJSON = "application/json"

	errorMessageEncodeEvent  = "queue: encode event"
	errorMessagePublishEvent = "queue: publish event"
)

// Publisher is the subset of *amqp.Channel used to publish.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange string, key string, mandatory bool, immediate bool, msg amqp.Publishing) error
}

// Producer publishes lead events as persistent JSON messages.
type Producer struct {
	publisher Publisher
}

func NewProducer(publisher Publisher) *Producer {
	return &Producer{publisher: publisher}
}

func (producer *Producer) Publish(ctx context.Context, event leads.Event) error {
	body, encodeErr := json.Marshal(event)
	if encodeErr != nil {
		return fmt.Errorf("%s: %w", errorMessageEncodeEvent, encodeErr)
	}

	publishErr := producer.publisher.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  contentTypeJSON,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.LeadID,
			Type:         event.Type,
		},
	)
	if publishErr != nil {
		return fmt.Errorf("%s: %w", errorMessagePublishEvent, publishErr)
	}
	return nil
}
