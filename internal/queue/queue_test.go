package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/leadpage/internal/leads"
	"github.com/MarkoPoloResearchLab/leadpage/internal/model"
	"github.com/MarkoPoloResearchLab/leadpage/internal/webhook"
)

type declaredBinding struct {
	queue    string
	key      string
	exchange string
}

type recordingDeclarer struct {
	exchanges []string
	queues    map[string]amqp.Table
	bindings  []declaredBinding
	failOn    string
}

func (declarer *recordingDeclarer) ExchangeDeclare(name string, kind string, durable bool, autoDelete bool, internal bool, noWait bool, args amqp.Table) error {
	if name == declarer.failOn {
		return errors.New("access refused")
	}
	declarer.exchanges = append(declarer.exchanges, name)
	return nil
}

func (declarer *recordingDeclarer) QueueDeclare(name string, durable bool, autoDelete bool, exclusive bool, noWait bool, args amqp.Table) (amqp.Queue, error) {
	if declarer.queues == nil {
		declarer.queues = map[string]amqp.Table{}
	}
	declarer.queues[name] = args
	return amqp.Queue{Name: name}, nil
}

func (declarer *recordingDeclarer) QueueBind(name string, key string, exchange string, noWait bool, args amqp.Table) error {
	declarer.bindings = append(declarer.bindings, declaredBinding{queue: name, key: key, exchange: exchange})
	return nil
}

func TestSetupTopologyDeclaresDeadLetterRouting(testingT *testing.T) {
	declarer := &recordingDeclarer{}
	require.NoError(testingT, SetupTopology(declarer))

	require.Equal(testingT, []string{DLXName, ExchangeName}, declarer.exchanges)
	require.Nil(testingT, declarer.queues[DLQName])
	require.Equal(testingT, DLXName, declarer.queues[QueueName]["x-dead-letter-exchange"])
	require.Equal(testingT, RoutingKey, declarer.queues[QueueName]["x-dead-letter-routing-key"])
	require.Equal(testingT, []declaredBinding{
		{queue: DLQName, key: RoutingKey, exchange: DLXName},
		{queue: QueueName, key: RoutingKey, exchange: ExchangeName},
	}, declarer.bindings)
}

func TestSetupTopologyReportsFailures(testingT *testing.T) {
	declarer := &recordingDeclarer{failOn: ExchangeName}
	err := SetupTopology(declarer)
	require.Error(testingT, err)
	require.Contains(testingT, err.Error(), errorMessageTopology)
}

func TestDialRequiresURL(testingT *testing.T) {
	_, err := Dial("  ")
	require.ErrorIs(testingT, err, ErrMissingURL)
}

type recordingPublisher struct {
	exchange string
	key      string
	message  amqp.Publishing
	err      error
}

func (publisher *recordingPublisher) PublishWithContext(_ context.Context, exchange string, key string, _ bool, _ bool, message amqp.Publishing) error {
	publisher.exchange = exchange
	publisher.key = key
	publisher.message = message
	return publisher.err
}

func TestProducerPublishesPersistentJSON(testingT *testing.T) {
	publisher := &recordingPublisher{}
	producer := NewProducer(publisher)
	event := leads.Event{Type: model.LeadSourceMerchant, LeadID: "lead-1", Name: "Ana", WhatsApp: "11999990000", OccurredAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

	require.NoError(testingT, producer.Publish(context.Background(), event))
	require.Equal(testingT, ExchangeName, publisher.exchange)
	require.Equal(testingT, RoutingKey, publisher.key)
	require.Equal(testingT, amqp.Persistent, publisher.message.DeliveryMode)
	require.Equal(testingT, contentTypeJSON, publisher.message.ContentType)

	var decoded leads.Event
	require.NoError(testingT, json.Unmarshal(publisher.message.Body, &decoded))
	require.Equal(testingT, event, decoded)
}

func TestProducerWrapsPublishErrors(testingT *testing.T) {
	producer := NewProducer(&recordingPublisher{err: amqp.ErrClosed})
	err := producer.Publish(context.Background(), leads.Event{LeadID: "lead-1"})
	require.ErrorIs(testingT, err, amqp.ErrClosed)
}

type acknowledgement struct {
	tag     uint64
	acked   bool
	requeue bool
}

type recordingAcknowledger struct {
	mutex  sync.Mutex
	events []acknowledgement
}

func (acknowledger *recordingAcknowledger) Ack(tag uint64, multiple bool) error {
	acknowledger.mutex.Lock()
	defer acknowledger.mutex.Unlock()
	acknowledger.events = append(acknowledger.events, acknowledgement{tag: tag, acked: true})
	return nil
}

func (acknowledger *recordingAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	acknowledger.mutex.Lock()
	defer acknowledger.mutex.Unlock()
	acknowledger.events = append(acknowledger.events, acknowledgement{tag: tag, requeue: requeue})
	return nil
}

func (acknowledger *recordingAcknowledger) Reject(tag uint64, requeue bool) error {
	return acknowledger.Nack(tag, false, requeue)
}

func (acknowledger *recordingAcknowledger) recorded() []acknowledgement {
	acknowledger.mutex.Lock()
	defer acknowledger.mutex.Unlock()
	return append([]acknowledgement(nil), acknowledger.events...)
}

type channelConsumer struct {
	deliveries chan amqp.Delivery
	queue      string
	autoAck    bool
}

func (consumer *channelConsumer) Consume(queue string, _ string, autoAck bool, _ bool, _ bool, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	consumer.queue = queue
	consumer.autoAck = autoAck
	return consumer.deliveries, nil
}

type stubDeliverer struct {
	mutex  sync.Mutex
	events []leads.Event
	errFor map[string]error
}

func (deliverer *stubDeliverer) Deliver(_ context.Context, event leads.Event) (webhook.Outcome, error) {
	deliverer.mutex.Lock()
	defer deliverer.mutex.Unlock()
	deliverer.events = append(deliverer.events, event)
	if err := deliverer.errFor[event.LeadID]; err != nil {
		return webhook.Outcome{}, err
	}
	return webhook.Outcome{StatusCode: 500}, nil
}

func TestWorkerAcksHandledAndDeadLettersInvalidMessages(testingT *testing.T) {
	acknowledger := &recordingAcknowledger{}
	consumer := &channelConsumer{deliveries: make(chan amqp.Delivery, 3)}
	deliverer := &stubDeliverer{errFor: map[string]error{"lead-broken": errors.New("database locked")}}
	worker := NewWorker(consumer, deliverer, zap.NewNop(), time.Second)

	validBody, err := json.Marshal(leads.Event{Type: model.LeadSourceMerchant, LeadID: "lead-ok"})
	require.NoError(testingT, err)
	brokenBody, err := json.Marshal(leads.Event{Type: model.LeadSourceMerchant, LeadID: "lead-broken"})
	require.NoError(testingT, err)

	consumer.deliveries <- amqp.Delivery{Acknowledger: acknowledger, DeliveryTag: 1, Body: validBody}
	consumer.deliveries <- amqp.Delivery{Acknowledger: acknowledger, DeliveryTag: 2, Body: []byte("{not json")}
	consumer.deliveries <- amqp.Delivery{Acknowledger: acknowledger, DeliveryTag: 3, Body: brokenBody}
	close(consumer.deliveries)

	runErr := worker.Run(context.Background())
	require.ErrorIs(testingT, runErr, ErrDeliveriesClosed)
	require.Equal(testingT, QueueName, consumer.queue)
	require.False(testingT, consumer.autoAck)

	require.Equal(testingT, []acknowledgement{
		{tag: 1, acked: true},
		{tag: 2, requeue: false},
		{tag: 3, requeue: false},
	}, acknowledger.recorded())
	require.Len(testingT, deliverer.events, 2)
}

func TestWorkerStopsOnContextCancel(testingT *testing.T) {
	consumer := &channelConsumer{deliveries: make(chan amqp.Delivery)}
	worker := NewWorker(consumer, &stubDeliverer{}, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan error, 1)
	go func() {
		finished <- worker.Run(ctx)
	}()
	cancel()

	select {
	case runErr := <-finished:
		require.NoError(testingT, runErr)
	case <-time.After(2 * time.Second):
		testingT.Fatal("worker did not stop")
	}
}
