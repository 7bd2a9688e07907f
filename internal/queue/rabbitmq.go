package queue

import (
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "leads"
	QueueName    = "lead_webhooks"
	DLXName      = "leads.dlx"
	DLQName      = "lead_webhooks.dlq"
	RoutingKey   = "lead.created"

	exchangeKindDirect = "direct"

	errorMessageDial     = "queue: dial"
	errorMessageChannel  = "queue: open channel"
	errorMessageTopology = "queue: declare topology"
)

var ErrMissingURL = errors.New("queue: missing amqp url")

// TopologyDeclarer is the subset of *amqp.Channel used to declare exchanges and queues.
type TopologyDeclarer interface {
	ExchangeDeclare(name string, kind string, durable bool, autoDelete bool, internal bool, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable bool, autoDelete bool, exclusive bool, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name string, key string, exchange string, noWait bool, args amqp.Table) error
}

// Connection owns the broker connection and the channel shared by the producer and the worker.
type Connection struct {
	connection *amqp.Connection
	channel    *amqp.Channel
}

// Dial connects to RabbitMQ and declares the lead topology.
func Dial(url string) (*Connection, error) {
	trimmedURL := strings.TrimSpace(url)
	if trimmedURL == "" {
		return nil, ErrMissingURL
	}

	connection, dialErr := amqp.Dial(trimmedURL)
	if dialErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageDial, dialErr)
	}

	channel, channelErr := connection.Channel()
	if channelErr != nil {
		_ = connection.Close()
		return nil, fmt.Errorf("%s: %w", errorMessageChannel, channelErr)
	}

	if topologyErr := SetupTopology(channel); topologyErr != nil {
		_ = channel.Close()
		_ = connection.Close()
		return nil, topologyErr
	}

	return &Connection{connection: connection, channel: channel}, nil
}

// Channel exposes the shared channel.
func (connection *Connection) Channel() *amqp.Channel {
	return connection.channel
}

func (connection *Connection) Close() error {
	if connection == nil {
		return nil
	}
	channelErr := connection.channel.Close()
	connectionErr := connection.connection.Close()
	return errors.Join(channelErr, connectionErr)
}

// SetupTopology declares the dead-letter exchange and queue first, then the lead
// queue whose rejected messages are routed to them.
func SetupTopology(declarer TopologyDeclarer) error {
	if err := declarer.ExchangeDeclare(DLXName, exchangeKindDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("%s: %w", errorMessageTopology, err)
	}
	if _, err := declarer.QueueDeclare(DLQName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("%s: %w", errorMessageTopology, err)
	}
	if err := declarer.QueueBind(DLQName, RoutingKey, DLXName, false, nil); err != nil {
		return fmt.Errorf("%s: %w", errorMessageTopology, err)
	}

	deadLetterArgs := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": RoutingKey,
	}
	if err := declarer.ExchangeDeclare(ExchangeName, exchangeKindDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("%s: %w", errorMessageTopology, err)
	}
	if _, err := declarer.QueueDeclare(QueueName, true, false, false, false, deadLetterArgs); err != nil {
		return fmt.Errorf("%s: %w", errorMessageTopology, err)
	}
	if err := declarer.QueueBind(QueueName, RoutingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("%s: %w", errorMessageTopology, err)
	}
	return nil
}
