package publisher

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"motorciclye/partsworker/config"
)

// AMQPPublisher implements Publisher over one long-lived RabbitMQ
// connection and channel, opened at session start and closed at session
// end. Publish calls are mutex-guarded because the AMQP channel is not
// safe for concurrent publishing.
type AMQPPublisher struct {
	ctx      context.Context
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	mu       sync.Mutex
}

// NewAMQPPublisher dials the broker and declares the topic exchange.
func NewAMQPPublisher(ctx context.Context, cfg config.BrokerConfig) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %q: %w", cfg.Exchange, err)
	}

	return &AMQPPublisher{
		ctx:      ctx,
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
	}, nil
}

// Publish publishes one JSON message under the given routing key.
func (p *AMQPPublisher) Publish(routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.channel.PublishWithContext(
		p.ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
