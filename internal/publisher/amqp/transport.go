// Package amqp implements publisher.Transport for RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/JakeFAU/retail-listing-scraper/internal/publisher"
)

// Config captures the broker connection parameters.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Vhost    string
}

// URI renders the connection string.
func (c Config) URI() string {
	vhost := c.Vhost
	if vhost == "" {
		vhost = "/"
	}
	return amqp.URI{
		Scheme:   "amqp",
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		Vhost:    vhost,
	}.String()
}

type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type closer interface {
	Close() error
}

// Transport publishes persistent JSON messages to amq.direct with routing key v1.
// Publishes are serialized because an AMQP channel is not safe for concurrent use.
type Transport struct {
	mu     sync.Mutex
	conn   closer
	ch     channel
	logger *zap.Logger
}

// Dial opens a connection and channel and declares the durable listings queue.
func Dial(cfg Config, logger *zap.Logger) (*Transport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		return nil, errors.New("amqp host is required")
	}
	conn, err := amqp.Dial(cfg.URI())
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close rabbitmq connection after channel failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	t, err := NewWithChannel(conn, ch, logger)
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Warn("failed to close rabbitmq connection after setup failure", zap.Error(closeErr))
		}
		return nil, err
	}
	logger.Info("rabbitmq initialized", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
	return t, nil
}

// NewWithChannel builds a transport from an open connection and channel (primarily for testing).
// It declares the queue and binds it to the exchange; both are idempotent.
func NewWithChannel(conn closer, ch channel, logger *zap.Logger) (*Transport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := ch.QueueDeclare(publisher.QueueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", publisher.QueueName, err)
	}
	if err := ch.QueueBind(publisher.QueueName, publisher.RoutingKey, publisher.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %s: %w", publisher.QueueName, err)
	}
	return &Transport{conn: conn, ch: ch, logger: logger}, nil
}

// Send publishes msg to the listings exchange.
func (t *Transport) Send(ctx context.Context, msg publisher.Message) error {
	headers := make(amqp.Table, len(msg.Headers))
	for k, v := range msg.Headers {
		headers[k] = v
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.ch.PublishWithContext(ctx, publisher.Exchange, publisher.RoutingKey, false, false, amqp.Publishing{
		ContentType:     "application/json",
		ContentEncoding: "utf-8",
		DeliveryMode:    amqp.Persistent,
		Headers:         headers,
		Body:            msg.Body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Close closes the channel and then the connection, reporting the first failure.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	chErr := t.ch.Close()
	connErr := t.conn.Close()
	t.logger.Info("rabbitmq connection closed")
	if chErr != nil {
		return fmt.Errorf("close channel: %w", chErr)
	}
	if connErr != nil {
		return fmt.Errorf("close connection: %w", connErr)
	}
	return nil
}
