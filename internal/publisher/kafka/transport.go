// Package kafka implements publisher.Transport on a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/JakeFAU/retail-listing-scraper/internal/publisher"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Transport wraps a Kafka writer. Messages are keyed by job_id.
type Transport struct {
	writer messageWriter
}

// New creates a transport writing to topic on the given brokers.
func New(brokers []string, topic string) (*Transport, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		topic = publisher.QueueName
	}
	return &Transport{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: false,
		},
	}, nil
}

// NewWithWriter builds a transport using a custom writer (tests).
func NewWithWriter(writer messageWriter) *Transport {
	return &Transport{writer: writer}
}

// Send writes one message and waits for the broker acknowledgement.
func (t *Transport) Send(ctx context.Context, msg publisher.Message) error {
	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	headers := make([]kafka.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(msg.Headers[k])})
	}

	err := t.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.Headers[publisher.HeaderJobID]),
		Value:   msg.Body,
		Headers: headers,
		Time:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close shuts down the underlying writer.
func (t *Transport) Close() error {
	return t.writer.Close()
}
