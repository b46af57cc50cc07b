// Package pubsub implements publisher.Transport on a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/JakeFAU/retail-listing-scraper/internal/publisher"
)

// Transport publishes each message to a topic and waits for the server ack.
type Transport struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// New creates a client and verifies the topic exists.
// It authenticates using Application Default Credentials.
func New(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*Transport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err == nil && !exists {
		err = fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("check pubsub topic: %w", err)
	}
	return NewWithTopic(client, topic), nil
}

// NewWithTopic wraps an existing client and topic (primarily for testing).
func NewWithTopic(client *pubsub.Client, topic *pubsub.Topic) *Transport {
	return &Transport{client: client, topic: topic}
}

// Send publishes msg with its headers as attributes.
func (t *Transport) Send(ctx context.Context, msg publisher.Message) error {
	result := t.topic.Publish(ctx, &pubsub.Message{
		Data:       msg.Body,
		Attributes: msg.Headers,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("pubsub publish: %w", err)
	}
	return nil
}

// Close flushes the topic and closes the client.
func (t *Transport) Close() error {
	t.topic.Stop()
	if err := t.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
