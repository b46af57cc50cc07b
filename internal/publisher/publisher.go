// Package publisher serializes listing envelopes and hands them to a queue
// transport with a fresh correlation id.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/retail-listing-scraper/internal/listing"
)

// Fixed queue topology shared by all consumers of listings.
const (
	QueueName   = "listings"
	Exchange    = "amq.direct"
	RoutingKey  = "v1"
	HeaderJobID = "job_id"
)

// Message is one serialized envelope plus its headers.
type Message struct {
	Body    []byte
	Headers map[string]string
}

// Transport delivers messages to a concrete broker.
type Transport interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

// IDGenerator produces correlation ids.
type IDGenerator interface {
	NewID() (string, error)
}

// PublishError reports a failed publish; the message is considered lost.
type PublishError struct {
	JobID string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %v", e.JobID, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Publisher implements scraper.Publisher on top of a Transport.
type Publisher struct {
	transport Transport
	ids       IDGenerator
	logger    *zap.Logger
}

// New creates a Publisher.
func New(transport Transport, ids IDGenerator, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{transport: transport, ids: ids, logger: logger}
}

// Publish serializes envelope and sends it with a fresh job_id header.
// Caller headers are copied first; job_id always wins.
func (p *Publisher) Publish(ctx context.Context, envelope listing.Envelope, headers map[string]string) (string, error) {
	jobID, err := p.ids.NewID()
	if err != nil {
		return "", &PublishError{Err: err}
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return "", &PublishError{JobID: jobID, Err: fmt.Errorf("marshal envelope: %w", err)}
	}

	msgHeaders := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		msgHeaders[k] = v
	}
	msgHeaders[HeaderJobID] = jobID

	if err := p.transport.Send(ctx, Message{Body: body, Headers: msgHeaders}); err != nil {
		p.logger.Error("failed to publish message", zap.String("job_id", jobID), zap.Error(err))
		return "", &PublishError{JobID: jobID, Err: err}
	}
	p.logger.Info("published message to queue", zap.String("job_id", jobID))
	return jobID, nil
}

// Close releases the underlying transport.
func (p *Publisher) Close() error {
	if err := p.transport.Close(); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}
