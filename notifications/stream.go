package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// streamClient is the part of redis.Client used to append to a stream
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// StreamPublisher appends every request to a Redis stream so external
// delivery workers and audits can consume it
type StreamPublisher struct {
	client streamClient
	stream string
	maxLen int64
}

// NewStreamPublisher creates a publisher writing to stream
func NewStreamPublisher(client streamClient, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: 10000}
}

// Send appends req to the stream
func (p *StreamPublisher) Send(ctx context.Context, req Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	_, err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"channel":         string(req.Channel),
			"kind":            string(req.Kind),
			"recipient":       req.Recipient.Name,
			"email":           req.Recipient.Email,
			"intervention_id": req.Intervention.ID,
			"payload":         string(payload),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}
	return nil
}
