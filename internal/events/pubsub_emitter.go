package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"cloud.google.com/go/pubsub"
)

// PubSubEmitter publishes stage-transition events to a Google Cloud Pub/Sub
// topic so downstream audit consumers see every checkpoint crossing.
type PubSubEmitter struct {
	ctx    context.Context
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubEmitter connects to the project and topic.
func NewPubSubEmitter(ctx context.Context, projectID, topicID string) (*PubSubEmitter, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &PubSubEmitter{
		ctx:    ctx,
		client: client,
		topic:  client.Topic(topicID),
	}, nil
}

// Close releases the topic and client.
func (e *PubSubEmitter) Close() error {
	e.topic.Stop()
	return e.client.Close()
}

func (e *PubSubEmitter) Emit(event StageEvent) {
	b, err := json.Marshal(event)
	if err != nil {
		slog.Error("pubsub marshal failed", "error", err)
		return
	}

	res := e.topic.Publish(e.ctx, &pubsub.Message{
		Data: b,
		Attributes: map[string]string{
			"contract_id": event.ContractID,
			"to_stage":    event.ToStage,
		},
	})

	if _, err := res.Get(e.ctx); err != nil {
		slog.Error("pubsub publish failed", "contract_id", event.ContractID, "error", err)
	}
}
