package qbo

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/pacefoods/crm_backend/config"
)

// SyncEvent is the fan-out message published after a sync-affecting change.
// Consumers are informational (reporting, notifications); delivery is
// best-effort and never blocks the calling request.
type SyncEvent struct {
	EventType  string `json:"event_type"`
	EntityType string `json:"entity_type"`
	EntityId   int    `json:"entity_id"`
	QboId      string `json:"qbo_id,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

func eventsTopicName() string {
	if v := strings.TrimSpace(os.Getenv("QBO_EVENTS_TOPIC")); v != "" {
		return v
	}
	return "qbo-sync-events"
}

// PublishSyncEvent publishes one event. Failures are logged by the caller if
// it cares; most call sites ignore the error.
func PublishSyncEvent(ctx context.Context, event SyncEvent) error {
	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}
	topic, err := config.CreateTopicIfNotExists(client, eventsTopicName())
	if err != nil {
		return err
	}

	if event.OccurredAt == "" {
		event.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	result := topic.Publish(publishCtx, &pubsub.Message{Data: data})
	_, err = result.Get(publishCtx)
	return err
}
