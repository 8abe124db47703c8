package syncer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	"github.com/angelmondragon/zohosync-backend/pkg/types"
)

// RunEvent announces that an entity run reached its logged state.
type RunEvent struct {
	RunID      string            `json:"run_id"`
	Entity     enums.SyncEntity  `json:"entity"`
	Status     enums.SyncStatus  `json:"status"`
	Trigger    enums.SyncTrigger `json:"trigger"`
	Details    types.SyncDetails `json:"details"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Notifier receives run events. Failures are logged by the caller and never
// affect the run.
type Notifier interface {
	Notify(ctx context.Context, event RunEvent) error
}

// MessagePublisher sends a payload to a topic.
type MessagePublisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error)
}

// PubSubNotifier publishes run events as JSON messages.
type PubSubNotifier struct {
	publisher MessagePublisher
}

func NewPubSubNotifier(publisher MessagePublisher) *PubSubNotifier {
	return &PubSubNotifier{publisher: publisher}
}

func (n *PubSubNotifier) Notify(ctx context.Context, event RunEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = n.publisher.Publish(ctx, payload, map[string]string{
		"event_type": "sync.entity_completed",
		"entity":     event.Entity.String(),
		"status":     event.Status.String(),
	})
	return err
}
