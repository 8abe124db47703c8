package syncer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	"github.com/angelmondragon/zohosync-backend/pkg/types"
)

type capturePublisher struct {
	data  []byte
	attrs map[string]string
}

func (p *capturePublisher) Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	p.data = data
	p.attrs = attrs
	return "msg-1", nil
}

func TestPubSubNotifierPublishesEvent(t *testing.T) {
	pub := &capturePublisher{}
	event := RunEvent{
		RunID:      "run-1",
		Entity:     enums.SyncEntityInvoices,
		Status:     enums.SyncStatusError,
		Trigger:    enums.SyncTriggerManual,
		Details:    types.SyncDetails{Fetched: 3, Error: "fetch incomplete"},
		FinishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := NewPubSubNotifier(pub).Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if pub.attrs["event_type"] != "sync.entity_completed" || pub.attrs["entity"] != "invoices" || pub.attrs["status"] != "error" {
		t.Fatalf("unexpected attributes %v", pub.attrs)
	}
	var decoded RunEvent
	if err := json.Unmarshal(pub.data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.RunID != "run-1" || decoded.Details.Fetched != 3 {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}
