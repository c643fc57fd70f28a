package log

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/isjust11/easy-order-sub000/pkg/wire"
)

func createTestLogFile(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test"+FileExtension)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test trace: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var out []Event
	for {
		event, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out = append(out, event)
	}
}

func TestReaderIteratesInOrder(t *testing.T) {
	now := time.Now()
	path := createTestLogFile(t, []Event{
		{Timestamp: now, ConnectionID: "conn-1", Layer: LayerTransport},
		{Timestamp: now, ConnectionID: "conn-2", Layer: LayerWire},
		{Timestamp: now, ConnectionID: "conn-3", Layer: LayerDelivery},
	})

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	events := readAll(t, reader)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, want := range []string{"conn-1", "conn-2", "conn-3"} {
		if events[i].ConnectionID != want {
			t.Errorf("events[%d].ConnectionID = %q, want %q", i, events[i].ConnectionID, want)
		}
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{
			Timestamp: base, ConnectionID: "a", Direction: DirectionOut,
			Layer: LayerWire, Category: CategoryMessage,
			Message: &MessageEvent{Type: wire.TypeEmit, MessageID: 1, EventName: "orderUpdated"},
		},
		{
			Timestamp: base.Add(time.Second), ConnectionID: "a", Direction: DirectionOut,
			Layer: LayerDelivery, Category: CategoryDelivery,
			Delivery: &DeliveryEvent{Action: DeliveryAcked, EventName: "orderUpdated"},
		},
		{
			Timestamp: base.Add(2 * time.Second), ConnectionID: "b", Direction: DirectionIn,
			Layer: LayerDelivery, Category: CategoryState,
			StateChange: &StateChangeEvent{OldState: "CONNECTED", NewState: "RECONNECTING"},
		},
		{
			Timestamp: base.Add(3 * time.Second), ConnectionID: "b", Direction: DirectionOut,
			Layer: LayerDelivery, Category: CategoryDelivery,
			Delivery: &DeliveryEvent{Action: DeliveryQueued, EventName: "tableChanged"},
		},
	}
	path := createTestLogFile(t, events)

	in := DirectionIn
	wireLayer := LayerWire
	delivery := CategoryDelivery
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"none", Filter{}, 4},
		{"connection", Filter{ConnectionID: "b"}, 2},
		{"direction", Filter{Direction: &in}, 1},
		{"layer", Filter{Layer: &wireLayer}, 1},
		{"category", Filter{Category: &delivery}, 2},
		{"event name", Filter{EventName: "orderUpdated"}, 2},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"combined", Filter{Category: &delivery, EventName: "tableChanged"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader failed: %v", err)
			}
			defer reader.Close()

			if got := len(readAll(t, reader)); got != tt.want {
				t.Errorf("got %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing"+FileExtension)); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReaderPayloadDecodesAsStringMap(t *testing.T) {
	path := createTestLogFile(t, []Event{{
		Timestamp: time.Now(),
		Category:  CategoryMessage,
		Message: &MessageEvent{
			Type:      wire.TypeEmit,
			EventName: "orderUpdated",
			Payload:   map[string]any{"id": 1},
		},
	}})

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	event, err := reader.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	payload, ok := event.Message.Payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type = %T, want map[string]any", event.Message.Payload)
	}
	if payload["id"] != uint64(1) {
		t.Errorf("payload[id] = %v (%T), want 1", payload["id"], payload["id"])
	}
}
