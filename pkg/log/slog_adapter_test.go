package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/isjust11/easy-order-sub000/pkg/wire"
)

func newJSONAdapter(buf *bytes.Buffer) *SlogAdapter {
	h := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogAdapter(slog.New(h))
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}
	return rec
}

func TestSlogAdapterMessageAttrs(t *testing.T) {
	var buf bytes.Buffer
	newJSONAdapter(&buf).Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-1",
		Direction:    DirectionOut,
		Layer:        LayerWire,
		Category:     CategoryMessage,
		Message:      &MessageEvent{Type: wire.TypeEmit, MessageID: 7, EventName: "orderUpdated"},
	})

	rec := decodeLine(t, &buf)
	checks := map[string]any{
		"msg":       "delivery",
		"level":     "DEBUG",
		"conn_id":   "conn-1",
		"direction": "OUT",
		"layer":     "WIRE",
		"msg_type":  "EMIT",
		"msg_id":    float64(7),
		"event":     "orderUpdated",
	}
	for k, want := range checks {
		if rec[k] != want {
			t.Errorf("%s = %v, want %v", k, rec[k], want)
		}
	}
}

func TestSlogAdapterRejectedDeliveryIsWarn(t *testing.T) {
	var buf bytes.Buffer
	newJSONAdapter(&buf).Log(Event{
		Layer:    LayerDelivery,
		Category: CategoryDelivery,
		Delivery: &DeliveryEvent{
			Action:     DeliveryRejected,
			EventName:  "orderUpdated",
			RetryCount: 3,
			Reason:     "event orderUpdated timed out after 3 retries",
		},
	})

	rec := decodeLine(t, &buf)
	if rec["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", rec["level"])
	}
	if rec["action"] != "REJECTED" {
		t.Errorf("action = %v, want REJECTED", rec["action"])
	}
	if rec["retry"] != float64(3) {
		t.Errorf("retry = %v, want 3", rec["retry"])
	}
}

func TestSlogAdapterStateChange(t *testing.T) {
	var buf bytes.Buffer
	newJSONAdapter(&buf).Log(Event{
		Layer:    LayerDelivery,
		Category: CategoryState,
		StateChange: &StateChangeEvent{
			OldState: "CONNECTED",
			NewState: "RECONNECTING",
			Attempt:  1,
			Delay:    5 * time.Second,
		},
	})

	rec := decodeLine(t, &buf)
	if rec["new_state"] != "RECONNECTING" {
		t.Errorf("new_state = %v", rec["new_state"])
	}
	if rec["attempt"] != float64(1) {
		t.Errorf("attempt = %v, want 1", rec["attempt"])
	}
	if _, ok := rec["delay"]; !ok {
		t.Error("delay attribute missing")
	}
}

func TestSlogAdapterFilteredByLevel(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	NewSlogAdapter(slog.New(h)).Log(Event{Category: CategoryMessage, Frame: &FrameEvent{Size: 10}})

	if buf.Len() != 0 {
		t.Errorf("debug event written at info level: %q", buf.String())
	}
}
