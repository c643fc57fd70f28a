package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/isjust11/easy-order-sub000/pkg/log"
	"github.com/isjust11/easy-order-sub000/pkg/wire"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.elog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

// retryTrace is one emission that is acked after a single retry, followed
// by a second emission that exhausts its retries.
func retryTrace() []log.Event {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	at := func(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }
	delivery := func(ms int, action log.DeliveryAction, name string, retry int) log.Event {
		return log.Event{
			Timestamp: at(ms),
			Direction: log.DirectionOut,
			Layer:     log.LayerDelivery,
			Category:  log.CategoryDelivery,
			Delivery:  &log.DeliveryEvent{Action: action, EventName: name, EmissionID: "em-0001-aaaa", RetryCount: retry},
		}
	}
	return []log.Event{
		{
			Timestamp:    at(0),
			ConnectionID: "conn-1111-2222",
			Layer:        log.LayerDelivery,
			Category:     log.CategoryState,
			RemoteAddr:   "10.0.0.5:7000",
			StateChange:  &log.StateChangeEvent{OldState: "CONNECTING", NewState: "CONNECTED"},
		},
		{
			Timestamp:    at(1),
			ConnectionID: "conn-1111-2222",
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Message:      &log.MessageEvent{Type: wire.TypeEmit, MessageID: 1, EventName: "orderUpdated", Payload: map[string]any{"id": "42"}},
		},
		delivery(2, log.DeliverySent, "orderUpdated", 0),
		delivery(5002, log.DeliveryTimedOut, "orderUpdated", 0),
		delivery(5003, log.DeliveryRetrying, "orderUpdated", 1),
		delivery(7003, log.DeliverySent, "orderUpdated", 1),
		delivery(7010, log.DeliveryAcked, "orderUpdated", 1),
		delivery(8000, log.DeliverySent, "tableChanged", 0),
		delivery(40000, log.DeliveryRejected, "tableChanged", 3),
		{
			Timestamp: at(41000),
			Layer:     log.LayerTransport,
			Category:  log.CategoryError,
			Error:     &log.ErrorEventData{Layer: log.LayerTransport, Message: "connection reset"},
		},
	}
}

func TestRunViewAll(t *testing.T) {
	path := createTestLogFile(t, retryTrace())

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"[conn:conn-111] IN  DELIVERY State",
		"CONNECTING -> CONNECTED",
		"OUT WIRE EMIT",
		`Payload: {"id":"42"}`,
		"DELIVERY RETRYING",
		"Retry: 1",
		"DELIVERY REJECTED",
		"Message: connection reset",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRunViewFiltersByEventName(t *testing.T) {
	path := createTestLogFile(t, retryTrace())

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{EventName: "tableChanged"}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	out := buf.String()

	if strings.Contains(out, "orderUpdated") {
		t.Errorf("filtered output contains other events:\n%s", out)
	}
	if got := strings.Count(out, "Event: tableChanged"); got != 2 {
		t.Errorf("expected 2 tableChanged events, got %d", got)
	}
}

func TestRunViewFiltersByCategory(t *testing.T) {
	path := createTestLogFile(t, retryTrace())
	cat, err := ParseCategoryFlag("STATE")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Category: &cat}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if got := strings.Count(buf.String(), " State\n"); got != 1 {
		t.Errorf("expected 1 state event, got %d", got)
	}
}

func TestParseFlags(t *testing.T) {
	if _, err := ParseLayerFlag("service"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if l, err := ParseLayerFlag("Delivery"); err != nil || l != log.LayerDelivery {
		t.Errorf("ParseLayerFlag(Delivery) = %v, %v", l, err)
	}
	if d, err := ParseDirectionFlag("OUT"); err != nil || d != log.DirectionOut {
		t.Errorf("ParseDirectionFlag(OUT) = %v, %v", d, err)
	}
	if _, err := ParseCategoryFlag("snapshot"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestRunStats(t *testing.T) {
	path := createTestLogFile(t, retryTrace())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Total Events: 10",
		"DELIVERY:",
		"CONNECTED:     1",
		"orderUpdated: sent=2 acked=1 retries=1 rejected=0",
		"tableChanged: sent=1 acked=0 retries=0 rejected=1",
		"Connections: 1",
		"Remote: 10.0.0.5:7000",
		"Errors: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRunFilter(t *testing.T) {
	path := createTestLogFile(t, retryTrace())
	outPath := filepath.Join(t.TempDir(), "out", "filtered.elog")

	n, err := RunFilter(path, FilterOptions{
		Output:    outPath,
		EventName: "orderUpdated",
		Layer:     "delivery",
		TimeEnd:   "2026-03-14T12:00:06Z",
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 events, got %d", n)
	}

	reader, err := log.NewReader(outPath)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer reader.Close()
	count := 0
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		if event.Delivery == nil || event.Delivery.EventName != "orderUpdated" {
			t.Errorf("unexpected event %+v", event)
		}
		count++
	}
	if count != n {
		t.Errorf("read %d events, RunFilter reported %d", count, n)
	}
}

func TestRunFilterInvalidOptions(t *testing.T) {
	path := createTestLogFile(t, retryTrace())
	out := filepath.Join(t.TempDir(), "x.elog")

	if _, err := RunFilter(path, FilterOptions{Output: out, TimeStart: "yesterday"}); err == nil {
		t.Error("expected error for bad time-start")
	}
	if _, err := RunFilter(path, FilterOptions{Output: out, Direction: "sideways"}); err == nil {
		t.Error("expected error for bad direction")
	}
}

func TestRunExportJSONL(t *testing.T) {
	path := createTestLogFile(t, retryTrace())
	outPath := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", outPath); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var obj map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &obj); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines+1, err)
		}
		lines++
	}
	if lines != 10 {
		t.Errorf("expected 10 lines, got %d", lines)
	}
}

func TestRunExportCSV(t *testing.T) {
	path := createTestLogFile(t, retryTrace())
	outPath := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", outPath); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 11 {
		t.Fatalf("expected header plus 10 rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,connection_id") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(string(data), "REJECTED,tableChanged,,3") {
		t.Errorf("missing rejected row:\n%s", data)
	}
}

func TestRunExportUnknownFormat(t *testing.T) {
	if err := RunExport("unused.elog", "xml", ""); err == nil {
		t.Error("expected error for unknown format")
	}
}
