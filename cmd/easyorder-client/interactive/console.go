// Package interactive provides the command console of easyorder-client.
package interactive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/tidwall/gjson"

	"github.com/isjust11/easy-order-sub000/pkg/delivery"
	"github.com/isjust11/easy-order-sub000/pkg/status"
	"github.com/isjust11/easy-order-sub000/pkg/transport"
)

// Client is the part of realtime.Client the console drives.
type Client interface {
	Connect(ctx context.Context)
	Disconnect()
	Emit(ctx context.Context, event string, payload any) *delivery.Emission
	Subscribe(event string, fn transport.EventFunc)
	Unsubscribe(event string)
	Status() status.Status
	Pending() []delivery.PendingTimeout
	Queued() []delivery.QueuedEmission
}

// Console executes commands against a Client.
type Console struct {
	client Client
	out    io.Writer
}

// NewConsole creates a Console writing to out. Output may arrive from
// background goroutines, so out must be safe for concurrent use.
func NewConsole(client Client, out io.Writer) *Console {
	return &Console{client: client, out: out}
}

// Execute runs one input line. It reports false when the console should exit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	cmd, rest := splitCommand(line)
	if cmd == "" {
		return true
	}

	switch strings.ToLower(cmd) {
	case "help", "?":
		c.printHelp()

	case "connect", "c":
		c.client.Connect(ctx)

	case "disconnect", "d":
		c.client.Disconnect()

	case "emit", "e":
		c.cmdEmit(ctx, rest)

	case "sub", "subscribe":
		c.cmdSubscribe(rest)

	case "unsub", "unsubscribe":
		c.cmdUnsubscribe(rest)

	case "status", "s":
		c.cmdStatus()

	case "pending", "p":
		c.cmdPending()

	case "queue":
		c.cmdQueue()

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return false

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
EasyOrder Client Commands:
  Connection:
    connect                - Connect to the order server
    disconnect             - Disconnect (queued emits are kept)
    status                 - Show connection status

  Events:
    emit <event> [json]    - Emit an event and report its acknowledgement
    sub <event> [path]     - Print inbound events (optionally one JSON path)
    unsub <event>          - Stop printing inbound events
    pending                - Show emits awaiting acknowledgement
    queue                  - Show emits held until the next connection

  General:
    help                   - Show this help
    quit                   - Exit client

  Examples:
    emit orderUpdated {"orderId":"o-17","status":"ready"}
    sub tableChanged table.id`)
}

func (c *Console) cmdEmit(ctx context.Context, args string) {
	event, raw := splitCommand(args)
	if event == "" {
		fmt.Fprintln(c.out, "Usage: emit <event> [json]")
		return
	}
	payload, err := ParsePayload(raw)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	em := c.client.Emit(ctx, event, payload)
	fmt.Fprintf(c.out, "emit %s (%s)\n", event, em.ID())

	go func() {
		ack, err := em.Wait(context.Background())
		if err != nil {
			fmt.Fprintf(c.out, "emit %s failed: %v\n", event, err)
			return
		}
		fmt.Fprintf(c.out, "emit %s acknowledged: %s\n", event, FormatPayload(ack, ""))
	}()
}

func (c *Console) cmdSubscribe(args string) {
	event, path := splitCommand(args)
	if event == "" {
		fmt.Fprintln(c.out, "Usage: sub <event> [path]")
		return
	}
	c.client.Subscribe(event, func(payload any) {
		fmt.Fprintf(c.out, "<- %s %s\n", event, FormatPayload(payload, path))
	})
	fmt.Fprintf(c.out, "Subscribed to %s\n", event)
}

func (c *Console) cmdUnsubscribe(args string) {
	event, _ := splitCommand(args)
	if event == "" {
		fmt.Fprintln(c.out, "Usage: unsub <event>")
		return
	}
	c.client.Unsubscribe(event)
	fmt.Fprintf(c.out, "Unsubscribed from %s\n", event)
}

func (c *Console) cmdStatus() {
	st := c.client.Status()
	fmt.Fprintf(c.out, "State:              %s\n", st.State)
	fmt.Fprintf(c.out, "Connected:          %t\n", st.Connected)
	fmt.Fprintf(c.out, "Reconnect attempts: %d\n", st.ReconnectAttempts)
	fmt.Fprintf(c.out, "Queued:             %d\n", st.Queued)
	if st.Error != "" {
		fmt.Fprintf(c.out, "Error:              %s\n", st.Error)
	}
	if len(st.Retries) > 0 {
		fmt.Fprintln(c.out, "Retrying:")
		for _, event := range slices.Sorted(maps.Keys(st.Retries)) {
			rec := st.Retries[event]
			fmt.Fprintf(c.out, "  %-20s retry %d (last %s)\n", event, rec.Count, rec.LastAttempt.Format(time.TimeOnly))
		}
	}
}

func (c *Console) cmdPending() {
	pending := c.client.Pending()
	if len(pending) == 0 {
		fmt.Fprintln(c.out, "No emits awaiting acknowledgement")
		return
	}
	for _, p := range pending {
		remaining := time.Until(p.Deadline).Round(time.Millisecond)
		fmt.Fprintf(c.out, "  %-20s %s retry=%d deadline=%s\n", p.Event, p.EmissionID, p.RetryCount, remaining)
	}
}

func (c *Console) cmdQueue() {
	queued := c.client.Queued()
	if len(queued) == 0 {
		fmt.Fprintln(c.out, "Offline queue is empty")
		return
	}
	for i, q := range queued {
		fmt.Fprintf(c.out, "  %d. %-20s %s (queued %s)\n", i+1, q.Event, FormatPayload(q.Payload, ""), q.EnqueuedAt.Format(time.TimeOnly))
	}
}

// ParsePayload decodes a JSON argument. Empty input yields a nil payload.
func ParsePayload(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("invalid JSON payload: %s", raw)
	}
	return gjson.Parse(raw).Value(), nil
}

// FormatPayload renders payload as compact JSON. A non-empty path selects one
// value with gjson path syntax.
func FormatPayload(payload any, path string) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	if path == "" {
		return string(data)
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return "<no " + path + ">"
	}
	return res.Raw
}

// splitCommand returns the first word of line and the trimmed remainder.
func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}
	head, rest, _ := strings.Cut(line, " ")
	return head, strings.TrimSpace(rest)
}

// Run reads commands from a readline prompt until quit, EOF or ctx ends.
func Run(ctx context.Context, client Client, prompt string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	console := NewConsole(client, rl.Stdout())
	console.printHelp()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(rl.Stdout(), "Exiting...")
			return nil
		}
		if !console.Execute(ctx, line) {
			return nil
		}
	}
}
