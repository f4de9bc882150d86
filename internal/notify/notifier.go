package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
	"github.com/ashimregmi/sathi/internal/tool"
)

const defaultSendTimeout = 10 * time.Second

// Status is the terminal outcome of one delivery attempt.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Result is the uniform delivery contract. A failed result always carries a
// human-readable reason; it never panics or escapes as an unhandled error.
type Result struct {
	Status    Status
	MessageID string
	Reason    string
}

func (r Result) Delivered() bool { return r.Status == StatusDelivered }

// Err maps a failed result onto the error taxonomy. Delivered results
// return nil.
func (r Result) Err() error {
	if r.Delivered() {
		return nil
	}
	return sathiErrors.Delivery(r.Reason)
}

func failed(reason string) Result {
	return Result{Status: StatusFailed, Reason: reason}
}

type sendInput struct {
	ToNumber string `json:"to_number"`
	Body     string `json:"body"`
}

type sendOutput struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// Notifier wraps the send_message capability behind a bounded, normalized
// delivery call. Every failure mode ends up as a failed Result.
type Notifier struct {
	tools   *tool.Registry
	timeout time.Duration
}

func New(tools *tool.Registry, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Notifier{tools: tools, timeout: timeout}
}

// Send delivers body to recipient through the messaging capability.
func (n *Notifier) Send(ctx context.Context, recipient, body string) Result {
	if recipient == "" {
		return failed("missing recipient")
	}
	if body == "" {
		return failed("empty message body")
	}

	messenger, err := n.tools.Get(tool.CapabilitySendMessage)
	if err != nil {
		slog.Warn("Messaging capability unavailable", "error", err)
		return failed("capability unavailable")
	}

	input, err := json.Marshal(sendInput{ToNumber: recipient, Body: body})
	if err != nil {
		return failed("encode send input: " + err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	raw, err := messenger.Execute(ctx, input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("Delivery timed out", "recipient", recipient, "timeout", n.timeout)
			return failed("timeout")
		}
		slog.Warn("Delivery transport error", "recipient", recipient, "error", err)
		return failed(err.Error())
	}

	var out sendOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return failed("malformed delivery result: " + err.Error())
	}
	if out.Status != "sent" {
		reason := out.Error
		if reason == "" {
			reason = "provider rejected message"
		}
		return failed(reason)
	}

	slog.Debug("Message delivered", "recipient", recipient, "message_id", out.MessageID)
	return Result{Status: StatusDelivered, MessageID: out.MessageID}
}
