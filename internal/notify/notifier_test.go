package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
	"github.com/ashimregmi/sathi/internal/tool"
)

type fakeMessenger struct {
	output json.RawMessage
	err    error
	delay  time.Duration
	gotIn  json.RawMessage
}

func (f *fakeMessenger) Name() string        { return tool.CapabilitySendMessage }
func (f *fakeMessenger) Description() string { return "fake messenger" }

func (f *fakeMessenger) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	f.gotIn = input
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.output, f.err
}

func registryWith(t tool.Tool) *tool.Registry {
	r := tool.NewRegistry()
	r.Register(t)
	return r
}

func TestNotifierSend_Delivered(t *testing.T) {
	messenger := &fakeMessenger{output: json.RawMessage(`{"status":"sent","message_id":"wamid.1"}`)}
	n := New(registryWith(messenger), time.Second)

	res := n.Send(context.Background(), "9779812345678", "call the dentist")

	assert.True(t, res.Delivered())
	assert.Equal(t, "wamid.1", res.MessageID)
	assert.NoError(t, res.Err())

	var in sendInput
	require.NoError(t, json.Unmarshal(messenger.gotIn, &in))
	assert.Equal(t, "9779812345678", in.ToNumber)
	assert.Equal(t, "call the dentist", in.Body)
}

func TestNotifierSend_CapabilityUnavailable(t *testing.T) {
	n := New(tool.NewRegistry(), time.Second)

	res := n.Send(context.Background(), "977981", "hello")

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "capability unavailable", res.Reason)
	assert.ErrorIs(t, res.Err(), sathiErrors.ErrDelivery)
}

func TestNotifierSend_Timeout(t *testing.T) {
	messenger := &fakeMessenger{delay: 500 * time.Millisecond}
	n := New(registryWith(messenger), 20*time.Millisecond)

	res := n.Send(context.Background(), "977981", "hello")

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "timeout", res.Reason)
}

func TestNotifierSend_ProviderRejection(t *testing.T) {
	messenger := &fakeMessenger{output: json.RawMessage(`{"status":"error","error":"HTTP 401: bad token"}`)}
	n := New(registryWith(messenger), time.Second)

	res := n.Send(context.Background(), "977981", "hello")

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "HTTP 401: bad token", res.Reason)
}

func TestNotifierSend_ValidatesArguments(t *testing.T) {
	n := New(registryWith(&fakeMessenger{}), time.Second)

	assert.Equal(t, "missing recipient", n.Send(context.Background(), "", "hi").Reason)
	assert.Equal(t, "empty message body", n.Send(context.Background(), "977981", "").Reason)
}
