package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
)

type fakeTool struct {
	name string
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "fake" }
func (f *fakeTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeTool{name: CapabilitySendMessage})

	got, err := r.Get(CapabilitySendMessage)
	require.NoError(t, err)
	assert.Equal(t, CapabilitySendMessage, got.Name())

	// Lookup is exact, whitespace-normalized only.
	got, err = r.Get("  send_message ")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestRegistryGetMissing(t *testing.T) {
	r := NewRegistry()

	got, err := r.Get(CapabilityGetWeather)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, sathiErrors.ErrCapabilityUnavailable)
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeTool{name: CapabilityGetWeather})
	r.Register(&fakeTool{name: CapabilitySendMessage})

	assert.Equal(t, []string{CapabilityGetWeather, CapabilitySendMessage}, r.Names())
}
