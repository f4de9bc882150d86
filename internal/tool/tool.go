package tool

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
)

// Capability names consumed by the handlers.
const (
	CapabilitySendMessage    = "send_message"
	CapabilityGenerateImages = "generate_images"
	CapabilityGetWeather     = "get_weather"
)

// Tool is an executable capability reached by name.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

// Registry holds all available capabilities, keyed by normalized name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		panic("tool: empty capability name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = t
}

// Get resolves a capability by name. A missing capability is a typed
// ErrCapabilityUnavailable, never a nil tool.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[strings.TrimSpace(name)]
	if !ok {
		return nil, sathiErrors.CapabilityUnavailable("no tool registered for " + name)
	}
	return t, nil
}

// Names lists registered capability names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
