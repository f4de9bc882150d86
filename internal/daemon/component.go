package daemon

import (
	"context"

	"github.com/ashimregmi/sathi/internal/adapter"
)

// adapterComponent lifts a chat adapter into the component lifecycle;
// adapters have no separate init phase.
type adapterComponent struct {
	adapter.Adapter
}

func FromAdapter(a adapter.Adapter) Component {
	return adapterComponent{Adapter: a}
}

func (adapterComponent) Init(ctx context.Context) error { return nil }

// named wraps a component-shaped value that lacks a Name.
type named struct {
	name string
	init func(context.Context) error
	Lifecycle
}

// Lifecycle is the nameless subset of Component.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) error
}

// WithName builds a Component from a lifecycle value and an optional
// init function.
func WithName(name string, init func(context.Context) error, lc Lifecycle) Component {
	return named{name: name, init: init, Lifecycle: lc}
}

func (n named) Name() string { return n.name }

func (n named) Init(ctx context.Context) error {
	if n.init == nil {
		return nil
	}
	return n.init(ctx)
}
