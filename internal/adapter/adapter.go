package adapter

import "context"

// Handler processes one inbound message and returns the reply text. The
// agent guarantees a reply for every failure class, so adapters never
// have to invent error copy.
type Handler func(ctx context.Context, sessionID, source, text string) string

// Adapter connects a chat platform to the agent.
type Adapter interface {
	Name() string

	// Start begins listening for messages (long-poll or HTTP server).
	// Must respect context cancellation.
	Start(ctx context.Context) error

	Stop(ctx context.Context) error

	Health(ctx context.Context) error
}
