package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ashimregmi/sathi/internal/config"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of conversation context sent to a provider.
type Message struct {
	Role    string `json:"role"` // RoleUser or RoleAssistant
	Content string `json:"content"`
}

// Request is a plain-text completion request. Structured output is asked
// for in the prompt and parsed by the caller; providers stay dumb pipes.
type Request struct {
	Model    string
	System   string
	Messages []Message
}

// Provider generates a text completion for a request.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Router resolves a configured model name to its provider.
type Router struct {
	providers map[string]Provider      // model name -> provider
	timeouts  map[string]time.Duration // model name -> request timeout
}

// NewRouter builds providers for every entry in the model registry.
func NewRouter(cfg config.ModelsConfig) (*Router, error) {
	r := &Router{
		providers: make(map[string]Provider),
		timeouts:  make(map[string]time.Duration),
	}

	for _, entry := range cfg.Registry {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("model registry entry missing name")
		}

		timeout, err := config.DurationOrDefault(entry.RequestTimeout, config.DefaultModelRequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse request timeout for model %s: %w", name, err)
		}

		var p Provider
		switch entry.Provider {
		case "gemini", "":
			p, err = NewGemini(entry.APIKey)
		case "openai":
			baseURL := entry.BaseURL
			if baseURL == "" {
				baseURL = config.DefaultOpenAIBaseURL
			}
			p = NewOpenAI(entry.APIKey, baseURL)
		case "groq":
			baseURL := entry.BaseURL
			if baseURL == "" {
				baseURL = config.DefaultGroqBaseURL
			}
			p = NewOpenAI(entry.APIKey, baseURL)
		case "anthropic":
			p = NewAnthropic(entry.APIKey)
		default:
			err = fmt.Errorf("unknown model provider %q", entry.Provider)
		}
		if err != nil {
			return nil, fmt.Errorf("build provider for model %s: %w", name, err)
		}

		r.providers[name] = p
		r.timeouts[name] = timeout
	}

	return r, nil
}

// Complete routes a request to the provider registered for req.Model,
// bounded by that model's configured request timeout.
func (r *Router) Complete(ctx context.Context, req Request) (string, error) {
	p, ok := r.providers[req.Model]
	if !ok {
		return "", fmt.Errorf("no provider registered for model %q", req.Model)
	}

	if timeout := r.timeouts[req.Model]; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return p.Complete(ctx, req)
}

// Models lists registered model names.
func (r *Router) Models() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
