package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
	"github.com/ashimregmi/sathi/internal/extractor"
	"github.com/ashimregmi/sathi/internal/model"
	"github.com/ashimregmi/sathi/internal/notify"
	"github.com/ashimregmi/sathi/internal/scheduler"
	"github.com/ashimregmi/sathi/internal/session"
	"github.com/ashimregmi/sathi/internal/tool"
)

// Engine drives one conversation turn: classify, dispatch to the intent
// handler, persist the transcript. Turns are independent; concurrent
// turns only meet in the session store and the job store.
type Engine struct {
	extractor    extractor.Extractor
	scheduler    *scheduler.Engine
	notifier     *notify.Notifier
	tools        *tool.Registry
	sessions     *session.Store
	completer    Completer
	chatModel    string
	historyLimit int
	defaultPhone string
}

// Completer produces a free-form reply when structured extraction cannot.
// Optional; without one the affected handlers fall back to canned prompts.
type Completer interface {
	Complete(ctx context.Context, req model.Request) (string, error)
}

type Options struct {
	HistoryLimit int
	DefaultPhone string
	Completer    Completer
	ChatModel    string
}

func New(ext extractor.Extractor, sched *scheduler.Engine, notifier *notify.Notifier, tools *tool.Registry, sessions *session.Store, opts Options) *Engine {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	return &Engine{
		extractor:    ext,
		scheduler:    sched,
		notifier:     notifier,
		tools:        tools,
		sessions:     sessions,
		completer:    opts.Completer,
		chatModel:    opts.ChatModel,
		historyLimit: opts.HistoryLimit,
		defaultPhone: strings.TrimSpace(opts.DefaultPhone),
	}
}

// HandleMessage processes one inbound message and returns the reply
// text. It never returns an error; every failure class maps to a
// distinct user-visible response.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, source, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "Say something and I'll take it from there."
	}

	meta := e.sessions.Get(sessionID, source)

	if strings.HasPrefix(text, "/") {
		return e.handleCommand(ctx, &meta, text)
	}

	if err := e.sessions.Append(sessionID, session.RoleUser, text); err != nil {
		slog.Error("Failed to append user message", "session", sessionID, "error", err)
	}

	history, err := e.history(sessionID)
	if err != nil {
		slog.Error("Failed to load history", "session", sessionID, "error", err)
		history = []model.Message{{Role: model.RoleUser, Content: text}}
	}

	decision := e.classify(ctx, history)
	meta.LastIntent = decision.Intent.String()

	slog.Info("Turn classified",
		"session", sessionID,
		"intent", decision.Intent.String(),
		"confidence", decision.Confidence)

	reply := e.dispatch(ctx, &meta, history, decision.Intent)

	if err := e.sessions.Append(sessionID, session.RoleAssistant, reply); err != nil {
		slog.Error("Failed to append reply", "session", sessionID, "error", err)
	}
	if err := e.sessions.Save(meta); err != nil {
		slog.Error("Failed to save session", "session", sessionID, "error", err)
	}

	return reply
}

// classify is never fatal: a malformed model response degrades to the
// unknown intent instead of failing the turn.
func (e *Engine) classify(ctx context.Context, history []model.Message) extractor.IntentDecision {
	decision, err := e.extractor.Classify(ctx, history)
	if err != nil {
		slog.Warn("Classification failed, falling back to unknown", "error", err)
		return extractor.IntentDecision{Intent: extractor.IntentUnknown}
	}
	return decision
}

// dispatch is total over the intent set: the switch covers every label
// and everything else lands on the unknown handler.
func (e *Engine) dispatch(ctx context.Context, meta *session.Meta, history []model.Message, intent extractor.Intent) string {
	switch intent {
	case extractor.IntentReminder:
		return e.handleReminder(ctx, meta, history)
	case extractor.IntentTravel:
		return e.handleTravel(ctx, history)
	case extractor.IntentCreative:
		return e.handleCreative(ctx, history)
	case extractor.IntentUnknown:
		return e.handleUnknown()
	default:
		return e.handleUnknown()
	}
}

func (e *Engine) history(sessionID string) ([]model.Message, error) {
	entries, err := e.sessions.History(sessionID, e.historyLimit)
	if err != nil {
		return nil, err
	}

	messages := make([]model.Message, 0, len(entries))
	for _, entry := range entries {
		switch entry.Role {
		case session.RoleUser:
			messages = append(messages, model.Message{Role: model.RoleUser, Content: entry.Content})
		case session.RoleAssistant:
			messages = append(messages, model.Message{Role: model.RoleAssistant, Content: entry.Content})
		}
	}
	return messages, nil
}

// resolvePhone picks the delivery number: explicit override first, then
// the session's saved number, then the configured default. An explicit
// override sticks to the session for later turns.
func (e *Engine) resolvePhone(meta *session.Meta, override string) string {
	if p := strings.TrimSpace(override); p != "" {
		meta.Phone = p
		return p
	}
	if meta.Phone != "" {
		return meta.Phone
	}
	return e.defaultPhone
}

func describeDeliveryFailure(result notify.Result) string {
	if result.Reason == "capability unavailable" {
		return "I can't reach WhatsApp right now (messaging tool unavailable). Please try again later."
	}
	return fmt.Sprintf("I tried to send your reminder but it failed: %s. You may want to retry.", result.Reason)
}

func isCategory(err error, category error) bool {
	return sathiErrors.IsCategory(err, category)
}

func formatFireTime(t time.Time) string {
	return t.Format("Mon, 02 Jan 2006 at 15:04")
}
