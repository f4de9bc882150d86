package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/ashimregmi/sathi/internal/config"
	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
)

// SlackAdapter serves the Events API over HTTP. Each message event runs
// one agent turn; the reply is posted back to the originating channel.
type SlackAdapter struct {
	signingSecret string
	port          int
	handler       Handler
	client        *slack.Client
	server        *http.Server
}

func NewSlackAdapter(cfg config.SlackConfig, handler Handler) *SlackAdapter {
	port := cfg.Port
	if port <= 0 {
		port = config.DefaultSlackPort
	}
	return &SlackAdapter{
		signingSecret: cfg.SigningSecret,
		port:          port,
		handler:       handler,
		client:        slack.New(cfg.BotToken),
	}
}

func (s *SlackAdapter) Name() string { return "slack" }

func (s *SlackAdapter) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/slack/events", func(w http.ResponseWriter, r *http.Request) {
		s.handleEvents(ctx, w, r)
	})

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	go func() {
		slog.Info("Slack adapter listening", "port", s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Slack server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.server.Shutdown(context.Background())
	}()

	return nil
}

func (s *SlackAdapter) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *SlackAdapter) Health(ctx context.Context) error {
	if s.server == nil {
		return sathiErrors.Transient("slack server not started")
	}
	if _, err := s.client.AuthTestContext(ctx); err != nil {
		return sathiErrors.Transient("slack connection failed")
	}
	return nil
}

func (s *SlackAdapter) handleEvents(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	sv, err := slack.NewSecretsVerifier(r.Header, s.signingSecret)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if _, err := sv.Write(body); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if err := sv.Ensure(); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge.Challenge))

	case slackevents.CallbackEvent:
		if ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			s.handleMessage(ctx, ev)
		}
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (s *SlackAdapter) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	// Ignore our own messages and edits.
	if ev.BotID != "" || ev.SubType != "" || strings.TrimSpace(ev.Text) == "" {
		return
	}

	sessionID := "slack:" + ev.Channel

	// Events API expects a fast ack; run the turn off the request path.
	go func() {
		reply := s.handler(ctx, sessionID, s.Name(), ev.Text)
		if reply == "" {
			return
		}
		if _, _, err := s.client.PostMessageContext(ctx, ev.Channel, slack.MsgOptionText(reply, false)); err != nil {
			slog.Error("Failed to post slack reply", "channel", ev.Channel, "error", err)
		}
	}()
}
