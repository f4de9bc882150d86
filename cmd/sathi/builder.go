package main

import (
	"fmt"
	"os"

	"github.com/ashimregmi/sathi/internal/agent"
	"github.com/ashimregmi/sathi/internal/config"
	"github.com/ashimregmi/sathi/internal/extractor"
	"github.com/ashimregmi/sathi/internal/model"
	"github.com/ashimregmi/sathi/internal/notify"
	"github.com/ashimregmi/sathi/internal/scheduler"
	"github.com/ashimregmi/sathi/internal/session"
	"github.com/ashimregmi/sathi/internal/tool"
	"github.com/ashimregmi/sathi/internal/tool/builtin"
)

// runtime bundles everything one process needs to serve turns and fire
// reminders. Built once per command, torn down via close.
type runtime struct {
	cfg       *config.Config
	sessions  *session.Store
	registry  *tool.Registry
	notifier  *notify.Notifier
	scheduler *scheduler.Engine
	agent     *agent.Engine
}

func buildRuntime(cfg *config.Config) (*runtime, error) {
	lockRetry, err := config.DurationOrDefault(cfg.Workspace.LockRetry, config.DefaultLockRetry)
	if err != nil {
		return nil, fmt.Errorf("parse workspace lock retry: %w", err)
	}

	sessions, err := session.Open(cfg.Workspace.Path, session.FileLockConfig{
		Retry:    lockRetry,
		MaxRetry: cfg.Workspace.LockMaxRetry,
	})
	if err != nil {
		return nil, err
	}

	registry := tool.NewRegistry()
	if err := registerTools(registry, cfg); err != nil {
		sessions.Close()
		return nil, err
	}

	notifyTimeout, err := config.DurationOrDefault(cfg.Scheduler.NotifyTimeout, config.DefaultSchedulerNotifyTimeout)
	if err != nil {
		sessions.Close()
		return nil, fmt.Errorf("parse notify timeout: %w", err)
	}
	notifier := notify.New(registry, notifyTimeout)

	jobStore, err := scheduler.NewStore(session.SchedulerPath(sessions.BasePath()))
	if err != nil {
		sessions.Close()
		return nil, fmt.Errorf("open job store: %w", err)
	}

	sched, err := scheduler.NewEngine(jobStore, notifier, cfg.Scheduler)
	if err != nil {
		sessions.Close()
		return nil, err
	}

	models := cfg.Models
	if len(models.Registry) == 0 {
		models.Registry = defaultModelRegistry(models)
	}
	router, err := model.NewRouter(models)
	if err != nil {
		sessions.Close()
		return nil, err
	}

	ext := extractor.NewLLMExtractor(router, models.Classifier, models.Extractor)

	ag := agent.New(ext, sched, notifier, registry, sessions, agent.Options{
		HistoryLimit: cfg.Session.HistoryLimit,
		DefaultPhone: cfg.User.Phone,
		Completer:    router,
		ChatModel:    models.Extractor,
	})

	return &runtime{
		cfg:       cfg,
		sessions:  sessions,
		registry:  registry,
		notifier:  notifier,
		scheduler: sched,
		agent:     ag,
	}, nil
}

func (r *runtime) close() {
	r.sessions.Close()
}

// registerTools wires every capability that has credentials configured.
// Missing credentials degrade that capability, never the whole process.
func registerTools(registry *tool.Registry, cfg *config.Config) error {
	if cfg.Tools.WhatsApp.PhoneNumberID != "" && cfg.Tools.WhatsApp.AccessToken != "" {
		timeout, err := config.DurationOrDefault(cfg.Tools.WhatsApp.Timeout, config.DefaultWhatsAppTimeout)
		if err != nil {
			return fmt.Errorf("parse whatsapp timeout: %w", err)
		}
		registry.Register(builtin.NewWhatsAppTool(
			cfg.Tools.WhatsApp.BaseURL,
			cfg.Tools.WhatsApp.PhoneNumberID,
			cfg.Tools.WhatsApp.AccessToken,
			timeout,
		))
	} else {
		fmt.Fprintln(os.Stderr, "warning: WhatsApp credentials not configured, reminders cannot be delivered")
	}

	if cfg.Tools.Weather.APIKey != "" {
		timeout, err := config.DurationOrDefault(cfg.Tools.Weather.Timeout, config.DefaultWeatherTimeout)
		if err != nil {
			return fmt.Errorf("parse weather timeout: %w", err)
		}
		registry.Register(builtin.NewWeatherTool(cfg.Tools.Weather.BaseURL, cfg.Tools.Weather.APIKey, timeout))
	}

	if cfg.Tools.Moodboard.APIKey != "" {
		timeout, err := config.DurationOrDefault(cfg.Tools.Moodboard.Timeout, config.DefaultMoodboardTimeout)
		if err != nil {
			return fmt.Errorf("parse moodboard timeout: %w", err)
		}
		registry.Register(builtin.NewMoodboardTool(cfg.Tools.Moodboard.BaseURL, cfg.Tools.Moodboard.APIKey, timeout))
	}

	return nil
}

// defaultModelRegistry covers the zero-config case: both configured
// model names served by Gemini with the ambient API key.
func defaultModelRegistry(models config.ModelsConfig) []config.ModelRegistry {
	apiKey := os.Getenv("GEMINI_API_KEY")
	entries := []config.ModelRegistry{{Name: models.Classifier, Provider: "gemini", APIKey: apiKey}}
	if models.Extractor != models.Classifier {
		entries = append(entries, config.ModelRegistry{Name: models.Extractor, Provider: "gemini", APIKey: apiKey})
	}
	return entries
}
