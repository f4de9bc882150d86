package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashimregmi/sathi/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Models    ModelsConfig    `koanf:"models"`
	Adapters  AdaptersConfig  `koanf:"adapters"`
	Tools     ToolsConfig     `koanf:"tools"`
	Session   SessionConfig   `koanf:"session"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Workspace WorkspaceConfig `koanf:"workspace"`
	User      UserConfig      `koanf:"user"`
}

type ServerConfig struct {
	LogLevel        string `koanf:"log_level"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

type ModelsConfig struct {
	Classifier string          `koanf:"classifier"`
	Extractor  string          `koanf:"extractor"`
	Registry   []ModelRegistry `koanf:"registry"`
}

type ModelRegistry struct {
	Name           string `koanf:"name"`
	Provider       string `koanf:"provider"` // "gemini", "openai", "anthropic"
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	RequestTimeout string `koanf:"request_timeout"`
}

type AdaptersConfig struct {
	Telegram TelegramConfig `koanf:"telegram"`
	Slack    SlackConfig    `koanf:"slack"`
}

type TelegramConfig struct {
	Enabled       bool   `koanf:"enabled"`
	BotToken      string `koanf:"bot_token"`
	UpdateTimeout int    `koanf:"update_timeout"`
}

type SlackConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Port          int    `koanf:"port"`
	SigningSecret string `koanf:"signing_secret"`
	BotToken      string `koanf:"bot_token"`
}

type ToolsConfig struct {
	WhatsApp  WhatsAppToolConfig  `koanf:"whatsapp"`
	Weather   WeatherToolConfig   `koanf:"weather"`
	Moodboard MoodboardToolConfig `koanf:"moodboard"`
}

type WhatsAppToolConfig struct {
	BaseURL       string `koanf:"base_url"`
	PhoneNumberID string `koanf:"phone_number_id"`
	AccessToken   string `koanf:"access_token"`
	Timeout       string `koanf:"timeout"`
}

type WeatherToolConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Timeout string `koanf:"timeout"`
}

type MoodboardToolConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Timeout string `koanf:"timeout"`
}

type SessionConfig struct {
	HistoryLimit int `koanf:"history_limit"`
}

type SchedulerConfig struct {
	TickInterval         string `koanf:"tick_interval"`
	ShutdownTimeout      string `koanf:"shutdown_timeout"`
	NotifyTimeout        string `koanf:"notify_timeout"`
	InFlightPollInterval string `koanf:"in_flight_poll_interval"`
}

type WorkspaceConfig struct {
	Path         string `koanf:"path"`
	LockRetry    string `koanf:"lock_retry"`
	LockMaxRetry int    `koanf:"lock_max_retry"`
}

type UserConfig struct {
	// Phone is the default WhatsApp delivery number, international format
	// without the leading "+". Can also be set per session via /phone.
	Phone string `koanf:"phone"`
}

const (
	DefaultServerLogLevel        = "info"
	DefaultServerShutdownTimeout = "30s"

	DefaultClassifierModel       = "gemini-2.0-flash"
	DefaultExtractorModel        = "gemini-2.0-flash"
	DefaultModelRequestTimeout   = "30s"
	DefaultOpenAIBaseURL         = "https://api.openai.com/v1"
	DefaultGroqBaseURL           = "https://api.groq.com/openai/v1"
	DefaultTelegramUpdateTimeout = 60
	DefaultSlackPort             = 3000

	DefaultWhatsAppBaseURL  = "https://graph.facebook.com/v21.0"
	DefaultWhatsAppTimeout  = "10s"
	DefaultWeatherBaseURL   = "https://api.weatherapi.com/v1"
	DefaultWeatherTimeout   = "10s"
	DefaultMoodboardBaseURL = "https://fal.run/fal-ai/flux/schnell"
	DefaultMoodboardTimeout = "60s"

	DefaultSessionHistoryLimit = 20

	DefaultSchedulerTickInterval         = "15s"
	DefaultSchedulerShutdownTimeout      = "30s"
	DefaultSchedulerNotifyTimeout        = "10s"
	DefaultSchedulerInFlightPollInterval = "100ms"

	DefaultWorkspacePath = "~/.sathi/workspace"
	DefaultLockRetry     = "100ms"
	DefaultLockMaxRetry  = 300
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.log_level":                  DefaultServerLogLevel,
		"server.shutdown_timeout":           DefaultServerShutdownTimeout,
		"models.classifier":                 DefaultClassifierModel,
		"models.extractor":                  DefaultExtractorModel,
		"adapters.telegram.update_timeout":  DefaultTelegramUpdateTimeout,
		"adapters.slack.port":               DefaultSlackPort,
		"tools.whatsapp.base_url":           DefaultWhatsAppBaseURL,
		"tools.whatsapp.timeout":            DefaultWhatsAppTimeout,
		"tools.weather.base_url":            DefaultWeatherBaseURL,
		"tools.weather.timeout":             DefaultWeatherTimeout,
		"tools.moodboard.base_url":          DefaultMoodboardBaseURL,
		"tools.moodboard.timeout":           DefaultMoodboardTimeout,
		"session.history_limit":             DefaultSessionHistoryLimit,
		"scheduler.tick_interval":           DefaultSchedulerTickInterval,
		"scheduler.shutdown_timeout":        DefaultSchedulerShutdownTimeout,
		"scheduler.notify_timeout":          DefaultSchedulerNotifyTimeout,
		"scheduler.in_flight_poll_interval": DefaultSchedulerInFlightPollInterval,
		"workspace.path":                    DefaultWorkspacePath,
		"workspace.lock_retry":              DefaultLockRetry,
		"workspace.lock_max_retry":          DefaultLockMaxRetry,
	}

	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".sathi", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// Environment variables. Double underscore separates nesting levels so
	// single underscores survive in key names: SATHI_SERVER__LOG_LEVEL ->
	// server.log_level.
	k.Load(env.Provider("SATHI_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "SATHI_")), "__", ".")
	}), nil)

	// CLI flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	// Inject standard env vars when the registry leaves keys blank
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		for i, m := range cfg.Models.Registry {
			if m.Provider == "gemini" && m.APIKey == "" {
				cfg.Models.Registry[i].APIKey = key
			}
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		for i, m := range cfg.Models.Registry {
			if m.Provider == "openai" && m.APIKey == "" {
				cfg.Models.Registry[i].APIKey = key
			}
		}
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		for i, m := range cfg.Models.Registry {
			if m.Provider == "groq" && m.APIKey == "" {
				cfg.Models.Registry[i].APIKey = key
			}
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		for i, m := range cfg.Models.Registry {
			if m.Provider == "anthropic" && m.APIKey == "" {
				cfg.Models.Registry[i].APIKey = key
			}
		}
	}
	if token := os.Getenv("WHATSAPP_ACCESS_TOKEN"); token != "" && cfg.Tools.WhatsApp.AccessToken == "" {
		cfg.Tools.WhatsApp.AccessToken = token
	}
	if key := os.Getenv("WEATHERAPI_KEY"); key != "" && cfg.Tools.Weather.APIKey == "" {
		cfg.Tools.Weather.APIKey = key
	}
	if key := os.Getenv("FAL_API_KEY"); key != "" && cfg.Tools.Moodboard.APIKey == "" {
		cfg.Tools.Moodboard.APIKey = key
	}

	return &cfg, nil
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	workspacePath, err := pathutil.Expand(cfg.Workspace.Path)
	if err != nil {
		return err
	}
	if workspacePath != "" {
		cfg.Workspace.Path = workspacePath
	}

	return nil
}
