package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Replier modes selectable through CHATBOT_REPLIER.
const (
	ReplierGateway = "gateway"
	ReplierArk     = "ark"
)

// Config aggregates every configuration section of the service.
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Chat    ChatConfig
	Storage StorageConfig
	Monitor MonitorConfig
	Log     LogConfig
	AI      AIConfig
}

// Load reads the configuration from the environment. The backend base URL is
// resolved here, once, and never re-read by request handling code.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	addr, err := listenAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	baseURL, err := ResolveBackendURL(cfg.Backend.Host, cfg.Backend.URLOverride)
	if err != nil {
		return nil, err
	}
	cfg.Backend.BaseURL = baseURL

	if cfg.Backend.RequestTimeout < 0 {
		return nil, fmt.Errorf("invalid CHATBOT_REQUEST_TIMEOUT value %q", cfg.Backend.RequestTimeout)
	}

	if _, err := cfg.Chat.Location(); err != nil {
		return nil, err
	}

	switch cfg.Chat.Replier {
	case ReplierGateway, ReplierArk:
	default:
		return nil, fmt.Errorf("invalid CHATBOT_REPLIER value %q: want %q or %q", cfg.Chat.Replier, ReplierGateway, ReplierArk)
	}

	switch cfg.Storage.Backend {
	case StorageSQLite, StorageMemory:
	default:
		return nil, fmt.Errorf("invalid HISTORY_BACKEND value %q", cfg.Storage.Backend)
	}

	return cfg, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Addr string
}

// listenAddr accepts either a bare port or a full listen address.
func listenAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are passed through.
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// BackendConfig describes the remote conversational backend.
type BackendConfig struct {
	Host           string        `env:"CHATBOT_HOST" envDefault:"localhost"`
	URLOverride    string        `env:"CHATBOT_API_URL"`
	Environment    string        `env:"APP_ENV" envDefault:"development"`
	UserID         string        `env:"CHATBOT_USER_ID" envDefault:"web-user"`
	RequestTimeout time.Duration `env:"CHATBOT_REQUEST_TIMEOUT" envDefault:"0s"`

	// BaseURL is filled by Load from Host and URLOverride.
	BaseURL string
}

// ChatConfig describes the conversation state machine.
type ChatConfig struct {
	Timezone string `env:"CHATBOT_TIMEZONE" envDefault:"Asia/Jakarta"`
	Replier  string `env:"CHATBOT_REPLIER" envDefault:"gateway"`
}

// Location returns the zone used to render message timestamps.
func (c ChatConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid CHATBOT_TIMEZONE value %q: %w", name, err)
	}
	return loc, nil
}

// History store backends.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// StorageConfig describes where conversation history is persisted.
type StorageConfig struct {
	Backend string `env:"HISTORY_BACKEND" envDefault:"sqlite"`
	DSN     string `env:"HISTORY_DSN" envDefault:"chatbot.db"`
}

// MonitorConfig describes the periodic backend health probe.
type MonitorConfig struct {
	Enabled bool   `env:"HEALTH_PROBE_ENABLED" envDefault:"true"`
	Spec    string `env:"HEALTH_PROBE_SPEC" envDefault:"@every 30s"`
}

// LogConfig describes the zerolog setup.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"console"`
}

// AIConfig describes the Ark model used by the direct replier.
type AIConfig struct {
	APIKey      string  `env:"ARK_API_KEY"`
	AccessKey   string  `env:"ARK_ACCESS_KEY"`
	SecretKey   string  `env:"ARK_SECRET_KEY"`
	Model       string  `env:"ARK_MODEL"`
	BaseURL     string  `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region      string  `env:"ARK_REGION" envDefault:"cn-beijing"`
	Temperature float64 `env:"ARK_TEMPERATURE" envDefault:"0.3"`
	MaxTokens   int     `env:"ARK_MAX_TOKENS"`
}

// Enabled reports whether a model and credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds an Ark chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_MODEL and ARK_API_KEY or ARK_ACCESS_KEY/ARK_SECRET_KEY")
	}

	temperature := float32(c.Temperature)

	var maxTokens *int
	if c.MaxTokens > 0 {
		val := c.MaxTokens
		maxTokens = &val
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})
}
