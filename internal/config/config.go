// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/macro-maker/internal/form"
	"github.com/ashureev/macro-maker/internal/llm"
	"github.com/ashureev/macro-maker/internal/prompt"
)

// Config holds all application configuration.
type Config struct {
	Port               string
	FrontendURL        string
	AllowedOrigins     []string
	MaxRequestBodySize int64
	Upstream           UpstreamConfig
	Prompt             PromptConfig
	FormUnits          form.Mode
	ExchangeLog        ExchangeLogConfig
}

// UpstreamConfig describes the chat-completion endpoint.
type UpstreamConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration // 0 = no client timeout
}

// PromptConfig selects the prompt strategy.
type PromptConfig struct {
	Mode         prompt.Mode
	TemplatePath string
}

// ExchangeLogConfig controls NDJSON exchange logging.
type ExchangeLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	mode, err := prompt.ParseMode(getEnv("PROMPT_MODE", string(prompt.ModeTemplate)))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	units, err := form.ParseMode(getEnv("FORM_UNITS", string(form.ModeImperial)))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	queueSize := getEnvInt("EXCHANGE_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		FrontendURL:        getEnv("FRONTEND_URL", ""),
		AllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_BYTES", 1<<20)),
		Upstream: UpstreamConfig{
			APIKey:  strings.TrimSpace(os.Getenv("OPENAI_KEY")),
			BaseURL: getEnv("OPENAI_BASE_URL", llm.DefaultBaseURL),
			Model:   getEnv("OPENAI_MODEL", llm.DefaultModel),
			Timeout: getEnvDuration("UPSTREAM_TIMEOUT", 0),
		},
		Prompt: PromptConfig{
			Mode:         mode,
			TemplatePath: getEnv("PROMPT_TEMPLATE_PATH", prompt.DefaultTemplatePath),
		},
		FormUnits: units,
		ExchangeLog: ExchangeLogConfig{
			Enabled:   getEnvBool("EXCHANGE_LOG_ENABLED", false),
			Dir:       getEnv("EXCHANGE_LOG_DIR", "./data/logs/exchanges"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
// A missing OPENAI_KEY is not a startup error; requests fail until it is set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("OPENAI_BASE_URL cannot be empty")
	}
	if c.Upstream.Model == "" {
		return fmt.Errorf("OPENAI_MODEL cannot be empty")
	}
	if c.Upstream.Timeout < 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be >= 0")
	}
	if c.Prompt.Mode == prompt.ModeTemplate && c.Prompt.TemplatePath == "" {
		return fmt.Errorf("PROMPT_TEMPLATE_PATH cannot be empty in template mode")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be > 0")
	}
	if c.ExchangeLog.Enabled && c.ExchangeLog.Dir == "" {
		return fmt.Errorf("EXCHANGE_LOG_DIR cannot be empty")
	}
	return nil
}

// HasCredential reports whether the upstream API key is set.
func (c *Config) HasCredential() bool {
	return c.Upstream.APIKey != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
