package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderNone       = "none"

	StatusPolicyNormalize = "normalize"
	StatusPolicyMirror    = "mirror"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Chat       ChatConfig       `mapstructure:"chat"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Chatbase   ChatbaseConfig   `mapstructure:"chatbase"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Static     StaticConfig     `mapstructure:"static"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ChatConfig drives the /chat relay.
type ChatConfig struct {
	Provider         string   `mapstructure:"provider"`
	SystemPrompt     string   `mapstructure:"system_prompt"`
	MaxMessageLength int      `mapstructure:"max_message_length"`
	RejectEmpty      bool     `mapstructure:"reject_empty"`
	StatusPolicy     string   `mapstructure:"status_policy"`
	FallbackReply    string   `mapstructure:"fallback_reply"`
	Extractors       []string `mapstructure:"extractors"`
}

type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type OpenRouterConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Model    string        `mapstructure:"model"`
	SiteURL  string        `mapstructure:"site_url"`
	AppTitle string        `mapstructure:"app_title"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ChatbaseConfig drives the /help relay.
type ChatbaseConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	APIKey        string        `mapstructure:"api_key"`
	AgentID       string        `mapstructure:"agent_id"`
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	StatusPolicy  string        `mapstructure:"status_policy"`
	FallbackReply string        `mapstructure:"fallback_reply"`
	Extractors    []string      `mapstructure:"extractors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

type StaticConfig struct {
	Dir string `mapstructure:"dir"`
}

// envBindings maps config keys onto the environment names the relay has
// always been deployed with.
var envBindings = map[string]string{
	"server.port":          "PORT",
	"chat.provider":        "CHAT_PROVIDER",
	"openai.api_key":       "OPENAI_KEY",
	"openai.model":         "OPENAI_MODEL",
	"openrouter.api_key":   "OPENROUTER_KEY",
	"openrouter.model":     "OPENROUTER_MODEL",
	"openrouter.site_url":  "SITE_URL",
	"openrouter.app_title": "APP_TITLE",
	"chatbase.enabled":     "CHATBASE_ENABLED",
	"chatbase.api_key":     "CHATBASE_API_KEY",
	"chatbase.agent_id":    "CHATBASE_AGENT_ID",
	"cors.allowed_origins": "CORS_ORIGINS",
	"log.level":            "LOG_LEVEL",
	"log.format":           "LOG_FORMAT",
	"static.dir":           "STATIC_DIR",
}

// DefaultExtractors is the full reply extraction order.
var DefaultExtractors = []string{
	"choices", "text", "reply", "response", "output_text", "messages", "raw",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("chat.provider", ProviderOpenAI)
	v.SetDefault("chat.system_prompt", "You are a friendly, helpful AI.")
	v.SetDefault("chat.max_message_length", 4000)
	v.SetDefault("chat.reject_empty", true)
	v.SetDefault("chat.status_policy", StatusPolicyNormalize)
	v.SetDefault("chat.fallback_reply", "Sorry, I couldn't generate a reply.")
	v.SetDefault("chat.extractors", DefaultExtractors)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.timeout", 0)

	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "openai/gpt-4o-mini")
	v.SetDefault("openrouter.site_url", "")
	v.SetDefault("openrouter.app_title", "")
	v.SetDefault("openrouter.timeout", 0)

	v.SetDefault("chatbase.enabled", false)
	v.SetDefault("chatbase.api_key", "")
	v.SetDefault("chatbase.agent_id", "")
	v.SetDefault("chatbase.base_url", "https://www.chatbase.co")
	v.SetDefault("chatbase.timeout", 5*time.Second)
	v.SetDefault("chatbase.status_policy", StatusPolicyMirror)
	v.SetDefault("chatbase.fallback_reply", "No reply")
	v.SetDefault("chatbase.extractors", DefaultExtractors)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type"})
	v.SetDefault("cors.exposed_headers", []string{})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "chat_relay")

	v.SetDefault("static.dir", "")
}

// Load reads configPath (optional: a missing file means defaults plus
// environment) and returns a validated Config.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func (c *Config) normalize() {
	c.Chat.Provider = strings.ToLower(strings.TrimSpace(c.Chat.Provider))
	c.Chat.StatusPolicy = strings.ToLower(strings.TrimSpace(c.Chat.StatusPolicy))
	c.Chatbase.StatusPolicy = strings.ToLower(strings.TrimSpace(c.Chatbase.StatusPolicy))
	c.Chatbase.AgentID = strings.TrimSpace(c.Chatbase.AgentID)
	c.CORS.AllowedOrigins = splitList(c.CORS.AllowedOrigins)
}

// splitList flattens comma separated entries so CORS_ORIGINS="a,b" and a
// YAML list behave the same.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate reports configuration the process must not start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	switch c.Chat.Provider {
	case ProviderOpenAI, ProviderOpenRouter, ProviderNone:
	default:
		return fmt.Errorf("unknown chat provider %q", c.Chat.Provider)
	}
	if c.Chat.MaxMessageLength < 0 {
		return errors.New("chat.max_message_length must not be negative")
	}
	if err := validatePolicy("chat", c.Chat.StatusPolicy); err != nil {
		return err
	}

	if c.Chatbase.Enabled {
		if c.Chatbase.AgentID == "" {
			return errors.New("CHATBASE_AGENT_ID is required when chatbase is enabled")
		}
		if err := validatePolicy("chatbase", c.Chatbase.StatusPolicy); err != nil {
			return err
		}
	}

	if c.Chat.Provider == ProviderNone && !c.Chatbase.Enabled {
		return errors.New("nothing to relay: chat provider is none and chatbase is disabled")
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		return errors.New("cors.allowed_origins must not be empty")
	}
	return nil
}

func validatePolicy(section, policy string) error {
	switch policy {
	case StatusPolicyNormalize, StatusPolicyMirror:
		return nil
	default:
		return fmt.Errorf("%s.status_policy: unknown policy %q", section, policy)
	}
}

// Warnings lists non-fatal problems worth logging at startup. Credentials
// are optional here; the relay answers 500 per request instead.
func (c *Config) Warnings() []string {
	var out []string
	switch c.Chat.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			out = append(out, "OPENAI_KEY is missing; /chat will answer 500")
		}
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			out = append(out, "OPENROUTER_KEY is missing; /chat will answer 500")
		}
	}
	if c.Chatbase.Enabled && c.Chatbase.APIKey == "" {
		out = append(out, "CHATBASE_API_KEY is missing; /help requests go out unauthenticated")
	}
	if c.Static.Dir != "" {
		if _, err := os.Stat(c.Static.Dir); err != nil {
			out = append(out, fmt.Sprintf("static dir %s is not readable: %v", c.Static.Dir, err))
		}
	}
	return out
}
