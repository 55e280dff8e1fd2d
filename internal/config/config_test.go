package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearEnv blanks every bound variable so the host environment can't leak
// into a test. Viper treats empty variables as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, 3000, cfg.Server.Port)
	require.Equal(t, ProviderOpenAI, cfg.Chat.Provider)
	require.Equal(t, 4000, cfg.Chat.MaxMessageLength)
	require.True(t, cfg.Chat.RejectEmpty)
	require.Equal(t, StatusPolicyNormalize, cfg.Chat.StatusPolicy)
	require.Equal(t, "Sorry, I couldn't generate a reply.", cfg.Chat.FallbackReply)
	require.Equal(t, DefaultExtractors, cfg.Chat.Extractors)
	require.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.Model)
	require.Equal(t, time.Duration(0), cfg.OpenAI.Timeout)
	require.Equal(t, 5*time.Second, cfg.Chatbase.Timeout)
	require.Equal(t, StatusPolicyMirror, cfg.Chatbase.StatusPolicy)
	require.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	require.True(t, cfg.Metrics.Enabled)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("CHAT_PROVIDER", "OpenRouter")
	t.Setenv("OPENROUTER_KEY", "or-key")
	t.Setenv("OPENROUTER_MODEL", "meta/llama")
	t.Setenv("SITE_URL", "https://example.com")
	t.Setenv("APP_TITLE", "My Bot")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8081, cfg.Server.Port)
	require.Equal(t, ProviderOpenRouter, cfg.Chat.Provider)
	require.Equal(t, "or-key", cfg.OpenRouter.APIKey)
	require.Equal(t, "meta/llama", cfg.OpenRouter.Model)
	require.Equal(t, "https://example.com", cfg.OpenRouter.SiteURL)
	require.Equal(t, "My Bot", cfg.OpenRouter.AppTitle)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: 4000
chat:
  max_message_length: 0
  reject_empty: false
  extractors: [choices]
openai:
  model: gpt-4o-mini
  timeout: 30s
`)
	t.Setenv("OPENAI_KEY", "sk-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4000, cfg.Server.Port)
	require.Equal(t, 0, cfg.Chat.MaxMessageLength)
	require.False(t, cfg.Chat.RejectEmpty)
	require.Equal(t, []string{"choices"}, cfg.Chat.Extractors)
	require.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	require.Equal(t, 30*time.Second, cfg.OpenAI.Timeout)
	require.Equal(t, "sk-env", cfg.OpenAI.APIKey)
}

func TestLoad_ChatbaseRequiresAgentID(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHATBASE_ENABLED", "true")

	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "CHATBASE_AGENT_ID")

	t.Setenv("CHATBASE_AGENT_ID", "agent-1")
	cfg, err := Load("")
	require.NoError(t, err)
	require.True(t, cfg.Chatbase.Enabled)
	require.Equal(t, "agent-1", cfg.Chatbase.AgentID)
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server: [unterminated")

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 3000},
			Chat:   ChatConfig{Provider: ProviderOpenAI, StatusPolicy: StatusPolicyNormalize},
			CORS:   CORSConfig{AllowedOrigins: []string{"*"}},
		}
	}

	require.NoError(t, base().Validate())

	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown provider", func(c *Config) { c.Chat.Provider = "anthropic" }},
		{"negative limit", func(c *Config) { c.Chat.MaxMessageLength = -1 }},
		{"unknown policy", func(c *Config) { c.Chat.StatusPolicy = "sometimes" }},
		{"nothing to relay", func(c *Config) { c.Chat.Provider = ProviderNone }},
		{"no origins", func(c *Config) { c.CORS.AllowedOrigins = nil }},
		{"chatbase without agent", func(c *Config) {
			c.Chatbase.Enabled = true
			c.Chatbase.StatusPolicy = StatusPolicyMirror
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			require.Error(t, c.Validate())
		})
	}
}

func TestWarnings(t *testing.T) {
	c := &Config{
		Chat:     ChatConfig{Provider: ProviderOpenAI},
		Chatbase: ChatbaseConfig{Enabled: true, AgentID: "a"},
	}
	warnings := c.Warnings()
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0], "OPENAI_KEY")
	require.Contains(t, warnings[1], "CHATBASE_API_KEY")

	c.OpenAI.APIKey = "sk"
	c.Chatbase.APIKey = "cb"
	require.Empty(t, c.Warnings())
}
