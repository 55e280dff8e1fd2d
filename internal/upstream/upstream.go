package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chat-relay/internal/config"

	openai "github.com/sashabaranov/go-openai"
)

// Input is what the relay hands an upstream to shape into a request body.
type Input struct {
	// Message is the validated, truncated user message (chat upstreams).
	Message string
	// Raw is the inbound body as received (passthrough upstreams).
	Raw []byte
}

// Settings is the static, per-upstream part of a request.
type Settings struct {
	Name       string
	Endpoint   string
	APIKey     string
	RequireKey bool
	Timeout    time.Duration
	Headers    map[string]string
}

// Upstream shapes requests for one third-party API.
type Upstream interface {
	Settings() Settings
	Body(in Input) ([]byte, error)
}

// NewRequest builds the outbound POST for in.
func NewRequest(ctx context.Context, u Upstream, in Input) (*http.Request, error) {
	s := u.Settings()
	body, err := u.Body(in)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", s.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", s.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	for k, v := range s.Headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return req, nil
}

// ChatCompletions targets any OpenAI-compatible /chat/completions endpoint.
type ChatCompletions struct {
	settings     Settings
	model        string
	systemPrompt string
}

func (c *ChatCompletions) Settings() Settings { return c.settings }

func (c *ChatCompletions) Model() string { return c.model }

// Body wraps the message into a system + user conversation.
func (c *ChatCompletions) Body(in Input) ([]byte, error) {
	return json.Marshal(openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: in.Message},
		},
	})
}

// NewOpenAI builds the OpenAI upstream.
func NewOpenAI(cfg config.OpenAIConfig, systemPrompt string) *ChatCompletions {
	return &ChatCompletions{
		settings: Settings{
			Name:       "OpenAI",
			Endpoint:   chatURL(cfg.BaseURL, "https://api.openai.com/v1"),
			APIKey:     cfg.APIKey,
			RequireKey: true,
			Timeout:    cfg.Timeout,
		},
		model:        cfg.Model,
		systemPrompt: systemPrompt,
	}
}

// NewOpenRouter builds the OpenRouter upstream. SiteURL and AppTitle become
// OpenRouter's attribution headers when set.
func NewOpenRouter(cfg config.OpenRouterConfig, systemPrompt string) *ChatCompletions {
	return &ChatCompletions{
		settings: Settings{
			Name:       "OpenRouter",
			Endpoint:   chatURL(cfg.BaseURL, "https://openrouter.ai/api/v1"),
			APIKey:     cfg.APIKey,
			RequireKey: true,
			Timeout:    cfg.Timeout,
			Headers: map[string]string{
				"HTTP-Referer": cfg.SiteURL,
				"X-Title":      cfg.AppTitle,
			},
		},
		model:        cfg.Model,
		systemPrompt: systemPrompt,
	}
}

// Passthrough forwards the inbound body unchanged.
type Passthrough struct {
	settings Settings
}

func (p *Passthrough) Settings() Settings { return p.settings }

func (p *Passthrough) Body(in Input) ([]byte, error) {
	if len(bytes.TrimSpace(in.Raw)) == 0 {
		return []byte("{}"), nil
	}
	return in.Raw, nil
}

// NewChatbase builds the Chatbase agent upstream. The API key is optional.
func NewChatbase(cfg config.ChatbaseConfig) *Passthrough {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://www.chatbase.co"
	}
	return &Passthrough{
		settings: Settings{
			Name:     "Chatbase",
			Endpoint: base + "/api/agent/" + url.PathEscape(cfg.AgentID) + "/message",
			APIKey:   cfg.APIKey,
			Timeout:  cfg.Timeout,
		},
	}
}

// ForChat returns the upstream selected by cfg.Chat.Provider, or nil for
// "none".
func ForChat(cfg *config.Config) (*ChatCompletions, error) {
	switch cfg.Chat.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAI, cfg.Chat.SystemPrompt), nil
	case config.ProviderOpenRouter:
		return NewOpenRouter(cfg.OpenRouter, cfg.Chat.SystemPrompt), nil
	case config.ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported chat provider: %s", cfg.Chat.Provider)
	}
}

func chatURL(baseURL, def string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = def
	}
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}
