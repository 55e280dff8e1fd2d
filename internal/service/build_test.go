package service

import (
	"testing"

	"chat-relay/internal/config"

	"github.com/stretchr/testify/require"
)

func TestNewChatRelay(t *testing.T) {
	cfg := &config.Config{Chat: config.ChatConfig{
		Provider:      config.ProviderOpenRouter,
		StatusPolicy:  config.StatusPolicyNormalize,
		FallbackReply: "fallback",
		Extractors:    config.DefaultExtractors,
	}}

	relay, err := NewChatRelay(cfg, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "OpenRouter", relay.UpstreamName())

	cfg.Chat.Extractors = []string{"choices", "nope"}
	_, err = NewChatRelay(cfg, nil, nil)
	require.Error(t, err)

	cfg.Chat.Provider = config.ProviderNone
	relay, err = NewChatRelay(cfg, nil, nil)
	require.NoError(t, err)
	require.Nil(t, relay)
}

func TestNewHelpRelay(t *testing.T) {
	cfg := &config.Config{Chatbase: config.ChatbaseConfig{
		AgentID:       "agent-1",
		StatusPolicy:  config.StatusPolicyMirror,
		FallbackReply: "No reply",
		Extractors:    config.DefaultExtractors,
	}}

	relay, err := NewHelpRelay(cfg, nil, nil)
	require.NoError(t, err)
	require.Nil(t, relay)

	cfg.Chatbase.Enabled = true
	relay, err = NewHelpRelay(cfg, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "Chatbase", relay.UpstreamName())
}
