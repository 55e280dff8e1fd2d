package service

import (
	"net/http"

	"chat-relay/internal/config"
	"chat-relay/internal/extract"
	"chat-relay/internal/metrics"
	"chat-relay/internal/upstream"
	"chat-relay/pkg/logger"
)

// NewChatRelay builds the /chat relay, or nil when no chat provider is
// configured.
func NewChatRelay(cfg *config.Config, client *http.Client, rec metrics.Recorder) (*RelayService, error) {
	up, err := upstream.ForChat(cfg)
	if err != nil || up == nil {
		return nil, err
	}
	chain, err := extract.FromNames(cfg.Chat.FallbackReply, cfg.Chat.Extractors)
	if err != nil {
		return nil, err
	}
	logger.Infof("Relaying /chat to %s (model %s)", up.Settings().Name, up.Model())
	return NewRelayService(up, client, Options{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		RejectEmpty:      cfg.Chat.RejectEmpty,
		StatusPolicy:     cfg.Chat.StatusPolicy,
		Chain:            chain,
	}, rec)
}

// NewHelpRelay builds the /help relay, or nil when Chatbase is disabled.
func NewHelpRelay(cfg *config.Config, client *http.Client, rec metrics.Recorder) (*RelayService, error) {
	if !cfg.Chatbase.Enabled {
		return nil, nil
	}
	chain, err := extract.FromNames(cfg.Chatbase.FallbackReply, cfg.Chatbase.Extractors)
	if err != nil {
		return nil, err
	}
	logger.Infof("Relaying /help to Chatbase agent %s", cfg.Chatbase.AgentID)
	return NewRelayService(upstream.NewChatbase(cfg.Chatbase), client, Options{
		StatusPolicy: cfg.Chatbase.StatusPolicy,
		Chain:        chain,
	}, rec)
}
