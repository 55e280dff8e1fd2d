package handler

import (
	"errors"
	"net/http"

	"chat-relay/internal/metrics"
	"chat-relay/internal/model"
	"chat-relay/internal/service"
	"chat-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

// maxBodyBytes bounds inbound bodies; messages are capped far below this.
const maxBodyBytes = 1 << 20

const (
	routeChat = "chat"
	routeHelp = "help"
)

// ChatHandler serves /chat and /help. Either relay may be nil when that
// route is disabled.
type ChatHandler struct {
	chat    *service.RelayService
	help    *service.RelayService
	metrics metrics.Recorder
}

func NewChatHandler(chat, help *service.RelayService, rec metrics.Recorder) *ChatHandler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &ChatHandler{
		chat:    chat,
		help:    help,
		metrics: rec,
	}
}

// Chat relays {message} to the configured completion upstream and answers
// {reply}.
func (h *ChatHandler) Chat(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		h.metrics.ObserveRequest(routeChat, metrics.OutcomeClientError)
		return
	}
	req := model.ParseChatRequest(raw)

	res, err := h.chat.Chat(c.Request.Context(), req.Message)
	if err != nil {
		h.fail(c, routeChat, err)
		return
	}

	h.metrics.ObserveRequest(routeChat, metrics.OutcomeOK)
	c.JSON(res.StatusCode, model.ChatReply{Reply: res.Reply})
}

// Help forwards the body verbatim to the agent upstream and answers
// {text} with the upstream's status.
func (h *ChatHandler) Help(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		h.metrics.ObserveRequest(routeHelp, metrics.OutcomeClientError)
		return
	}

	res, err := h.help.Forward(c.Request.Context(), raw)
	if err != nil {
		h.fail(c, routeHelp, err)
		return
	}

	outcome := metrics.OutcomeOK
	if res.StatusCode >= 400 {
		outcome = metrics.OutcomeUpstreamError
	}
	h.metrics.ObserveRequest(routeHelp, outcome)
	c.JSON(res.StatusCode, model.HelpReply{Text: res.Reply})
}

func readBody(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	raw, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{Error: "Request body too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request body"})
		return nil, false
	}
	return raw, true
}

func (h *ChatHandler) fail(c *gin.Context, route string, err error) {
	var relayErr *service.RelayError
	if !errors.As(err, &relayErr) {
		logger.Errorf("Error in /%s route: %v", route, err)
		h.metrics.ObserveRequest(route, metrics.OutcomeUpstreamError)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Internal server error"})
		return
	}

	h.metrics.ObserveRequest(route, outcomeOf(relayErr))
	if relayErr.IsClientError() {
		logger.Debugf("/%s rejected: %s", route, relayErr.Message)
	}
	c.JSON(relayErr.StatusCode, model.ErrorResponse{
		Error:   relayErr.Message,
		Details: relayErr.Details,
	})
}

func outcomeOf(err *service.RelayError) string {
	switch {
	case err.Message == service.MsgMissingKey:
		return metrics.OutcomeConfigError
	case err.StatusCode == http.StatusGatewayTimeout:
		return metrics.OutcomeTimeout
	case err.IsClientError():
		return metrics.OutcomeClientError
	default:
		return metrics.OutcomeUpstreamError
	}
}
