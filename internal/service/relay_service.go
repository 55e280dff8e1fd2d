package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"chat-relay/internal/config"
	"chat-relay/internal/extract"
	"chat-relay/internal/metrics"
	"chat-relay/internal/upstream"
	"chat-relay/internal/utils"
	"chat-relay/pkg/logger"
)

const (
	// maxDetails bounds the upstream body echoed back to the caller.
	maxDetails = 1000
	// maxUpstreamBody bounds how much of an upstream response is read.
	maxUpstreamBody = 4 << 20
)

// Options controls validation and response shaping for one relay.
type Options struct {
	// MaxMessageLength caps the forwarded message in characters; 0 disables
	// the cap.
	MaxMessageLength int
	// RejectEmpty answers 400 for blank messages instead of forwarding them.
	RejectEmpty bool
	// StatusPolicy is config.StatusPolicyNormalize (200 or 500) or
	// config.StatusPolicyMirror (upstream status passed through).
	StatusPolicy string
	Chain        *extract.Chain
}

// Result is a relayed reply and the status to answer with.
type Result struct {
	StatusCode int
	Reply      string
}

// RelayService forwards calls to a single upstream. It holds no mutable
// state and is safe for concurrent use.
type RelayService struct {
	upstream upstream.Upstream
	client   *http.Client
	opts     Options
	metrics  metrics.Recorder
}

func NewRelayService(u upstream.Upstream, client *http.Client, opts Options, rec metrics.Recorder) (*RelayService, error) {
	if u == nil {
		return nil, errors.New("relay: upstream must not be nil")
	}
	if opts.Chain == nil {
		return nil, errors.New("relay: extraction chain must not be nil")
	}
	if opts.StatusPolicy == "" {
		opts.StatusPolicy = config.StatusPolicyNormalize
	}
	if client == nil {
		client = utils.NewHTTPClient(0, false)
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &RelayService{
		upstream: u,
		client:   client,
		opts:     opts,
		metrics:  rec,
	}, nil
}

// UpstreamName is the display name used in errors and logs.
func (s *RelayService) UpstreamName() string {
	return s.upstream.Settings().Name
}

// Chat validates and truncates message, then relays it.
func (s *RelayService) Chat(ctx context.Context, message string) (*Result, error) {
	if err := s.checkKey(); err != nil {
		return nil, err
	}

	msg := utils.Clip(message, s.opts.MaxMessageLength)
	if s.opts.RejectEmpty && strings.TrimSpace(msg) == "" {
		return nil, newError(http.StatusBadRequest, MsgEmptyMessage, nil)
	}
	return s.forward(ctx, upstream.Input{Message: msg})
}

// Forward relays raw unchanged.
func (s *RelayService) Forward(ctx context.Context, raw []byte) (*Result, error) {
	if err := s.checkKey(); err != nil {
		return nil, err
	}
	return s.forward(ctx, upstream.Input{Raw: raw})
}

func (s *RelayService) checkKey() error {
	settings := s.upstream.Settings()
	if settings.RequireKey && settings.APIKey == "" {
		logger.Errorf("%s API key is missing", settings.Name)
		return newError(http.StatusInternalServerError, MsgMissingKey, nil)
	}
	return nil
}

func (s *RelayService) forward(ctx context.Context, in upstream.Input) (*Result, error) {
	settings := s.upstream.Settings()
	if settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.Timeout)
		defer cancel()
	}

	req, err := upstream.NewRequest(ctx, s.upstream, in)
	if err != nil {
		return nil, s.transportError(settings.Name, err)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.ObserveUpstream(settings.Name, 0, time.Since(start))
		return nil, s.transportError(settings.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	s.metrics.ObserveUpstream(settings.Name, resp.StatusCode, time.Since(start))
	if readErr != nil {
		if isTimeout(readErr) || errors.Is(readErr, context.Canceled) {
			return nil, s.transportError(settings.Name, readErr)
		}
		logger.Warnf("%s: reading response body: %v", settings.Name, readErr)
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !success {
		text := string(body)
		if readErr != nil && len(body) == 0 {
			text = "(no error body)"
		}
		logger.WithFields(logger.Fields{
			"upstream": settings.Name,
			"status":   resp.StatusCode,
			"body":     utils.Clip(text, maxDetails),
		}).Error("upstream returned an error")

		if s.opts.StatusPolicy == config.StatusPolicyNormalize {
			details := utils.Clip(text, maxDetails)
			return nil, &RelayError{
				StatusCode: http.StatusInternalServerError,
				Message:    fmt.Sprintf("%s error %d", settings.Name, resp.StatusCode),
				Details:    &details,
			}
		}
	}

	status := http.StatusOK
	if s.opts.StatusPolicy == config.StatusPolicyMirror {
		status = resp.StatusCode
	}
	return &Result{
		StatusCode: status,
		Reply:      s.opts.Chain.Extract(body),
	}, nil
}

func (s *RelayService) transportError(name string, err error) *RelayError {
	switch {
	case errors.Is(err, context.Canceled):
		logger.Infof("%s: caller went away before the upstream answered", name)
		return newError(StatusClientClosedRequest, "Client closed request", err)
	case isTimeout(err):
		logger.Errorf("%s request timed out: %v", name, err)
		return newError(http.StatusGatewayTimeout, name+" request timed out", err)
	default:
		logger.Errorf("Error talking to %s: %v", name, err)
		return newError(http.StatusInternalServerError, "Server error while talking to "+name, err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
