package utils

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"chat-relay/pkg/logger"
)

// maxLoggedBody bounds how much of an outbound body reaches the logs.
const maxLoggedBody = 1000

var sensitiveHeaders = []string{
	"Authorization",
	"X-Api-Key",
	"X-Auth-Token",
	"Cookie",
}

// LoggingTransport logs every outbound call with credentials redacted.
// Request bodies are only logged in debug mode.
type LoggingTransport struct {
	base  http.RoundTripper
	debug bool
}

func NewLoggingTransport(base http.RoundTripper, debug bool) *LoggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &LoggingTransport{base: base, debug: debug}
}

// RoundTrip implements http.RoundTripper.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	fields := logger.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	}
	if t.debug {
		fields["headers"] = RedactHeaders(req.Header)
		if body := t.peekBody(req); body != "" {
			fields["body"] = body
		}
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	fields["duration_ms"] = time.Since(start).Milliseconds()

	if err != nil {
		fields["error"] = err.Error()
		logger.WithFields(fields).Warn("upstream request failed")
		return nil, err
	}
	fields["status"] = resp.StatusCode
	logger.WithFields(fields).Debug("upstream request")
	return resp, nil
}

// peekBody reads the request body and puts an identical reader back.
func (t *LoggingTransport) peekBody(req *http.Request) string {
	if req.Body == nil || req.Body == http.NoBody {
		return ""
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return Clip(string(data), maxLoggedBody)
}

// RedactHeaders flattens h for logging with credentials replaced.
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if isSensitiveHeader(name) {
			out[name] = "[REDACTED]"
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func isSensitiveHeader(name string) bool {
	for _, s := range sensitiveHeaders {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

// Clip cuts s to at most n characters.
func Clip(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
