package utils

import (
	"crypto/tls"
	"net/http"
	"time"
)

// NewHTTPClient returns the shared outbound client. Per-call deadlines are
// applied through the request context, so timeout is only a ceiling and
// may be zero.
func NewHTTPClient(timeout time.Duration, debug bool) *http.Client {
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: NewLoggingTransport(base, debug),
	}
}
