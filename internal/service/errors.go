package service

import "fmt"

// Messages callers can match on.
const (
	MsgMissingKey   = "Server missing API key"
	MsgEmptyMessage = "Empty message"
)

// StatusClientClosedRequest is used when the caller hung up before the
// upstream answered. Nothing reads the response, it only shows up in logs
// and metrics.
const StatusClientClosedRequest = 499

// RelayError is a failed relay call, already mapped to what the caller
// should see.
type RelayError struct {
	StatusCode int
	Message    string
	Details    *string
	Err        error
}

func (e *RelayError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("relay: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("relay: %d %s: %v", e.StatusCode, e.Message, e.Err)
}

func (e *RelayError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsClientError reports whether the caller, not the server, is at fault.
func (e *RelayError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func newError(status int, message string, err error) *RelayError {
	return &RelayError{StatusCode: status, Message: message, Err: err}
}
