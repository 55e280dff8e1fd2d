package model

// ChatReply is the /chat success body.
type ChatReply struct {
	Reply string `json:"reply"`
}

// HelpReply is the /help body; its status mirrors the upstream.
type HelpReply struct {
	Text string `json:"text"`
}

// ErrorResponse is returned for every failed call. Details is present,
// possibly empty, only when an upstream answered with an error.
type ErrorResponse struct {
	Error   string  `json:"error"`
	Details *string `json:"details,omitempty"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	OK bool `json:"ok"`
}
