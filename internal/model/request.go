package model

import "encoding/json"

// ChatRequest is the inbound /chat body.
type ChatRequest struct {
	Message string `json:"message"`
}

// UnmarshalJSON accepts any body shape: a missing or non-string message
// decodes to the empty string instead of failing.
func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		r.Message = ""
		return nil
	}
	var msg string
	if err := json.Unmarshal(raw["message"], &msg); err != nil {
		msg = ""
	}
	r.Message = msg
	return nil
}

// ParseChatRequest decodes body leniently. It never fails.
func ParseChatRequest(body []byte) ChatRequest {
	var req ChatRequest
	_ = req.UnmarshalJSON(body)
	return req
}
