package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseChatRequest(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"string message", `{"message":"hi"}`, "hi"},
		{"missing message", `{}`, ""},
		{"numeric message", `{"message":42}`, ""},
		{"null message", `{"message":null}`, ""},
		{"object message", `{"message":{"text":"hi"}}`, ""},
		{"invalid json", `{"message":`, ""},
		{"empty body", ``, ""},
		{"array body", `["hi"]`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ParseChatRequest([]byte(tc.body)).Message)
		})
	}
}

func TestChatRequest_UnmarshalNeverFails(t *testing.T) {
	var req ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{"message":true}`), &req))
	require.Equal(t, "", req.Message)
}

func TestErrorResponse_OmitsEmptyDetails(t *testing.T) {
	raw, err := json.Marshal(ErrorResponse{Error: "Empty message"})
	require.NoError(t, err)
	require.JSONEq(t, `{"error":"Empty message"}`, string(raw))
}
