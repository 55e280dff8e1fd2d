// Package extract pulls a human readable reply out of an upstream response
// body whose shape is not known in advance.
//
// A Chain runs its extractors in order; the first one that yields a
// non-empty string wins, otherwise the chain's fallback is returned. Extract
// never fails: malformed or empty bodies simply fall through to the
// fallback.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Body is an upstream response as seen by an extractor.
type Body struct {
	// Parsed is the decoded JSON object, or an empty map when the body is
	// not a JSON object.
	Parsed map[string]any
	// Raw is the response body exactly as received.
	Raw []byte
}

// Extractor tries to pull a reply out of b. ok is false when the shape it
// understands is absent.
type Extractor func(b Body) (reply string, ok bool)

// registry maps configuration names onto extractors.
var registry = map[string]Extractor{
	"choices":     Choices,
	"text":        Field("text"),
	"reply":       Field("reply"),
	"response":    Field("response"),
	"output_text": Path("output", "text"),
	"messages":    FirstMessage,
	"raw":         Raw,
}

// Chain is an ordered list of extractors with a literal fallback.
type Chain struct {
	extractors []Extractor
	fallback   string
}

// New builds a chain from extractors, tried in order.
func New(fallback string, extractors ...Extractor) *Chain {
	return &Chain{extractors: extractors, fallback: fallback}
}

// FromNames builds a chain from registered extractor names. Unknown names
// are a configuration error.
func FromNames(fallback string, names []string) (*Chain, error) {
	extractors := make([]Extractor, 0, len(names))
	for _, name := range names {
		ex, ok := registry[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("extract: unknown extractor %q", name)
		}
		extractors = append(extractors, ex)
	}
	return New(fallback, extractors...), nil
}

// Fallback returns the literal used when nothing matched.
func (c *Chain) Fallback() string {
	return c.fallback
}

// Extract decodes raw and runs the chain over it.
func (c *Chain) Extract(raw []byte) string {
	b := Body{Parsed: parseObject(raw), Raw: raw}
	for _, ex := range c.extractors {
		if reply, ok := ex(b); ok {
			return reply
		}
	}
	return c.fallback
}

func parseObject(raw []byte) map[string]any {
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed == nil {
		return map[string]any{}
	}
	return parsed
}

// Choices reads choices[0].message.content from an OpenAI-compatible
// completion, trimmed. Only that path is looked at, so odd types elsewhere
// in the body don't matter.
func Choices(b Body) (string, bool) {
	choices, ok := b.Parsed["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	msg, ok := first["message"].(map[string]any)
	if !ok {
		return "", false
	}
	content, ok := msg["content"].(string)
	if !ok {
		return "", false
	}
	content = strings.TrimSpace(content)
	return content, content != ""
}

// Field reads a top-level string field.
func Field(name string) Extractor {
	return Path(name)
}

// Path walks nested objects and reads the string at the end.
func Path(keys ...string) Extractor {
	return func(b Body) (string, bool) {
		var cur any = b.Parsed
		for _, key := range keys {
			obj, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			if cur, ok = obj[key]; !ok {
				return "", false
			}
		}
		s, ok := cur.(string)
		if !ok {
			return "", false
		}
		return nonEmpty(s)
	}
}

// FirstMessage reads messages[0].content.
func FirstMessage(b Body) (string, bool) {
	msgs, ok := b.Parsed["messages"].([]any)
	if !ok || len(msgs) == 0 {
		return "", false
	}
	first, ok := msgs[0].(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := first["content"].(string)
	if !ok {
		return "", false
	}
	return nonEmpty(s)
}

// Raw returns the body text itself.
func Raw(b Body) (string, bool) {
	return nonEmpty(string(b.Raw))
}

// nonEmpty skips blank values but hands the rest back untouched.
func nonEmpty(s string) (string, bool) {
	return s, strings.TrimSpace(s) != ""
}
