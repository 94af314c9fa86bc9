// Package proxy implements the dialect-aware response inspection described
// in spec §4.3: detecting which of the three LLM response dialects
// (Anthropic messages, OpenAI chat-completions, Google Gemini
// generateContent) a response body belongs to, and rewriting tool-use
// fragments in place for both unary JSON bodies and live SSE streams.
package proxy

import "strings"

// Dialect identifies the LLM provider response shape a body was detected
// to be (spec §4.3.3).
type Dialect int

const (
	DialectUnknown Dialect = iota
	DialectAnthropic
	DialectOpenAI
	DialectGemini
)

func (d Dialect) String() string {
	switch d {
	case DialectAnthropic:
		return "anthropic"
	case DialectOpenAI:
		return "openai"
	case DialectGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// DetectDialect applies the structural fingerprint of spec §4.3.3, in
// order: Anthropic, then OpenAI, then Gemini, else Unknown.
func DetectDialect(body map[string]any) Dialect {
	if isAnthropic(body) {
		return DialectAnthropic
	}
	if isOpenAI(body) {
		return DialectOpenAI
	}
	if isGemini(body) {
		return DialectGemini
	}
	return DialectUnknown
}

// isAnthropic: object has type="message" OR has a content array containing
// an object of type="tool_use".
func isAnthropic(body map[string]any) bool {
	if t, ok := body["type"].(string); ok && t == "message" {
		return true
	}
	content, ok := body["content"].([]any)
	if !ok {
		return false
	}
	for _, item := range content {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if t, ok := m["type"].(string); ok && t == "tool_use" {
			return true
		}
	}
	return false
}

// isOpenAI: object has a choices array.
func isOpenAI(body map[string]any) bool {
	_, ok := body["choices"].([]any)
	return ok
}

// isGemini: object has a candidates array.
func isGemini(body map[string]any) bool {
	_, ok := body["candidates"].([]any)
	return ok
}

// ShouldInspect reports whether the given method and path trigger response
// inspection, per spec §4.3.2.
func ShouldInspect(method, path string) bool {
	if method != "POST" {
		return false
	}
	return containsAny(path, "/v1/messages", "/v1/chat/completions", "generateContent")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
