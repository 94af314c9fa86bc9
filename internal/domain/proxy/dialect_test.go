package proxy

import "testing"

func TestDetectDialectAnthropicByType(t *testing.T) {
	t.Parallel()

	body := map[string]any{"type": "message", "content": []any{}}
	if got := DetectDialect(body); got != DialectAnthropic {
		t.Errorf("DetectDialect = %v, want DialectAnthropic", got)
	}
}

func TestDetectDialectAnthropicByToolUseContent(t *testing.T) {
	t.Parallel()

	body := map[string]any{
		"content": []any{map[string]any{"type": "tool_use", "name": "bash"}},
	}
	if got := DetectDialect(body); got != DialectAnthropic {
		t.Errorf("DetectDialect = %v, want DialectAnthropic", got)
	}
}

func TestDetectDialectOpenAI(t *testing.T) {
	t.Parallel()

	body := map[string]any{"choices": []any{map[string]any{}}}
	if got := DetectDialect(body); got != DialectOpenAI {
		t.Errorf("DetectDialect = %v, want DialectOpenAI", got)
	}
}

func TestDetectDialectGemini(t *testing.T) {
	t.Parallel()

	body := map[string]any{"candidates": []any{map[string]any{}}}
	if got := DetectDialect(body); got != DialectGemini {
		t.Errorf("DetectDialect = %v, want DialectGemini", got)
	}
}

func TestDetectDialectUnknown(t *testing.T) {
	t.Parallel()

	if got := DetectDialect(map[string]any{"foo": "bar"}); got != DialectUnknown {
		t.Errorf("DetectDialect = %v, want DialectUnknown", got)
	}
}

func TestDetectDialectPrecedenceAnthropicFirst(t *testing.T) {
	t.Parallel()

	// A body that happens to carry both a type="message" marker and a
	// choices array should still resolve to Anthropic: detection order is
	// Anthropic, then OpenAI, then Gemini (spec §4.3.3).
	body := map[string]any{"type": "message", "choices": []any{map[string]any{}}}
	if got := DetectDialect(body); got != DialectAnthropic {
		t.Errorf("DetectDialect = %v, want DialectAnthropic (checked first)", got)
	}
}

func TestShouldInspect(t *testing.T) {
	t.Parallel()

	cases := []struct {
		method, path string
		want         bool
	}{
		{"POST", "/v1/messages", true},
		{"POST", "/v1/chat/completions", true},
		{"POST", "/v1beta/models/gemini-pro:generateContent", true},
		{"GET", "/v1/messages", false},
		{"POST", "/v1/models", false},
	}
	for _, c := range cases {
		if got := ShouldInspect(c.method, c.path); got != c.want {
			t.Errorf("ShouldInspect(%q, %q) = %v, want %v", c.method, c.path, got, c.want)
		}
	}
}

func TestDialectString(t *testing.T) {
	t.Parallel()

	cases := map[Dialect]string{
		DialectAnthropic: "anthropic",
		DialectOpenAI:    "openai",
		DialectGemini:    "gemini",
		DialectUnknown:   "unknown",
	}
	for d, want := range cases {
		if got := d.String(); got != want {
			t.Errorf("Dialect(%d).String() = %q, want %q", d, got, want)
		}
	}
}
