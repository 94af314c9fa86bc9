package proxy

import (
	"encoding/json"
	"strings"
	"testing"
)

// sseData wraps a value as a single "data: <json>\n\n" SSE block, avoiding
// handwritten JSON escaping mistakes in the OpenAI delta-accumulation tests.
func sseData(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return "data: " + string(b) + "\n\n"
}

func feedAll(t *testing.T, si *StreamInterceptor, chunks ...string) []byte {
	t.Helper()
	var out []byte
	for _, c := range chunks {
		out = append(out, si.Feed([]byte(c))...)
	}
	return out
}

func TestStreamInterceptorAnthropicMonitorPassesThroughUnblocked(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, blockBashYAML)
	si := NewStreamInterceptor(ModeMonitor, engine)

	out := feedAll(t, si,
		"event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"tool_use\",\"name\":\"exec\"}}\n\n",
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"partial_json\":\"{\\\"command\\\":\\\"ls\\\"}\"}}\n\n",
		"event: content_block_stop\ndata: {\"type\":\"content_block_stop\",\"index\":0}\n\n",
	)

	if len(si.Hits) != 0 {
		t.Errorf("Hits = %v, want none for a non-matching command", si.Hits)
	}
	if !strings.Contains(string(out), "content_block_start") {
		t.Error("expected the original framing to be replayed once the buffer is flushed")
	}
}

func TestStreamInterceptorAnthropicEnforceRewritesBlockedToolUse(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, blockBashYAML)
	si := NewStreamInterceptor(ModeEnforce, engine)

	out1 := si.Feed([]byte("event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"tool_use\",\"name\":\"exec\"}}\n\n"))
	if out1 != nil {
		t.Errorf("expected nothing emitted while buffering, got %q", out1)
	}

	out2 := si.Feed([]byte("event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"partial_json\":\"{\\\"command\\\":\\\"rm -rf /tmp\\\"}\"}}\n\n"))
	if out2 != nil {
		t.Errorf("expected nothing emitted while buffering, got %q", out2)
	}

	out3 := si.Feed([]byte("event: content_block_stop\ndata: {\"type\":\"content_block_stop\",\"index\":0}\n\n"))
	if len(si.Hits) != 1 {
		t.Fatalf("Hits = %d, want 1", len(si.Hits))
	}
	if !strings.Contains(string(out3), "blocked this action") {
		t.Errorf("finalized output = %q, expected a block message", out3)
	}
}

func TestStreamInterceptorOpenAIBuffersAndFinalizesOnToolCallsFinish(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, blockBashYAML)
	si := NewStreamInterceptor(ModeEnforce, engine)

	chunk1 := map[string]any{
		"choices": []any{map[string]any{
			"index": 0,
			"delta": map[string]any{
				"tool_calls": []any{map[string]any{
					"index":    0,
					"function": map[string]any{"name": "exec", "arguments": `{"command":`},
				}},
			},
		}},
	}
	out1 := si.Feed([]byte(sseData(chunk1)))
	if out1 != nil {
		t.Errorf("expected buffering to suppress output while tool_calls accumulate, got %q", out1)
	}

	chunk2 := map[string]any{
		"choices": []any{map[string]any{
			"index": 0,
			"delta": map[string]any{
				"tool_calls": []any{map[string]any{
					"index":    0,
					"function": map[string]any{"arguments": `"rm -rf /tmp"}`},
				}},
			},
			"finish_reason": "tool_calls",
		}},
	}
	out2 := si.Feed([]byte(sseData(chunk2)))
	if len(si.Hits) != 1 {
		t.Fatalf("Hits = %d, want 1", len(si.Hits))
	}
	if !strings.Contains(string(out2), "blocked this action") {
		t.Errorf("finalized output = %q, expected a block message", out2)
	}
	if !strings.Contains(string(out2), "[DONE]") {
		t.Errorf("finalized output = %q, expected a synthesized [DONE]", out2)
	}
}

func TestStreamInterceptorCloseDiscardsBufferedState(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, blockBashYAML)
	si := NewStreamInterceptor(ModeEnforce, engine)

	si.Feed([]byte("event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"tool_use\",\"name\":\"exec\"}}\n\n"))
	if out := si.Close(); out != nil {
		t.Errorf("Close() = %q, want nil (buffered content must be discarded, not flushed)", out)
	}
	if si.antBuffering {
		t.Error("Close should reset antBuffering")
	}
}

func TestStreamInterceptorGeminiRewritesWithoutBuffering(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, blockBashYAML)
	si := NewStreamInterceptor(ModeEnforce, engine)

	out := si.Feed([]byte("data: {\"candidates\":[{\"content\":{\"parts\":[{\"functionCall\":{\"name\":\"exec\",\"args\":{\"command\":\"rm -rf /tmp\"}}}]}}]}\n\n"))
	if len(si.Hits) != 1 {
		t.Fatalf("Hits = %d, want 1", len(si.Hits))
	}
	if !strings.Contains(string(out), "blocked this action") {
		t.Errorf("output = %q, expected a block message", out)
	}
}
