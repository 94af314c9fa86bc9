package proxy

import (
	"encoding/json"
	"strings"

	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/rules"
)

// StreamInterceptor is the per-connection SSE state machine of spec
// §4.3.5. It is single-threaded by construction: Feed is called
// sequentially by the owning connection goroutine, never concurrently
// (spec §5 "concurrency within one upstream response is forbidden").
type StreamInterceptor struct {
	mode   Mode
	engine *rules.Engine

	lineBuf sseLineBuffer
	dialect Dialect

	// Anthropic state: Idle (antBuffering == false) or BufferingToolUse.
	antBuffering bool
	antIndex     float64
	antName      string
	antParts     []string
	antBuffered  []rawBlock

	// OpenAI state: Idle (oaiBuffering == false) or BufferingToolCalls.
	oaiBuffering   bool
	oaiAccum       map[int]*openAIAccum
	oaiBuffered    []rawBlock
	oaiDoneEmitted bool

	Hits []rules.HitRecord
}

type openAIAccum struct {
	name string
	args strings.Builder
}

// NewStreamInterceptor creates an interceptor for one upstream response.
func NewStreamInterceptor(mode Mode, engine *rules.Engine) *StreamInterceptor {
	return &StreamInterceptor{
		mode:     mode,
		engine:   engine,
		oaiAccum: make(map[int]*openAIAccum),
	}
}

// Feed consumes upstream bytes and returns the bytes to emit to the client.
func (s *StreamInterceptor) Feed(chunk []byte) []byte {
	blocks := s.lineBuf.Feed(chunk)
	var out []byte
	for _, blk := range blocks {
		out = append(out, s.processBlock(blk)...)
	}
	return out
}

// Close signals upstream stream end or error. Per spec §4.3.5 connection
// lifecycle, any still-buffered (unresolved) tool-use content is
// discarded rather than flushed, since a buffered tool call is exactly
// the thing that must never reach the client as a partial fragment; no
// completion events are synthesized here.
func (s *StreamInterceptor) Close() []byte {
	s.antBuffering = false
	s.antBuffered = nil
	s.oaiBuffering = false
	s.oaiBuffered = nil
	s.oaiAccum = make(map[int]*openAIAccum)
	return nil
}

func (s *StreamInterceptor) processBlock(blk rawBlock) []byte {
	if s.dialect == DialectUnknown {
		s.latchDialect(blk.event)
	}

	switch s.dialect {
	case DialectAnthropic:
		return s.processAnthropic(blk)
	case DialectOpenAI:
		return s.processOpenAI(blk)
	case DialectGemini:
		return s.processGemini(blk)
	default:
		return blk.raw
	}
}

// latchDialect fixes the dialect on the first discriminating event (spec
// §4.3.5 "Dialect latching").
func (s *StreamInterceptor) latchDialect(e sseEvent) {
	if e.Name == "message_start" || strings.HasPrefix(e.Name, "content_block") {
		s.dialect = DialectAnthropic
		return
	}
	if e.Data == "[DONE]" {
		s.dialect = DialectOpenAI
		return
	}
	var probe map[string]any
	if err := json.Unmarshal([]byte(e.Data), &probe); err != nil {
		return
	}
	if _, ok := probe["choices"]; ok {
		s.dialect = DialectOpenAI
		return
	}
	if _, ok := probe["candidates"]; ok {
		s.dialect = DialectGemini
	}
}

// --- Anthropic state machine ---

func (s *StreamInterceptor) processAnthropic(blk rawBlock) []byte {
	e := blk.event

	if !s.antBuffering {
		if e.Name == "content_block_start" {
			var data map[string]any
			if err := json.Unmarshal([]byte(e.Data), &data); err == nil {
				if cb, ok := data["content_block"].(map[string]any); ok {
					if t, _ := cb["type"].(string); t == "tool_use" {
						s.antBuffering = true
						s.antIndex, _ = data["index"].(float64)
						s.antName, _ = cb["name"].(string)
						s.antParts = nil
						s.antBuffered = []rawBlock{blk}
						return nil
					}
				}
			}
		}
		return blk.raw
	}

	// Buffering a tool_use block.
	switch e.Name {
	case "content_block_delta":
		var data map[string]any
		if err := json.Unmarshal([]byte(e.Data), &data); err == nil {
			if delta, ok := data["delta"].(map[string]any); ok {
				if pj, ok := delta["partial_json"].(string); ok {
					s.antParts = append(s.antParts, pj)
					s.antBuffered = append(s.antBuffered, blk)
					return nil
				}
			}
		}
		// Non-matching delta while buffering: protocol violation.
		out := s.flushAnthropicBuffer()
		return append(out, blk.raw...)

	case "content_block_stop":
		return s.finalizeAnthropic(blk)

	default:
		// Protocol violation: flush buffer, pass this event through, reset.
		out := s.flushAnthropicBuffer()
		return append(out, blk.raw...)
	}
}

func (s *StreamInterceptor) flushAnthropicBuffer() []byte {
	var out []byte
	for _, b := range s.antBuffered {
		out = append(out, b.raw...)
	}
	s.antBuffering = false
	s.antBuffered = nil
	s.antParts = nil
	return out
}

func (s *StreamInterceptor) finalizeAnthropic(stopBlk rawBlock) []byte {
	s.antBuffered = append(s.antBuffered, stopBlk)

	joined := strings.Join(s.antParts, "")
	var args map[string]any
	if err := json.Unmarshal([]byte(joined), &args); err != nil {
		args = map[string]any{}
	}

	verdict, hit, matched := evaluateSite("stream.anthropic", s.antName, args, s.engine)
	if matched {
		s.Hits = append(s.Hits, hit)
	}

	if matched && s.mode == ModeEnforce && verdict.Blocked() {
		msg := BlockMessage(s.antName, verdict.Explanation, hit.RuleName)
		idx := s.antIndex
		start := sseEvent{Name: "content_block_start", Data: mustJSON(map[string]any{
			"type": "content_block_start", "index": idx,
			"content_block": map[string]any{"type": "text", "text": ""},
		})}
		delta := sseEvent{Name: "content_block_delta", Data: mustJSON(map[string]any{
			"type": "content_block_delta", "index": idx,
			"delta": map[string]any{"type": "text_delta", "text": msg},
		})}
		stop := sseEvent{Name: "content_block_stop", Data: mustJSON(map[string]any{
			"type": "content_block_stop", "index": idx,
		})}

		s.antBuffering = false
		s.antBuffered = nil
		s.antParts = nil
		var out []byte
		out = append(out, start.Serialize()...)
		out = append(out, delta.Serialize()...)
		out = append(out, stop.Serialize()...)
		return out
	}

	return s.flushAnthropicBuffer()
}

// --- OpenAI state machine ---

func (s *StreamInterceptor) processOpenAI(blk rawBlock) []byte {
	if blk.event.Data == "[DONE]" {
		if s.oaiDoneEmitted {
			s.oaiDoneEmitted = false
			return nil
		}
		return blk.raw
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(blk.event.Data), &data); err != nil {
		if s.oaiBuffering {
			s.oaiBuffered = append(s.oaiBuffered, blk)
			return nil
		}
		return blk.raw
	}

	choices, _ := data["choices"].([]any)
	if len(choices) == 0 {
		if s.oaiBuffering {
			s.oaiBuffered = append(s.oaiBuffered, blk)
			return nil
		}
		return blk.raw
	}
	choice, _ := choices[0].(map[string]any)
	delta, _ := choice["delta"].(map[string]any)
	finishReason, _ := choice["finish_reason"].(string)

	if toolCalls, ok := delta["tool_calls"].([]any); ok && len(toolCalls) > 0 {
		s.oaiBuffering = true
		s.oaiBuffered = append(s.oaiBuffered, blk)
		s.accumulateOpenAIToolCalls(toolCalls)
		if finishReason == "tool_calls" {
			return s.finalizeOpenAI()
		}
		return nil
	}

	if s.oaiBuffering {
		s.oaiBuffered = append(s.oaiBuffered, blk)
		if finishReason == "tool_calls" {
			return s.finalizeOpenAI()
		}
		return nil
	}

	return blk.raw
}

func (s *StreamInterceptor) accumulateOpenAIToolCalls(toolCalls []any) {
	for _, tcAny := range toolCalls {
		tc, ok := tcAny.(map[string]any)
		if !ok {
			continue
		}
		idx := 0
		if f, ok := tc["index"].(float64); ok {
			idx = int(f)
		}
		acc, ok := s.oaiAccum[idx]
		if !ok {
			acc = &openAIAccum{}
			s.oaiAccum[idx] = acc
		}
		if fn, ok := tc["function"].(map[string]any); ok {
			if name, ok := fn["name"].(string); ok && name != "" {
				acc.name = name
			}
			if frag, ok := fn["arguments"].(string); ok {
				acc.args.WriteString(frag)
			}
		}
	}
}

func (s *StreamInterceptor) finalizeOpenAI() []byte {
	var blockedAny bool
	var messages []string

	for _, acc := range s.oaiAccum {
		var args map[string]any
		if err := json.Unmarshal([]byte(acc.args.String()), &args); err != nil {
			args = map[string]any{}
		}
		verdict, hit, matched := evaluateSite("stream.openai", acc.name, args, s.engine)
		if !matched {
			continue
		}
		s.Hits = append(s.Hits, hit)
		if s.mode == ModeEnforce && verdict.Blocked() {
			blockedAny = true
			messages = append(messages, BlockMessage(acc.name, verdict.Explanation, hit.RuleName))
		}
	}

	s.oaiBuffering = false
	buffered := s.oaiBuffered
	s.oaiBuffered = nil
	s.oaiAccum = make(map[int]*openAIAccum)

	if !blockedAny {
		var out []byte
		for _, b := range buffered {
			out = append(out, b.raw...)
		}
		return out
	}

	joined := strings.Join(messages, "\n")
	contentEvt := sseEvent{Data: mustJSON(map[string]any{
		"choices": []any{map[string]any{"index": 0, "delta": map[string]any{"content": joined}, "finish_reason": nil}},
	})}
	finishEvt := sseEvent{Data: mustJSON(map[string]any{
		"choices": []any{map[string]any{"index": 0, "delta": map[string]any{}, "finish_reason": "stop"}},
	})}
	doneEvt := sseEvent{Data: "[DONE]"}

	var out []byte
	out = append(out, contentEvt.Serialize()...)
	out = append(out, finishEvt.Serialize()...)
	out = append(out, doneEvt.Serialize()...)
	s.oaiDoneEmitted = true
	return out
}

// --- Gemini: no multi-chunk buffering required ---

func (s *StreamInterceptor) processGemini(blk rawBlock) []byte {
	var data map[string]any
	if err := json.Unmarshal([]byte(blk.event.Data), &data); err != nil {
		return blk.raw
	}

	hits, modified := interceptGeminiUnary(data, s.mode, s.engine)
	s.Hits = append(s.Hits, hits...)
	if !modified {
		return blk.raw
	}

	out, err := json.Marshal(data)
	if err != nil {
		return blk.raw
	}
	evt := sseEvent{Name: blk.event.Name, Data: string(out)}
	return evt.Serialize()
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
