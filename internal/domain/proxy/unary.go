package proxy

import (
	"encoding/json"
	"fmt"

	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/normalize"
	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/rules"
)

// Mode is the proxy's enforcement posture (spec §4.3.4, §6).
type Mode string

const (
	ModeMonitor Mode = "monitor"
	ModeEnforce Mode = "enforce"
)

// InterceptUnary parses a non-streaming response body as JSON, detects its
// dialect, evaluates every tool-invocation site found against the rule
// engine, and — in Enforce mode — rewrites any site whose verdict demands
// blocking. Returns the (possibly modified) body bytes and the HitRecords
// observed. On parse failure or an Unknown dialect, the original bytes are
// returned unchanged with no HitRecords (spec §7 ParseError(body) policy).
func InterceptUnary(body []byte, mode Mode, engine *rules.Engine) ([]byte, []rules.HitRecord) {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return body, nil
	}

	dialect := DetectDialect(parsed)

	var hits []rules.HitRecord
	var modified bool

	switch dialect {
	case DialectAnthropic:
		hits, modified = interceptAnthropicUnary(parsed, mode, engine)
	case DialectOpenAI:
		hits, modified = interceptOpenAIUnary(parsed, mode, engine)
	case DialectGemini:
		hits, modified = interceptGeminiUnary(parsed, mode, engine)
	default:
		return body, nil
	}

	if !modified {
		return body, hits
	}

	out, err := json.Marshal(parsed)
	if err != nil {
		return body, hits
	}
	return out, hits
}

func evaluateSite(siteKey, toolName string, args map[string]any, engine *rules.Engine) (rules.Verdict, rules.HitRecord, bool) {
	action := normalize.Normalize(normalize.ToolCall{Name: toolName, Args: args})
	verdict := engine.Evaluate(action)
	if len(verdict.Matched) == 0 {
		return verdict, rules.HitRecord{}, false
	}
	ruleName := verdict.Matched[len(verdict.Matched)-1]
	hit := rules.HitRecord{
		SiteKey:  siteKey,
		ToolName: toolName,
		RuleName: ruleName,
		Action:   verdict.Recommendation,
		Risk:     verdict.Risk,
		Reason:   verdict.Explanation,
	}
	return verdict, hit, true
}

func interceptAnthropicUnary(parsed map[string]any, mode Mode, engine *rules.Engine) ([]rules.HitRecord, bool) {
	content, ok := getSlice(parsed, "content")
	if !ok {
		return nil, false
	}

	var hits []rules.HitRecord
	var modified bool

	for i, item := range content {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := m["type"].(string); t != "tool_use" {
			continue
		}
		name, _ := m["name"].(string)
		input, _ := m["input"].(map[string]any)

		verdict, hit, matched := evaluateSite(fmt.Sprintf("content[%d]", i), name, input, engine)
		if !matched {
			continue
		}
		hits = append(hits, hit)

		if mode == ModeEnforce && verdict.Blocked() {
			content[i] = map[string]any{
				"type": "text",
				"text": BlockMessage(name, verdict.Explanation, hit.RuleName),
			}
			modified = true
		}
	}
	if modified {
		parsed["content"] = content
	}
	return hits, modified
}

func interceptOpenAIUnary(parsed map[string]any, mode Mode, engine *rules.Engine) ([]rules.HitRecord, bool) {
	choices, ok := getSlice(parsed, "choices")
	if !ok {
		return nil, false
	}

	var hits []rules.HitRecord
	var modified bool

	for c, choiceAny := range choices {
		choice, ok := choiceAny.(map[string]any)
		if !ok {
			continue
		}
		message, ok := choice["message"].(map[string]any)
		if !ok {
			continue
		}
		toolCalls, ok := message["tool_calls"].([]any)
		if !ok {
			continue
		}

		var blockedMessages []string
		kept := make([]any, 0, len(toolCalls))
		for t, tcAny := range toolCalls {
			tc, ok := tcAny.(map[string]any)
			if !ok {
				kept = append(kept, tcAny)
				continue
			}
			fn, _ := tc["function"].(map[string]any)
			name, _ := fn["name"].(string)
			argsStr, _ := fn["arguments"].(string)
			var args map[string]any
			_ = json.Unmarshal([]byte(argsStr), &args)

			verdict, hit, matched := evaluateSite(fmt.Sprintf("choices[%d].tool_calls[%d]", c, t), name, args, engine)
			if !matched {
				kept = append(kept, tcAny)
				continue
			}
			hits = append(hits, hit)

			if mode == ModeEnforce && verdict.Blocked() {
				blockedMessages = append(blockedMessages, BlockMessage(name, verdict.Explanation, hit.RuleName))
				modified = true
				continue
			}
			kept = append(kept, tcAny)
		}

		if modified {
			if len(kept) == 0 {
				delete(message, "tool_calls")
			} else {
				message["tool_calls"] = kept
			}
			if len(blockedMessages) > 0 {
				existing, _ := message["content"].(string)
				message["content"] = appendBlockMessages(existing, blockedMessages)
			}
		}
	}
	return hits, modified
}

func appendBlockMessages(existing string, msgs []string) string {
	out := existing
	for _, m := range msgs {
		if out != "" {
			out += "\n"
		}
		out += m
	}
	return out
}

func interceptGeminiUnary(parsed map[string]any, mode Mode, engine *rules.Engine) ([]rules.HitRecord, bool) {
	candidates, ok := getSlice(parsed, "candidates")
	if !ok {
		return nil, false
	}

	var hits []rules.HitRecord
	var modified bool

	for c, candAny := range candidates {
		cand, ok := candAny.(map[string]any)
		if !ok {
			continue
		}
		contentObj, ok := cand["content"].(map[string]any)
		if !ok {
			continue
		}
		parts, ok := contentObj["parts"].([]any)
		if !ok {
			continue
		}

		for p, partAny := range parts {
			part, ok := partAny.(map[string]any)
			if !ok {
				continue
			}
			fc, ok := part["functionCall"].(map[string]any)
			if !ok {
				continue
			}
			name, _ := fc["name"].(string)
			args, _ := fc["args"].(map[string]any)

			verdict, hit, matched := evaluateSite(fmt.Sprintf("candidates[%d].parts[%d]", c, p), name, args, engine)
			if !matched {
				continue
			}
			hits = append(hits, hit)

			if mode == ModeEnforce && verdict.Blocked() {
				parts[p] = map[string]any{"text": BlockMessage(name, verdict.Explanation, hit.RuleName)}
				modified = true
			}
		}
		if modified {
			contentObj["parts"] = parts
		}
	}
	return hits, modified
}
