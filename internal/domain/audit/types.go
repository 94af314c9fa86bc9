// Package audit contains domain types for verdict audit logging.
package audit

import (
	"strings"
	"time"
)

// Decision constants for verdict records, reflecting what the proxy or hook
// actually did with the inspected tool invocation.
const (
	// DecisionForward indicates the action was forwarded unmodified.
	DecisionForward = "forward"
	// DecisionBlocked indicates the action was refused (Enforce mode, Block
	// or CriticalAlert recommendation).
	DecisionBlocked = "blocked"
	// DecisionRewritten indicates the action's tool-use block was replaced
	// with a text explanation rather than forwarded or silently dropped.
	DecisionRewritten = "rewritten"
)

// sensitiveKeywords lists substrings that indicate a sensitive metadata key.
// Comparison is case-insensitive.
var sensitiveKeywords = []string{
	"password", "secret", "token", "api_key", "apikey",
	"credential", "auth", "private_key", "privatekey",
}

// RedactSensitiveMetadata returns a copy of metadata with sensitive values
// masked. A key is considered sensitive if it contains any of the
// sensitiveKeywords (case-insensitive). Values are replaced with
// "***REDACTED***" so audit files never carry provider credentials that
// happen to flow through an action's metadata bag.
func RedactSensitiveMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return metadata
	}
	redacted := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if isSensitiveKey(k) {
			redacted[k] = "***REDACTED***"
		} else {
			redacted[k] = v
		}
	}
	return redacted
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// VerdictRecord is a single auditable inspection of a tool invocation,
// written once per evaluated Action (spec §4.3.4, §7).
type VerdictRecord struct {
	// Timestamp is when the action was evaluated.
	Timestamp time.Time `json:"timestamp"`
	// RequestID correlates this record with the proxy request/response pair
	// or hook invocation that produced it.
	RequestID string `json:"request_id"`
	// SessionID is the agent session the action belongs to, if known.
	SessionID string `json:"session_id,omitempty"`
	// AgentKind identifies the calling agent runtime (e.g. "claude-code").
	AgentKind string `json:"agent_kind,omitempty"`

	// ToolName is the tool invocation name as seen on the wire, before
	// normalization (e.g. "Bash", not "exec").
	ToolName string `json:"tool_name"`
	// SiteKey is the stable per-tool-invocation-site key the rule engine
	// grouped this hit under (spec §4.3.4).
	SiteKey string `json:"site_key,omitempty"`
	// Content is the normalized action content that was evaluated.
	Content string `json:"content"`
	// Target is the normalized action target (path, URL, command head).
	Target string `json:"target,omitempty"`
	// Dialect is the provider wire format the action was observed on
	// ("anthropic", "openai", "gemini", or empty for the in-process hook).
	Dialect string `json:"dialect,omitempty"`

	// Risk is the verdict's risk level ("info", "warning", "critical").
	Risk string `json:"risk"`
	// Recommendation is the verdict's recommended action ("log_only",
	// "alert", "pause_and_ask", "block", "critical_alert").
	Recommendation string `json:"recommendation"`
	// Matched lists the names of every rule that matched.
	Matched []string `json:"matched,omitempty"`
	// Explanation is the human-readable reason assembled from matched rules.
	Explanation string `json:"explanation,omitempty"`

	// Decision is what actually happened to the action: "forward",
	// "blocked", or "rewritten".
	Decision string `json:"decision"`
	// LatencyMicros is the rule evaluation latency in microseconds.
	LatencyMicros int64 `json:"latency_micros,omitempty"`
}
