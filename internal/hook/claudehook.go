// Package hook implements the Claude Code PreToolUse hook contract: a
// short-lived process that reads one JSON event from stdin and writes an
// allow/deny decision to stdout. Unlike the teacher's claude-hook command,
// which POSTs to a remote policy-evaluate endpoint, this hook holds its
// own in-process rule engine — there is no separate policy service to
// reach, and a daemon roundtrip would add latency to every tool call.
package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/normalize"
	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/rules"
)

// FailMode controls behavior when the hook itself errors (not when a rule
// blocks — that is always a deny).
type FailMode string

const (
	FailOpen   FailMode = "open"
	FailClosed FailMode = "closed"
)

// claudeHookInput matches the JSON Claude Code sends to PreToolUse hooks.
type claudeHookInput struct {
	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input"`
}

// claudeHookDenyOutput is the JSON response format for denying a tool use.
type claudeHookDenyOutput struct {
	HookSpecificOutput struct {
		HookEventName            string `json:"hookEventName"`
		PermissionDecision       string `json:"permissionDecision"`
		PermissionDecisionReason string `json:"permissionDecisionReason,omitempty"`
	} `json:"hookSpecificOutput"`
}

// Run reads one PreToolUse event from stdin, evaluates it against engine,
// and writes the decision to stdout. Under FailClosed a processing error
// is answered with a deny decision; under FailOpen it is logged to stderr
// and treated as allow. The returned error is non-nil only when writing a
// deny decision to stdout fails.
func Run(stdin io.Reader, stdout io.Writer, engine *rules.Engine, mode FailMode) error {
	inputBytes, err := io.ReadAll(stdin)
	if err != nil {
		return failure(stdout, mode, "read stdin: "+err.Error())
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(inputBytes, &raw); err != nil {
		return nil // unparseable event, not our concern — allow
	}
	if _, hasToolName := raw["tool_name"]; !hasToolName {
		return nil // not a PreToolUse event (e.g. SessionStart) — allow
	}

	var input claudeHookInput
	if err := json.Unmarshal(inputBytes, &input); err != nil {
		return failure(stdout, mode, "parse input: "+err.Error())
	}

	toolName, args := mapClaudeTool(input.ToolName, input.ToolInput)
	if toolName == "" {
		return nil // tool this harness has no mapping for — allow
	}

	action := normalize.Normalize(normalize.ToolCall{Name: toolName, Args: args})
	verdict := engine.Evaluate(action)

	if verdict.Blocked() {
		return deny(stdout, fmt.Sprintf("Sentinel Gate: %s", verdict.Explanation))
	}
	return nil
}

// mapClaudeTool maps a Claude Code tool name + raw JSON input to this
// harness's normalize.ToolCall vocabulary (exec/read/write/edit/
// web_fetch/web_search/browser/message).
func mapClaudeTool(tool string, rawInput json.RawMessage) (string, map[string]any) {
	var args map[string]any
	_ = json.Unmarshal(rawInput, &args)
	if args == nil {
		args = map[string]any{}
	}

	switch tool {
	case "Bash":
		return "exec", args
	case "Read", "Glob", "Grep", "NotebookRead":
		return "read", args
	case "Write":
		return "write", args
	case "Edit", "NotebookEdit":
		return "edit", args
	case "WebFetch":
		return "web_fetch", args
	case "WebSearch":
		return "web_search", args
	default:
		return "", nil
	}
}

func deny(stdout io.Writer, reason string) error {
	var output claudeHookDenyOutput
	output.HookSpecificOutput.HookEventName = "PreToolUse"
	output.HookSpecificOutput.PermissionDecision = "deny"
	output.HookSpecificOutput.PermissionDecisionReason = reason
	return json.NewEncoder(stdout).Encode(output)
}

// failure handles a hook processing error according to FailMode:
// fail-closed denies with the error, fail-open logs a warning and allows.
func failure(stdout io.Writer, mode FailMode, msg string) error {
	if mode == FailClosed {
		return deny(stdout, "Sentinel Gate error: "+msg)
	}
	fmt.Fprintf(os.Stderr, "[sentinel-gate] hook warning: %s (fail-open, allowing)\n", msg)
	return nil
}
