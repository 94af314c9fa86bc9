// Package normalize extracts a canonical (kind, content, target) action
// from provider-specific tool-call payloads, per the mapping table of
// spec §4.2. Rule matching uses this normalized view exclusively; rule
// authors write patterns against content/target without concern for the
// provider dialect that produced them.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/rules"
)

// maxStringLength caps any single string value sanitized below, preventing
// a pathological argument from reaching the rule engine unbounded.
const maxStringLength = 1 << 20

// ToolCall is the provider-agnostic shape a dialect adapter reduces a
// tool-invocation site down to before normalization.
type ToolCall struct {
	Name string
	Args map[string]any
}

// Normalize maps a ToolCall to a rules.Action per the canonical table of
// spec §4.2. Tool names are matched case-insensitively; unrecognized names
// fall through to ActionKind Unknown with the JSON-encoded args as content.
//
// Input is sanitized first (null-byte stripping, length caps), so a
// pathological or oversized argument never reaches the rule engine as-is.
func Normalize(tc ToolCall) rules.Action {
	args, _ := sanitizeValue(tc.Args).(map[string]any)
	if args == nil {
		args = tc.Args
	}

	name := strings.ToLower(strings.TrimSpace(tc.Name))

	var kind rules.ActionKind
	var content, target string

	switch name {
	case "exec":
		kind = rules.KindExec
		content = stringField(args, "command")
	case "read":
		kind = rules.KindFileRead
		target = pathField(args)
		content = fmt.Sprintf("read %s", target)
	case "write":
		kind = rules.KindFileWrite
		target = pathField(args)
		content = stringField(args, "content")
	case "edit":
		kind = rules.KindFileWrite
		target = pathField(args)
		oldText := firstNonEmpty(stringField(args, "oldText"), stringField(args, "old_string"))
		newText := firstNonEmpty(stringField(args, "newText"), stringField(args, "new_string"))
		content = fmt.Sprintf("%s -> %s", oldText, newText)
	case "web_fetch":
		kind = rules.KindHTTPRequest
		target = stringField(args, "url")
		content = fmt.Sprintf("fetch %s", target)
	case "web_search":
		kind = rules.KindHTTPRequest
		content = fmt.Sprintf("search: %s", stringField(args, "query"))
	case "browser":
		kind = rules.KindBrowserAction
		target = stringField(args, "targetUrl")
		content = fmt.Sprintf("browser:%s", stringField(args, "action"))
	case "message":
		kind = rules.KindMessageSend
		target = stringField(args, "target")
		content = stringField(args, "message")
	default:
		kind = rules.KindUnknown
		content = jsonEncode(args)
	}

	a := rules.NewAction(kind, content, target)
	a.Metadata = map[string]any{"tool_name": tc.Name}
	return a
}

func pathField(args map[string]any) string {
	return firstNonEmpty(stringField(args, "path"), stringField(args, "file_path"))
}

func stringField(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func jsonEncode(args map[string]any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// sanitizeValue recursively strips null bytes from strings and truncates
// them at maxStringLength; maps and slices recurse, everything else passes
// through unchanged.
func sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return sanitizeString(val)
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, elem := range val {
			result[k] = sanitizeValue(elem)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, elem := range val {
			result[i] = sanitizeValue(elem)
		}
		return result
	default:
		return v
	}
}

func sanitizeString(str string) string {
	str = strings.ReplaceAll(str, "\x00", "")
	if len(str) > maxStringLength {
		str = str[:maxStringLength]
	}
	return str
}
