// Package rules implements the rule engine: compiling regex, keyword, and
// template match specifications into a uniform matcher and evaluating a
// normalized action against them to produce a verdict.
package rules

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind classifies the kind of tool invocation an Action represents.
type ActionKind string

const (
	KindExec          ActionKind = "exec"
	KindFileRead      ActionKind = "file_read"
	KindFileWrite     ActionKind = "file_write"
	KindFileDelete    ActionKind = "file_delete"
	KindHTTPRequest   ActionKind = "http_request"
	KindBrowserAction ActionKind = "browser_action"
	KindMessageSend   ActionKind = "message_send"
	KindGitOperation  ActionKind = "git_operation"
	KindUnknown       ActionKind = "unknown"
)

// RiskLevel is totally ordered Info < Warning < Critical.
type RiskLevel int

const (
	RiskInfo RiskLevel = iota
	RiskWarning
	RiskCritical
)

// String renders the risk level using the external (config/API) vocabulary.
func (r RiskLevel) String() string {
	switch r {
	case RiskInfo:
		return "info"
	case RiskWarning:
		return "warning"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseRiskLevel parses the external vocabulary, defaulting to RiskWarning
// for an empty string per the rules-file schema.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch s {
	case "", "warning":
		return RiskWarning, true
	case "info":
		return RiskInfo, true
	case "critical":
		return RiskCritical, true
	default:
		return RiskWarning, false
	}
}

// Recommendation is the rule engine's output action, totally ordered by the
// monotone promotion table in Engine.Evaluate.
type Recommendation int

const (
	RecommendLogOnly Recommendation = iota
	RecommendAlert
	RecommendPauseAndAsk
	RecommendBlock
	RecommendCriticalAlert
)

// String renders the recommendation using the external (config/API) vocabulary.
func (r Recommendation) String() string {
	switch r {
	case RecommendLogOnly:
		return "log_only"
	case RecommendAlert:
		return "alert"
	case RecommendPauseAndAsk:
		return "pause_and_ask"
	case RecommendBlock:
		return "block"
	case RecommendCriticalAlert:
		return "critical_alert"
	default:
		return "unknown"
	}
}

// ParseRecommendation parses the external vocabulary, defaulting to
// RecommendAlert for an empty string per the rules-file schema.
func ParseRecommendation(s string) (Recommendation, bool) {
	switch s {
	case "", "alert":
		return RecommendAlert, true
	case "log_only":
		return RecommendLogOnly, true
	case "pause_and_ask":
		return RecommendPauseAndAsk, true
	case "block":
		return RecommendBlock, true
	case "critical_alert":
		return RecommendCriticalAlert, true
	default:
		return RecommendAlert, false
	}
}

// Blocking reports whether this recommendation demands rewriting/blocking
// the tool call in Enforce mode (spec §4.3.4: CriticalAlert, Block, PauseAndAsk).
func (r Recommendation) Blocking() bool {
	return r == RecommendCriticalAlert || r == RecommendBlock || r == RecommendPauseAndAsk
}

// promotionTable implements the monotone promotion table of spec §4.1.
// promotionTable[current][incoming] yields the new recommendation. "Block"
// never appears as a current state: any incoming Block promotes straight to
// CriticalAlert, so the accumulated recommendation only ever holds
// {LogOnly, Alert, PauseAndAsk, CriticalAlert} — the Block row below exists
// only so the table is total and is never reached in practice.
var promotionTable = [5][5]Recommendation{
	RecommendLogOnly:       {RecommendLogOnly, RecommendAlert, RecommendPauseAndAsk, RecommendCriticalAlert, RecommendCriticalAlert},
	RecommendAlert:         {RecommendAlert, RecommendAlert, RecommendPauseAndAsk, RecommendCriticalAlert, RecommendCriticalAlert},
	RecommendPauseAndAsk:   {RecommendPauseAndAsk, RecommendPauseAndAsk, RecommendPauseAndAsk, RecommendCriticalAlert, RecommendCriticalAlert},
	RecommendBlock:         {RecommendCriticalAlert, RecommendCriticalAlert, RecommendCriticalAlert, RecommendCriticalAlert, RecommendCriticalAlert},
	RecommendCriticalAlert: {RecommendCriticalAlert, RecommendCriticalAlert, RecommendCriticalAlert, RecommendCriticalAlert, RecommendCriticalAlert},
}

// Promote returns the joined recommendation of current and incoming under
// the monotone promotion table. Block and CriticalAlert are equivalent at
// the verdict level (spec §9 open question 3): once either is reached the
// result never regresses.
func Promote(current, incoming Recommendation) Recommendation {
	return promotionTable[current][incoming]
}

// Action is the unit of inspection (spec §3).
type Action struct {
	ID         string
	Kind       ActionKind
	Content    string
	Target     string
	AgentKind  string
	SessionID  string
	Metadata   map[string]any
	Timestamp  time.Time
}

// NewAction constructs an Action with a fresh ID and the current timestamp.
func NewAction(kind ActionKind, content, target string) Action {
	return Action{
		ID:        uuid.NewString(),
		Kind:      kind,
		Content:   content,
		Target:    target,
		Timestamp: time.Now().UTC(),
	}
}

// MatchType is the closed set of rule match kinds.
type MatchType string

const (
	MatchRegex    MatchType = "regex"
	MatchKeyword  MatchType = "keyword"
	MatchTemplate MatchType = "template"
)

// KeywordSpec holds the five optional keyword predicates (spec §4.1).
// A rule matches iff every non-empty predicate is satisfied; if all five
// are empty the rule never matches.
type KeywordSpec struct {
	Contains   []string `yaml:"contains,omitempty" mapstructure:"contains"`
	StartsWith []string `yaml:"starts_with,omitempty" mapstructure:"starts_with"`
	EndsWith   []string `yaml:"ends_with,omitempty" mapstructure:"ends_with"`
	Glob       []string `yaml:"glob,omitempty" mapstructure:"glob"`
	AnyOf      []string `yaml:"any_of,omitempty" mapstructure:"any_of"`
}

// Empty reports whether all five predicates are unset.
func (k KeywordSpec) Empty() bool {
	return len(k.Contains) == 0 && len(k.StartsWith) == 0 && len(k.EndsWith) == 0 &&
		len(k.Glob) == 0 && len(k.AnyOf) == 0
}

// TemplateParams is the parameter bundle fed to a named template's
// expansion function (spec §6).
type TemplateParams struct {
	Path     string   `yaml:"path,omitempty" mapstructure:"path"`
	Paths    []string `yaml:"paths,omitempty" mapstructure:"paths"`
	Operations []string `yaml:"operations,omitempty" mapstructure:"operations"`
	Commands []string `yaml:"commands,omitempty" mapstructure:"commands"`
	Patterns []string `yaml:"patterns,omitempty" mapstructure:"patterns"`
	Extra    []string `yaml:"extra,omitempty" mapstructure:"extra"`
}

// RuleSpec is the serializable (YAML/API) representation of a rule
// (spec §3 / §6). It carries no compiled state; see CompiledRule.
type RuleSpec struct {
	Name        string          `yaml:"name" mapstructure:"name" validate:"required"`
	Description string          `yaml:"description" mapstructure:"description"`
	MatchType   MatchType       `yaml:"match_type" mapstructure:"match_type"`
	Pattern     string          `yaml:"pattern,omitempty" mapstructure:"pattern"`
	Keyword     KeywordSpec     `yaml:"keyword,omitempty" mapstructure:"keyword"`
	Template    string          `yaml:"template,omitempty" mapstructure:"template"`
	Params      TemplateParams  `yaml:"params,omitempty" mapstructure:"params"`
	AppliesTo   []ActionKind    `yaml:"applies_to,omitempty" mapstructure:"applies_to"`
	RiskLevel   string          `yaml:"risk_level,omitempty" mapstructure:"risk_level"`
	ActionName  string          `yaml:"action,omitempty" mapstructure:"action"`
	Enabled     *bool           `yaml:"enabled,omitempty" mapstructure:"enabled"`
	Protected   bool            `yaml:"protected,omitempty" mapstructure:"protected"`
}

// IsEnabled returns the effective enabled flag, defaulting to true when unset.
func (s RuleSpec) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// CompiledRule is the engine-owned form of a rule: regex objects, parsed
// globs, and (for templates) the expanded pattern set. Never persisted
// (spec §3, §9 "RuleSpec/CompiledRule split").
type CompiledRule struct {
	Spec      RuleSpec
	Risk      RiskLevel
	Action    Recommendation
	AppliesTo map[ActionKind]bool // empty map means "applies to all"
	matcher   matcher
}

// Matches reports whether the compiled rule matches the given action.
func (c *CompiledRule) Matches(a Action) bool {
	if len(c.AppliesTo) > 0 && !c.AppliesTo[a.Kind] {
		return false
	}
	return c.matcher.match(a)
}

// HitRecord is recorded per matched tool-invocation site (spec §4.3.4).
type HitRecord struct {
	SiteKey    string
	ToolName   string
	RuleName   string
	Action     Recommendation
	Risk       RiskLevel
	Reason     string
}

// Verdict is the rule engine's output for one action (spec §3).
type Verdict struct {
	Action         Action
	Matched        []string
	Risk           RiskLevel
	Recommendation Recommendation
	Explanation    string
}

// Blocked reports whether the verdict demands blocking in Enforce mode.
func (v Verdict) Blocked() bool {
	return v.Recommendation.Blocking()
}
