package rules

// selfProtectionSpecs is the fixed, always-enabled, always-protected rule
// set required by spec §4.1. User config entries sharing these names are
// dropped on load (see Store.LoadYAML); no API or config path can disable,
// mutate, or delete them.
//
// Coverage required by the specification:
//   - writes/edits to this system's own configuration and rules files
//   - writes/edits to this system's own source tree or binary output
//   - shell commands that stop/kill/signal this process by name
//   - CLI invocations of this system's own stop command
//   - modifications to the target runtime's plugin/patch files
//   - outbound HTTP that would disable rules via this system's own
//     control-plane API
//   - reversions of the code patch applied by the Patcher
var selfProtectionSpecs = []RuleSpec{
	{
		Name:        "self_protect_config",
		Description: "protects sentinel-gate's own configuration and rules files",
		MatchType:   MatchRegex,
		Pattern:     `(^|/)(sentinel-gate\.ya?ml|sentinelgate-rules\.ya?ml|rules\.ya?ml|alerts\.ya?ml)$`,
		AppliesTo:   []ActionKind{KindFileWrite, KindFileDelete},
		RiskLevel:   "critical",
		ActionName:  "block",
		Protected:   true,
	},
	{
		Name:        "self_protect_source",
		Description: "protects sentinel-gate's own source tree and binary output",
		MatchType:   MatchKeyword,
		Keyword:     KeywordSpec{Contains: []string{"sentinel-gate/internal", "sentinel-gate/cmd", "sentinel-gate/sdks"}},
		AppliesTo:   []ActionKind{KindFileWrite, KindFileDelete},
		RiskLevel:   "critical",
		ActionName:  "block",
		Protected:   true,
	},
	{
		Name:        "self_protect_process_signal",
		Description: "blocks shell commands that stop, kill, or signal sentinel-gate by name",
		MatchType:   MatchRegex,
		Pattern:     `\b(kill|pkill|killall)\b.*\bsentinel-gate\b`,
		AppliesTo:   []ActionKind{KindExec},
		RiskLevel:   "critical",
		ActionName:  "block",
		Protected:   true,
	},
	{
		Name:        "self_protect_stop_command",
		Description: "blocks CLI invocations of sentinel-gate's own stop command",
		MatchType:   MatchKeyword,
		Keyword:     KeywordSpec{Contains: []string{"sentinel-gate stop"}},
		AppliesTo:   []ActionKind{KindExec},
		RiskLevel:   "critical",
		ActionName:  "block",
		Protected:   true,
	},
	{
		Name:        "self_protect_patch_files",
		Description: "protects the target runtime's patched plugin files from modification",
		MatchType:   MatchKeyword,
		Keyword:     KeywordSpec{Contains: []string{"bash-tools.exec.js", "exec-tool.js", "pi-tools.js"}},
		AppliesTo:   []ActionKind{KindFileWrite, KindFileDelete},
		RiskLevel:   "critical",
		ActionName:  "block",
		Protected:   true,
	},
	{
		Name:        "self_protect_control_plane_disable",
		Description: "blocks outbound calls that would disable rules via sentinel-gate's own control-plane API",
		MatchType:   MatchRegex,
		Pattern:     `(?i)/api/rules/[^/]+.*\b(DELETE|disable)\b`,
		AppliesTo:   []ActionKind{KindHTTPRequest},
		RiskLevel:   "critical",
		ActionName:  "block",
		Protected:   true,
	},
	{
		Name:        "self_protect_patch_revert",
		Description: "blocks reverting the code patch applied by sentinel-gate's patcher",
		MatchType:   MatchKeyword,
		Keyword:     KeywordSpec{Contains: []string{"sentinel-gate patch revert"}},
		AppliesTo:   []ActionKind{KindExec},
		RiskLevel:   "critical",
		ActionName:  "block",
		Protected:   true,
	},
}

// IsSelfProtectionRule reports whether name identifies a hardcoded
// self-protection rule.
func IsSelfProtectionRule(name string) bool {
	for _, s := range selfProtectionSpecs {
		if s.Name == name {
			return true
		}
	}
	return false
}
