package patch

import "strings"

// InjectMode says whether the replacement template is inserted after the
// anchor (v1 patch format) or replaces the anchor outright (v2).
type InjectMode int

const (
	InjectAfter InjectMode = iota
	InjectReplace
)

// AnchorSpec is the literal material the patcher needs for one file: the
// sentinel that marks an already-applied patch, the anchor substring whose
// presence implies the expected internal structure, and the template
// inserted relative to it.
type AnchorSpec struct {
	Sentinel string
	Anchor   string
	Template string
	Mode     InjectMode
}

// knownVersions is the whitelist of runtime versions this patcher has been
// tested against. Versions outside the list are not rejected — they proceed
// with a warning, and anchor verification is the real gate (spec §4.4
// "proceed on unknown versions but log a warning").
var knownVersions = map[string]bool{
	"1.0.0": true, "1.0.1": true, "1.1.0": true, "1.2.0": true,
	"2.0.0": true, "2.0.1": true, "2.1.0": true,
}

// IsKnownVersion reports whether version is in the tested whitelist.
func IsKnownVersion(version string) bool {
	return knownVersions[version]
}

// schemeFor picks the patch format generation for a runtime version: major
// version 1.x uses the v1 "insert after anchor" format; 2.x and above use
// the v2 "replace anchor" format. Unparseable versions fall back to v2, the
// current format, consistent with "proceed on unknown versions."
func schemeFor(version string) string {
	major := strings.SplitN(version, ".", 2)[0]
	if major == "1" {
		return "v1"
	}
	return "v2"
}

// anchorCatalog maps (file kind, patch format) to its AnchorSpec.
var anchorCatalog = map[FileKind]map[string]AnchorSpec{
	KindExecTool: {
		"v1": {
			Sentinel: "// SENTINELGATE_PATCH_v1",
			Anchor:   "async function executeTool(toolCall, context) {",
			Template: "\n  // SENTINELGATE_PATCH_v1\n  const __sgVerdict = await __sentinelGateBeforeToolCall(toolCall, context);\n  if (__sgVerdict && __sgVerdict.block) { throw new Error(__sgVerdict.reason); }",
			Mode:     InjectAfter,
		},
		"v2": {
			Sentinel: "// SENTINELGATE_PATCH_v2",
			Anchor:   "async function executeTool(toolCall, context) {",
			Template: "async function executeTool(toolCall, context) {\n  // SENTINELGATE_PATCH_v2\n  const __sgVerdict = await __sentinelGateBeforeToolCall(toolCall, context);\n  if (__sgVerdict && __sgVerdict.block) { throw new Error(__sgVerdict.reason); }",
			Mode:     InjectReplace,
		},
	},
	KindPiTools: {
		"v1": {
			Sentinel: "// SENTINELGATE_PATCH_v1",
			Anchor:   "const piTools = { write: writeTool, edit: editTool };",
			Template: "\n  // SENTINELGATE_PATCH_v1\n  writeTool = __sentinelGateWrapTool(\"write\", writeTool);\n  editTool = __sentinelGateWrapTool(\"edit\", editTool);",
			Mode:     InjectAfter,
		},
		"v2": {
			Sentinel: "// SENTINELGATE_PATCH_v2",
			Anchor:   "const piTools = { write: writeTool, edit: editTool };",
			Template: "const piTools = { write: __sentinelGateWrapTool(\"write\", writeTool), edit: __sentinelGateWrapTool(\"edit\", editTool) };\n  // SENTINELGATE_PATCH_v2",
			Mode:     InjectReplace,
		},
	},
}

// AnchorFor returns the AnchorSpec for a file of the given kind under the
// runtime version's patch format generation.
func AnchorFor(kind FileKind, version string) (AnchorSpec, bool) {
	scheme := schemeFor(version)
	byScheme, ok := anchorCatalog[kind]
	if !ok {
		return AnchorSpec{}, false
	}
	spec, ok := byScheme[scheme]
	return spec, ok
}
