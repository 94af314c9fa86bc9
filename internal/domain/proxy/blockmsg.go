package proxy

import "fmt"

// ProductName is the fixed product identity used in block messages
// (spec §6).
const ProductName = "Sentinel Gate"

// BlockMessage renders the fixed block-message wire format of spec §6:
// "🛡️ <product-name> blocked this action: [<tool>] <reason> (rule: <rule-name>)".
func BlockMessage(tool, reason, ruleName string) string {
	return fmt.Sprintf("🛡️ %s blocked this action: [%s] %s (rule: %s)", ProductName, tool, reason, ruleName)
}
