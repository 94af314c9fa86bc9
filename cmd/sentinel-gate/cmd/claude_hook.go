package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/rules"
	"github.com/Sentinel-Gate/Sentinelgate/internal/hook"
)

var claudeHookCmd = &cobra.Command{
	Use:           "claude-hook",
	Short:         "Internal: Claude Code PreToolUse hook handler",
	Hidden:        true,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runClaudeHook,
}

func init() {
	rootCmd.AddCommand(claudeHookCmd)
}

// runClaudeHook loads the rule set and evaluates one PreToolUse event
// in-process — there is no remote policy service to call; the hook and
// the proxy share the same rule engine shape, loaded independently here
// since the hook is a short-lived process invoked once per tool call.
func runClaudeHook(cmd *cobra.Command, args []string) error {
	failMode := hook.FailMode(os.Getenv("SENTINELGATE_FAIL_MODE"))
	if failMode == "" {
		failMode = hook.FailOpen
	}

	store := rules.NewStore()
	rulesPath := os.Getenv("SENTINELGATE_RULES_PATH")
	if rulesPath == "" {
		rulesPath = "./sentinelgate-rules.yaml"
	}
	if data, err := os.ReadFile(rulesPath); err == nil {
		if err := store.LoadYAML(rulesPath, data); err != nil {
			fmt.Fprintf(os.Stderr, "[sentinel-gate] hook: rule load warning: %v\n", err)
		}
	}

	engine := rules.NewEngine(store)
	return hook.Run(os.Stdin, os.Stdout, engine, failMode)
}
