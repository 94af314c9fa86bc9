package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/normalize"
	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/rules"
)

var (
	rulesTestTarget string
	rulesFilePath   string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and test the rule set",
}

var rulesTestCmd = &cobra.Command{
	Use:   "test <tool-name> <content>",
	Short: "Evaluate one ad-hoc action against the loaded rule set",
	Args:  cobra.ExactArgs(2),
	RunE:  runRulesTest,
}

func init() {
	rulesCmd.AddCommand(rulesTestCmd)
	rulesCmd.PersistentFlags().StringVar(&rulesFilePath, "rules-file", "", "rule set YAML file (default: ./sentinelgate-rules.yaml)")
	rulesTestCmd.Flags().StringVar(&rulesTestTarget, "target", "", "target path/url for the test action, if applicable")
	rootCmd.AddCommand(rulesCmd)
}

// runRulesTest loads the rule set and prints the verdict for one ad-hoc
// tool_name/content/target triple, restoring the original implementation's
// ad-hoc rule evaluation affordance for authors iterating on a rule file.
func runRulesTest(cmd *cobra.Command, args []string) error {
	toolName, content := args[0], args[1]

	path := rulesFilePath
	if path == "" {
		path = "./sentinelgate-rules.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rules file %s: %w", path, err)
	}

	store := rules.NewStore()
	if err := store.LoadYAML(path, data); err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	toolArgs := map[string]any{"command": content, "path": content, "url": content}
	if rulesTestTarget != "" {
		toolArgs["target"] = rulesTestTarget
	}
	action := normalize.Normalize(normalize.ToolCall{Name: toolName, Args: toolArgs})

	engine := rules.NewEngine(store)
	verdict := engine.Evaluate(action)

	out, err := json.MarshalIndent(map[string]any{
		"matched_rules":  verdict.Matched,
		"risk":           verdict.Risk.String(),
		"recommendation": verdict.Recommendation.String(),
		"blocked":        verdict.Blocked(),
		"explanation":    verdict.Explanation,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
