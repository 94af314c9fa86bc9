package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/Sentinelgate/internal/config"
)

var (
	resetIncludeAudit bool
	resetForce        bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset Sentinel Gate to a clean state",
	Long: `Reset Sentinel Gate by removing its PID file and, optionally, audit logs.

On next start, the server boots fresh — the rule set is reloaded from
rules.path and self-protection rules are re-applied as usual.

Optional flags:
  --include-audit   Also remove the audit log directory
  --force           Skip confirmation prompt

Examples:
  # Reset the PID file only (interactive confirmation)
  sentinel-gate reset

  # Reset everything without prompting
  sentinel-gate reset --include-audit --force`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetIncludeAudit, "include-audit", false, "Also remove the audit log directory")
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Skip confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	type target struct {
		path string
		desc string
	}
	var targets []target

	targets = append(targets, target{pidFilePath(), "PID file"})

	if resetIncludeAudit {
		cfg, err := loadConfigForReset()
		if err == nil && cfg.Audit.Dir != "" {
			targets = append(targets, target{cfg.Audit.Dir, "audit directory"})
		}
	}

	var existing []target
	for _, t := range targets {
		if _, err := os.Stat(t.path); err == nil {
			existing = append(existing, t)
		}
	}

	if len(existing) == 0 {
		fmt.Fprintln(os.Stderr, "Nothing to reset.")
		return nil
	}

	fmt.Fprintln(os.Stderr, "The following will be removed:")
	for _, t := range existing {
		fmt.Fprintf(os.Stderr, "  - %s (%s)\n", t.path, t.desc)
	}

	if !resetForce {
		fmt.Fprint(os.Stderr, "\nProceed? [y/N] ")
		var answer string
		fmt.Scanln(&answer) //nolint:errcheck // interactive prompt, error irrelevant
		if answer != "y" && answer != "Y" {
			fmt.Fprintln(os.Stderr, "Aborted.")
			return nil
		}
	}

	var errors int
	for _, t := range existing {
		if err := os.RemoveAll(t.path); err != nil {
			fmt.Fprintf(os.Stderr, "  ERROR removing %s: %v\n", t.path, err)
			errors++
		} else {
			fmt.Fprintf(os.Stderr, "  Removed %s\n", t.path)
		}
	}

	if errors > 0 {
		return fmt.Errorf("%d file(s) could not be removed", errors)
	}

	fmt.Fprintln(os.Stderr, "\nReset complete.")
	return nil
}

// loadConfigForReset attempts to load config to discover the audit
// directory. Returns a zero config on error (non-fatal for reset).
func loadConfigForReset() (*config.HarnessConfig, error) {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return &config.HarnessConfig{}, err
	}
	cfg.SetDefaults()
	return cfg, nil
}
