package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/patch"
)

var patchRuntimeName string

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Check, apply, or revert the runtime source-code patch",
}

var patchCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report the patch state of each target file",
	RunE:  runPatchCheck,
}

var patchApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the hook injection to each target file",
	RunE:  runPatchApply,
}

var patchRevertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Revert a previously applied patch",
	RunE:  runPatchRevert,
}

func init() {
	patchCmd.PersistentFlags().StringVar(&patchRuntimeName, "runtime", "claude", "runtime binary name to discover")
	patchCmd.AddCommand(patchCheckCmd, patchApplyCmd, patchRevertCmd)
	rootCmd.AddCommand(patchCmd)
}

func runPatchCheck(cmd *cobra.Command, args []string) error {
	target, err := patch.Discover(patchRuntimeName)
	if err != nil {
		return err
	}
	for _, f := range target.Files {
		result, err := patch.Check(f)
		if err != nil {
			return fmt.Errorf("check %s: %w", f.Path, err)
		}
		fmt.Printf("%-12s %-10s %s\n", f.Kind, result.State, f.Path)
	}
	return nil
}

func runPatchApply(cmd *cobra.Command, args []string) error {
	target, err := patch.Discover(patchRuntimeName)
	if err != nil {
		return err
	}
	if target.Version != "" && !patch.IsKnownVersion(target.Version) {
		fmt.Printf("warning: %s version %s is not in the tested whitelist; proceeding with anchor verification\n", patchRuntimeName, target.Version)
	}
	for _, f := range target.Files {
		result, err := patch.Apply(f, target.Version)
		if err != nil {
			return fmt.Errorf("apply %s: %w", f.Path, err)
		}
		fmt.Printf("%-12s %-10s %s (%s)\n", f.Kind, result.State, f.Path, result.Note)
	}
	return nil
}

func runPatchRevert(cmd *cobra.Command, args []string) error {
	target, err := patch.Discover(patchRuntimeName)
	if err != nil {
		return err
	}
	for _, f := range target.Files {
		result, err := patch.Revert(f)
		if err != nil {
			return fmt.Errorf("revert %s: %w", f.Path, err)
		}
		fmt.Printf("%-12s %-10s %s (%s)\n", f.Kind, result.State, f.Path, result.Note)
	}
	return nil
}
