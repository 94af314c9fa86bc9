// Package cmd provides the CLI commands for Sentinel Gate.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/Sentinelgate/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sentinel-gate",
	Short: "Sentinel Gate - an interposing security harness for AI coding agents",
	Long: `Sentinel Gate sits between an AI coding agent and its LLM provider and
between the agent and the source tree it's allowed to touch.

It runs a transparent reverse proxy that understands the Anthropic, OpenAI,
and Gemini wire dialects, evaluates every tool-invocation site in a response
against a rule set, and in enforce mode rewrites or blocks the sites whose
verdict demands it. A companion source-code patcher injects a PreToolUse
hook into supported agent CLIs so every tool call is routed through the same
rule evaluation before it ever reaches disk.

Quick start:
  1. Create a config file: sentinel-gate.yaml
  2. Run: sentinel-gate start
  3. Run: sentinel-gate patch apply

Configuration:
  Config is loaded from sentinel-gate.yaml in the current directory,
  $HOME/.sentinel-gate/, or /etc/sentinel-gate/.

  Environment variables can override config values with the SENTINELGATE_ prefix.
  Example: SENTINELGATE_PROXY_LISTEN_ADDR=:9090

Commands:
  start         Start the reverse proxy and control-plane API
  patch         Check, apply, or revert the agent hook injection
  rules         Inspect and test the rule set
  claude-hook   Internal: Claude Code PreToolUse hook handler
  stop          Stop the running server
  reset         Reset to a clean state
  hash-token    Generate an Argon2id hash for the control-plane admin token
  version       Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./sentinel-gate.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
