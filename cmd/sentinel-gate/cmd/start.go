// Package cmd provides the CLI commands for Sentinel Gate.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/Sentinelgate/internal/adapter/inbound/admin"
	sghttp "github.com/Sentinel-Gate/Sentinelgate/internal/adapter/inbound/http"
	"github.com/Sentinel-Gate/Sentinelgate/internal/adapter/outbound/alert"
	"github.com/Sentinel-Gate/Sentinelgate/internal/adapter/outbound/audit"
	"github.com/Sentinel-Gate/Sentinelgate/internal/config"
	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/rules"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Sentinel Gate proxy",
	Long: `Start the Sentinel Gate reverse proxy and control-plane API.

The proxy listens on proxy.listen_addr and forwards every request to the
configured LLM provider (proxy.target), inspecting tool-invocation sites
in the response against the loaded rule set. In "monitor" mode every
match is logged and alerted on but never rewritten; in "enforce" mode a
matched site whose verdict demands it is rewritten or blocked before the
response reaches the caller.

Examples:
  # Start with config file settings
  sentinel-gate start

  # Start with a specific config file
  sentinel-gate --config /path/to/config.yaml start`,
	RunE: runStart,
}

var devMode bool

func init() {
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (defaults to monitor mode and ./audit when unset)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	cfg.SetDefaults()

	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop() // Restore default: next Ctrl+C = immediate exit.
	}()

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger.Debug("log level configured", "level", cfg.Server.LogLevel, "effective", logLevel.String())

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	pidPath := pidFilePath()
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}

	logger.Info("sentinel-gate stopped")
	return nil
}

// run wires the rule store, audit store, alert dispatcher, proxy adapter,
// and control-plane API together and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.HarnessConfig, logger *slog.Logger) error {
	store := rules.NewStore()
	if data, err := os.ReadFile(cfg.Rules.Path); err == nil {
		if err := store.LoadYAML(cfg.Rules.Path, data); err != nil {
			logger.Error("failed to load rules file, running with self-protection rules only", "path", cfg.Rules.Path, "error", err)
		}
	} else {
		logger.Warn("rules file not found, running with self-protection rules only", "path", cfg.Rules.Path)
	}
	engine := rules.NewEngine(store)

	auditStore, err := audit.NewFileAuditStore(cfg.Audit, logger)
	if err != nil {
		return fmt.Errorf("failed to open audit store: %w", err)
	}
	defer auditStore.Close()

	dispatcher := alert.NewDispatcher(cfg.Alert, logger)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	transport, err := sghttp.NewHTTPTransport(cfg.Proxy, engine, auditStore, dispatcher, logger)
	if err != nil {
		return fmt.Errorf("failed to build proxy adapter: %w", err)
	}
	healthChecker := sghttp.NewHealthChecker(store, auditStore, dispatcher, Version)
	transport = transport.WithHealthChecker(healthChecker)

	adminServer := admin.NewServer(cfg, store, auditStore, dispatcher, transport, logger)

	printBanner(Version, cfg.Server.HTTPAddr, cfg.Proxy.ListenAddr, cfg.DevMode, len(store.Compiled()))

	errCh := make(chan error, 2)
	go func() {
		errCh <- transport.Start(ctx)
	}()
	go func() {
		errCh <- adminServer.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		_ = transport.Close()
		_ = adminServer.Close()
		return nil
	case err := <-errCh:
		return err
	}
}

// parseLogLevel maps the config's external log-level vocabulary onto slog.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// printBanner prints a formatted startup banner to stderr with version,
// addresses, mode, and rule count.
func printBanner(version, adminAddr, proxyAddr string, devMode bool, ruleCount int) {
	const (
		reset  = "\033[0m"
		bold   = "\033[1m"
		cyan   = "\033[36m"
		green  = "\033[32m"
		yellow = "\033[33m"
		dim    = "\033[2m"
	)

	modeStr := green + "production" + reset
	if devMode {
		modeStr = yellow + "development" + reset + dim + " (no auth)" + reset
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  %s%s Sentinel Gate %s%s\n", bold, cyan, version, reset)
	fmt.Fprintf(os.Stderr, "  %s─────────────────────────────────────%s\n", dim, reset)
	fmt.Fprintf(os.Stderr, "  %-14s http://%s\n", "Control plane:", adminAddr)
	fmt.Fprintf(os.Stderr, "  %-14s http://%s\n", "Proxy:", proxyAddr)
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "Mode:", modeStr)
	fmt.Fprintf(os.Stderr, "  %-14s %d active\n", "Rules:", ruleCount)
	fmt.Fprintf(os.Stderr, "  %s─────────────────────────────────────%s\n", dim, reset)
	fmt.Fprintf(os.Stderr, "\n")
}

// pidFilePath returns the standard location for the Sentinel Gate PID file.
func pidFilePath() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".sentinel-gate", "server.pid")
	}
	return filepath.Join(os.TempDir(), "sentinelgate-server.pid")
}

// writePIDFile writes the current process PID to the given path, creating
// parent directories as needed.
func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}
