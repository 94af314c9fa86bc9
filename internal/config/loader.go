// Package config provides configuration loading for Sentinel Gate.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for sentinel-gate.yaml/.yml
// in standard locations. The search requires an explicit YAML extension to
// avoid matching the binary itself, which Viper's built-in SetConfigName
// would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		viper.SetConfigName("sentinel-gate")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SENTINELGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a sentinel-gate config
// file with an explicit YAML extension.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".sentinel-gate"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "sentinel-gate"))
		}
	} else {
		paths = append(paths, "/etc/sentinel-gate")
	}
	return findConfigFileInPaths(paths)
}

func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "sentinel-gate"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds config keys that need explicit env var support
// beyond AutomaticEnv (nested keys Viper can't infer without a read).
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.http_addr")
	_ = viper.BindEnv("server.log_level")

	_ = viper.BindEnv("proxy.listen_addr")
	_ = viper.BindEnv("proxy.target")
	_ = viper.BindEnv("proxy.mode")

	_ = viper.BindEnv("rules.path")

	_ = viper.BindEnv("alert.telegram.bot_token", "SENTINELGATE_TELEGRAM_BOT_TOKEN")
	_ = viper.BindEnv("alert.telegram.chat_id", "SENTINELGATE_TELEGRAM_CHAT_ID")
	_ = viper.BindEnv("alert.slack.webhook_url", "SENTINELGATE_SLACK_WEBHOOK_URL")
	_ = viper.BindEnv("alert.discord.webhook_url", "SENTINELGATE_DISCORD_WEBHOOK_URL")

	_ = viper.BindEnv("admin.token_hash")

	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides,
// applies cfg.SetDefaults() and cfg.SetDevDefaults(), validates the result
// with cfg.Validate(), and returns the HarnessConfig.
func LoadConfig() (*HarnessConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg HarnessConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigRaw reads the configuration file and applies defaults, but does
// NOT apply dev defaults or validate. Use this when CLI flags may override
// DevMode before validation.
func LoadConfigRaw() (*HarnessConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg HarnessConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was
// loaded. Returns an empty string if no config file was found.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
