// Package config provides configuration types for Sentinel Gate.
//
// Sentinel Gate is an interposing security harness for AI coding agents: it
// sits between an agent runtime and its LLM provider, inspecting tool-
// invocation instructions before they execute. This schema intentionally
// excludes concerns the harness doesn't own:
//
//   - NO persistence beyond append-only audit files (no Postgres/Redis)
//   - NO SIEM/metrics export beyond the local Prometheus endpoint
//   - NO multi-tenant identity system — the admin API uses one static
//     bearer token
package config

import (
	"os"

	"github.com/spf13/viper"
)

// HarnessConfig is the top-level configuration for Sentinel Gate.
type HarnessConfig struct {
	// Server configures the admin/control-plane HTTP listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Proxy configures the reverse proxy that inspects LLM provider traffic.
	Proxy ProxyConfig `yaml:"proxy" mapstructure:"proxy"`

	// Rules configures where the rule set is loaded from.
	Rules RulesConfig `yaml:"rules" mapstructure:"rules"`

	// Audit configures file-based verdict persistence.
	Audit AuditFileConfig `yaml:"audit_file" mapstructure:"audit_file"`

	// Alert configures the outbound alert dispatcher.
	Alert AlertConfig `yaml:"alert" mapstructure:"alert"`

	// Admin configures the control-plane API's authentication.
	Admin AdminConfig `yaml:"admin" mapstructure:"admin"`

	// DevMode enables permissive defaults for local iteration.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the admin/control-plane HTTP listener.
type ServerConfig struct {
	// HTTPAddr is the address the control-plane API listens on.
	// Defaults to "127.0.0.1:8090" (localhost only) if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level: "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// ProxyConfig configures the reverse proxy.
type ProxyConfig struct {
	// ListenAddr is the address the proxy listens on for agent traffic.
	// Defaults to "127.0.0.1:8787" if empty.
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr" validate:"omitempty,hostname_port"`

	// Target is the upstream LLM provider origin to forward to
	// (e.g. "https://api.anthropic.com").
	Target string `yaml:"target" mapstructure:"target" validate:"omitempty,url"`

	// Mode is the enforcement posture: "monitor" (log only, never rewrite)
	// or "enforce" (rewrite/block per verdict). Defaults to "monitor".
	Mode string `yaml:"mode" mapstructure:"mode" validate:"omitempty,oneof=monitor enforce"`

	// MaxBodyBytes caps the request body the proxy will forward.
	// Defaults to 10 MiB.
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"omitempty,min=1"`

	// Timeout is the upstream request timeout (e.g. "60s").
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"omitempty"`
}

// RulesConfig configures rule set loading.
type RulesConfig struct {
	// Path is the YAML file the rule set is loaded from.
	// Defaults to "./sentinelgate-rules.yaml".
	Path string `yaml:"path" mapstructure:"path"`
}

// AuditFileConfig configures the file-based verdict audit log.
type AuditFileConfig struct {
	// Dir is the directory verdict records are written to.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// RetentionDays is the number of days to keep audit files. Defaults to 7.
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days"`
	// MaxFileSizeMB is the per-file size cap before rotation. Defaults to 100.
	MaxFileSizeMB int `yaml:"max_file_size_mb" mapstructure:"max_file_size_mb"`
	// CacheSize is the number of recent records kept in the in-memory ring
	// buffer for the admin UI. Defaults to 1000.
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"`
}

// AlertConfig configures the outbound alert dispatcher's three transports.
// Each transport is optional; a transport with no credentials is disabled.
type AlertConfig struct {
	// MailboxSize bounds the in-memory alert queue. Defaults to 256.
	MailboxSize int `yaml:"mailbox_size" mapstructure:"mailbox_size" validate:"omitempty,min=1"`

	Telegram TelegramAlertConfig `yaml:"telegram" mapstructure:"telegram"`
	Slack    SlackAlertConfig    `yaml:"slack" mapstructure:"slack"`
	Discord  DiscordAlertConfig  `yaml:"discord" mapstructure:"discord"`
}

// TelegramAlertConfig configures Telegram bot alert delivery.
type TelegramAlertConfig struct {
	BotToken string `yaml:"bot_token" mapstructure:"bot_token"`
	ChatID   string `yaml:"chat_id" mapstructure:"chat_id"`
}

// SlackAlertConfig configures Slack incoming-webhook alert delivery.
type SlackAlertConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url" validate:"omitempty,url"`
}

// DiscordAlertConfig configures Discord incoming-webhook alert delivery.
type DiscordAlertConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url" validate:"omitempty,url"`
}

// AdminConfig configures the control-plane API's authentication.
type AdminConfig struct {
	// TokenHash is the argon2id hash of the static bearer token required on
	// write endpoints (rule CRUD, proxy mode changes). Empty disables auth,
	// intended only for DevMode.
	TokenHash string `yaml:"token_hash" mapstructure:"token_hash"`
}

// SetDevDefaults applies permissive defaults for development mode. Applied
// before validation so required fields are satisfied without a config file.
func (c *HarnessConfig) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	if c.Proxy.Mode == "" {
		c.Proxy.Mode = "monitor"
	}
	if c.Audit.Dir == "" {
		c.Audit.Dir = "./audit"
	}
}

// SetDefaults applies sensible default values to the configuration.
func (c *HarnessConfig) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8090"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Proxy.ListenAddr == "" {
		c.Proxy.ListenAddr = "127.0.0.1:8787"
	}
	if c.Proxy.Mode == "" {
		c.Proxy.Mode = "monitor"
	}
	if c.Proxy.MaxBodyBytes == 0 {
		c.Proxy.MaxBodyBytes = 10 << 20
	}
	if c.Proxy.Timeout == "" {
		c.Proxy.Timeout = "60s"
	}

	if c.Rules.Path == "" {
		c.Rules.Path = "./sentinelgate-rules.yaml"
	}

	if c.Audit.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Audit.Dir = home + "/.sentinel-gate/audit"
		}
	}
	if c.Audit.RetentionDays == 0 {
		c.Audit.RetentionDays = 7
	}
	if c.Audit.MaxFileSizeMB == 0 {
		c.Audit.MaxFileSizeMB = 100
	}
	if c.Audit.CacheSize == 0 {
		c.Audit.CacheSize = 1000
	}

	if c.Alert.MailboxSize == 0 {
		c.Alert.MailboxSize = 256
	}
}
