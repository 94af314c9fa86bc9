package rules

import (
	"fmt"
	"regexp"
)

// templateDef pairs a fixed description with a pure function of
// TemplateParams returning the expanded regex pattern set and the
// template's default applies_to, or an error for missing required params;
// the catalog is modeled on the reference rule engine's template
// expansion. Expansion MUST be deterministic: same params, same output,
// every time (spec §8 universal invariant).
type templateDef struct {
	description string
	expand      func(p TemplateParams) (patterns []string, appliesTo []ActionKind, err error)
}

// templateCatalog is the 25-entry template catalog of spec §6. Each entry
// expands at compile time into concrete regexes (Compile in compile.go).
var templateCatalog = map[string]templateDef{
	"protect_path":            {description: "protects a specific path from writes or deletes", expand: expandProtectPath},
	"prevent_delete":          {description: "prevents deletion of the given paths", expand: expandPreventDelete},
	"prevent_overwrite":       {description: "prevents overwriting the given paths", expand: expandPreventOverwrite},
	"block_hidden_files":      {description: "blocks writes to dotfiles", expand: expandBlockHiddenFiles},
	"block_command":           {description: "blocks the given shell commands", expand: expandBlockCommand},
	"block_sudo":              {description: "blocks privilege escalation via sudo/su/doas", expand: expandBlockSudo},
	"block_package_install":   {description: "blocks package manager install operations", expand: expandBlockPackageInstall},
	"block_service_control":   {description: "blocks service manager start/stop/restart", expand: expandBlockServiceControl},
	"block_network_tools":     {description: "blocks raw network/socket tooling", expand: expandBlockNetworkTools},
	"block_compiler":          {description: "blocks invoking a compiler/toolchain directly", expand: expandBlockCompiler},
	"prevent_exfiltration":    {description: "blocks uploading local content to a remote endpoint", expand: expandPreventExfiltration},
	"protect_secrets":         {description: "protects credential and secret material", expand: expandProtectSecrets},
	"protect_database":        {description: "protects database files and connection strings", expand: expandProtectDatabase},
	"protect_git":             {description: "protects git internals from destructive operations", expand: expandProtectGit},
	"protect_system_config":   {description: "protects system configuration files", expand: expandProtectSystemConfig},
	"block_disk_operations":   {description: "blocks raw disk/partition operations", expand: expandBlockDiskOperations},
	"block_user_management":   {description: "blocks user/group account management", expand: expandBlockUserManagement},
	"block_cron_modification": {description: "blocks modification of scheduled tasks", expand: expandBlockCronModification},
	"block_firewall_changes":  {description: "blocks firewall rule changes", expand: expandBlockFirewallChanges},
	"block_app":               {description: "blocks launching the given applications", expand: expandBlockApp},
	"block_docker":            {description: "blocks container runtime administrative commands", expand: expandBlockDocker},
	"block_kill_process":      {description: "blocks killing or signaling processes", expand: expandBlockKillProcess},
	"block_port_open":         {description: "blocks opening a listening socket on the given ports", expand: expandBlockPortOpen},
	"block_ssh_connection":    {description: "blocks outbound SSH connections", expand: expandBlockSSHConnection},
	"block_dns_change":        {description: "blocks changes to DNS resolver configuration", expand: expandBlockDNSChange},
}

// fileActions returns the action kinds a path/content template applies to
// by default, covering read/write/delete since the spec's rules are
// evaluated against both content and target.
func fileActions() []ActionKind {
	return []ActionKind{KindFileRead, KindFileWrite, KindFileDelete}
}

func execActions() []ActionKind {
	return []ActionKind{KindExec}
}

func httpActions() []ActionKind {
	return []ActionKind{KindHTTPRequest}
}

// quoteAlternatives joins literal strings into a non-capturing regex
// alternation, quoting each for literal matching.
func quoteAlternatives(items []string) string {
	if len(items) == 0 {
		return ""
	}
	out := "(?:"
	for i, s := range items {
		if i > 0 {
			out += "|"
		}
		out += regexp.QuoteMeta(s)
	}
	return out + ")"
}

func expandProtectPath(p TemplateParams) ([]string, []ActionKind, error) {
	paths := p.Paths
	if p.Path != "" {
		paths = append(paths, p.Path)
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("protect_path requires path or paths")
	}
	return []string{quoteAlternatives(paths)}, fileActions(), nil
}

func expandPreventDelete(p TemplateParams) ([]string, []ActionKind, error) {
	paths := p.Paths
	if p.Path != "" {
		paths = append(paths, p.Path)
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("prevent_delete requires path or paths")
	}
	return []string{quoteAlternatives(paths)}, []ActionKind{KindFileDelete}, nil
}

func expandPreventOverwrite(p TemplateParams) ([]string, []ActionKind, error) {
	paths := p.Paths
	if p.Path != "" {
		paths = append(paths, p.Path)
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("prevent_overwrite requires path or paths")
	}
	return []string{quoteAlternatives(paths)}, []ActionKind{KindFileWrite}, nil
}

func expandBlockHiddenFiles(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{`(^|/)\.[^/.][^/]*$`}, []ActionKind{KindFileWrite, KindFileDelete}, nil
}

func expandBlockCommand(p TemplateParams) ([]string, []ActionKind, error) {
	if len(p.Commands) == 0 {
		return nil, nil, fmt.Errorf("block_command requires commands")
	}
	return []string{`(^|[;&|\s])` + quoteAlternatives(p.Commands) + `(\s|$)`}, execActions(), nil
}

func expandBlockSudo(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{`(^|[;&|\s])(sudo|su|doas|pkexec)(\s|$)`}, execActions(), nil
}

func expandBlockPackageInstall(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{
		`\b(apt(-get)?|yum|dnf|apk|pacman|brew|pip3?|npm|yarn|pnpm|gem|cargo)\s+(install|add|-S)\b`,
	}, execActions(), nil
}

func expandBlockServiceControl(p TemplateParams) ([]string, []ActionKind, error) {
	ops := p.Operations
	if len(ops) == 0 {
		ops = []string{"start", "stop", "restart", "disable", "enable"}
	}
	return []string{
		`\b(systemctl|service|rc-service|launchctl)\s+` + quoteAlternatives(ops) + `\b`,
	}, execActions(), nil
}

func expandBlockNetworkTools(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{`\b(nc|ncat|netcat|socat|nmap|tcpdump|ettercap)\b`}, execActions(), nil
}

func expandBlockCompiler(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{`\b(gcc|g\+\+|clang|cc|ld|as)\b`}, execActions(), nil
}

func expandPreventExfiltration(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{
		`\b(curl|wget)\b.*(-T|--upload-file|-F|--data-binary)\b`,
		`\b(curl|wget)\b.*\|\s*(bash|sh)\b`,
	}, append(execActions(), httpActions()...), nil
}

func expandProtectSecrets(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{
		`(^|/)\.(env|netrc|npmrc|pypirc)$`,
		`(^|/)\.(ssh|gnupg|aws|gcloud|kube)/`,
		`(^|/)id_(rsa|ed25519|ecdsa)$`,
		`(?i)(api[_-]?key|secret|password|token|credential)s?\s*[:=]`,
	}, fileActions(), nil
}

func expandProtectDatabase(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{
		`\.(sqlite3?|db|mdb)$`,
		`(?i)(postgres|mysql|mongodb|redis)://`,
	}, fileActions(), nil
}

func expandProtectGit(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{
		`(^|/)\.git/`,
		`\bgit\s+(push\s+.*--force|reset\s+--hard|clean\s+-[a-z]*f|filter-branch|filter-repo)\b`,
	}, append(fileActions(), execActions()...), nil
}

func expandProtectSystemConfig(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{
		`(^|/)(etc/passwd|etc/shadow|etc/sudoers|etc/hosts|etc/fstab)$`,
		`(^|/)etc/`,
	}, fileActions(), nil
}

func expandBlockDiskOperations(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{`\b(dd|mkfs(\.\w+)?|fdisk|parted|shred|wipefs)\b`}, execActions(), nil
}

func expandBlockUserManagement(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{`\b(useradd|userdel|usermod|groupadd|groupdel|passwd)\b`}, execActions(), nil
}

func expandBlockCronModification(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{
		`\bcrontab\s+-[er]\b`,
		`(^|/)(etc/cron\.|etc/crontab|var/spool/cron)`,
	}, append(execActions(), fileActions()...), nil
}

func expandBlockFirewallChanges(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{`\b(iptables|nft|ufw|firewall-cmd|pfctl)\b`}, execActions(), nil
}

func expandBlockApp(p TemplateParams) ([]string, []ActionKind, error) {
	if len(p.Commands) == 0 {
		return nil, nil, fmt.Errorf("block_app requires commands")
	}
	return []string{`(^|[;&|\s])` + quoteAlternatives(p.Commands) + `(\s|$)`}, execActions(), nil
}

func expandBlockDocker(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{
		`\b(docker|podman)\s+(rm|rmi|system\s+prune|kill|exec.*--privileged)\b`,
		`--privileged\b`,
	}, execActions(), nil
}

func expandBlockKillProcess(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{`\b(kill|pkill|killall)\b`}, execActions(), nil
}

func expandBlockPortOpen(p TemplateParams) ([]string, []ActionKind, error) {
	ports := p.Patterns
	if len(ports) == 0 {
		return []string{`\b(nc\s+-l|python3?\s+-m\s+http\.server|ncat\s+-l)\b`}, execActions(), nil
	}
	return []string{`:(` + joinDigits(ports) + `)\b`}, execActions(), nil
}

func expandBlockSSHConnection(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{`\bssh\s+([\w.-]+@)?[\w.-]+\b`}, execActions(), nil
}

func expandBlockDNSChange(p TemplateParams) ([]string, []ActionKind, error) {
	return []string{
		`(^|/)etc/resolv\.conf$`,
		`\bresolvectl\b|\bsystemd-resolve\b`,
	}, append(fileActions(), execActions()...), nil
}

func joinDigits(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += "|"
		}
		out += regexp.QuoteMeta(s)
	}
	return out
}
