package admin

import (
	"encoding/json"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Sentinel-Gate/Sentinelgate/internal/config"
	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/proxy"
)

// ProxyStatusResponse is the JSON body of GET /api/proxy/status.
type ProxyStatusResponse struct {
	Target string `json:"target"`
	Mode   string `json:"mode"`
}

func (s *Server) handleProxyStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ProxyStatusResponse{
		Target: s.transport.Target(),
		Mode:   string(s.transport.Mode()),
	})
}

// proxyConfigRequest is the JSON body of PUT /api/proxy/config. Only Mode is
// mutable at runtime; changing Target requires a restart since the upstream
// client and TLS config are built once in NewHTTPTransport.
type proxyConfigRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleProxyConfig(w http.ResponseWriter, r *http.Request) {
	var req proxyConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	switch proxy.Mode(req.Mode) {
	case proxy.ModeMonitor, proxy.ModeEnforce:
		s.transport.SetMode(proxy.Mode(req.Mode))
	default:
		respondError(w, http.StatusBadRequest, "mode must be \"monitor\" or \"enforce\"")
		return
	}

	s.cfgMu.Lock()
	s.cfg.Proxy.Mode = req.Mode
	s.cfgMu.Unlock()

	respondJSON(w, http.StatusOK, ProxyStatusResponse{
		Target: s.transport.Target(),
		Mode:   string(s.transport.Mode()),
	})
}

// Provider describes an LLM API dialect the proxy can inspect.
type Provider struct {
	Dialect    string `json:"dialect"`
	Configured bool   `json:"configured"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	target := s.transport.Target()
	providers := []Provider{
		{Dialect: "anthropic", Configured: target != ""},
		{Dialect: "openai", Configured: target != ""},
		{Dialect: "gemini", Configured: target != ""},
	}
	respondJSON(w, http.StatusOK, providers)
}

// alertsConfigView is the JSON shape of GET/PUT /api/alerts/config. Webhook
// URLs and bot tokens are write-only over this API: GET redacts them so a
// client can't exfiltrate credentials by reading the config back.
type alertsConfigView struct {
	MailboxSize     int    `json:"mailbox_size"`
	TelegramEnabled bool   `json:"telegram_enabled"`
	TelegramChatID  string `json:"telegram_chat_id,omitempty"`
	SlackEnabled    bool   `json:"slack_enabled"`
	DiscordEnabled  bool   `json:"discord_enabled"`
}

func (s *Server) handleGetAlertsConfig(w http.ResponseWriter, r *http.Request) {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()

	a := s.cfg.Alert
	respondJSON(w, http.StatusOK, alertsConfigView{
		MailboxSize:     a.MailboxSize,
		TelegramEnabled: a.Telegram.BotToken != "",
		TelegramChatID:  a.Telegram.ChatID,
		SlackEnabled:    a.Slack.WebhookURL != "",
		DiscordEnabled:  a.Discord.WebhookURL != "",
	})
}

// alertsConfigUpdate is the PUT request body. Unlike alertsConfigView it
// carries the actual secrets being set; omitted fields leave the existing
// value untouched.
type alertsConfigUpdate struct {
	MailboxSize       *int    `json:"mailbox_size,omitempty"`
	TelegramBotToken  *string `json:"telegram_bot_token,omitempty"`
	TelegramChatID    *string `json:"telegram_chat_id,omitempty"`
	SlackWebhookURL   *string `json:"slack_webhook_url,omitempty"`
	DiscordWebhookURL *string `json:"discord_webhook_url,omitempty"`
}

func (s *Server) handlePutAlertsConfig(w http.ResponseWriter, r *http.Request) {
	var req alertsConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	s.cfgMu.Lock()
	if req.MailboxSize != nil {
		s.cfg.Alert.MailboxSize = *req.MailboxSize
	}
	if req.TelegramBotToken != nil {
		s.cfg.Alert.Telegram.BotToken = *req.TelegramBotToken
	}
	if req.TelegramChatID != nil {
		s.cfg.Alert.Telegram.ChatID = *req.TelegramChatID
	}
	if req.SlackWebhookURL != nil {
		s.cfg.Alert.Slack.WebhookURL = *req.SlackWebhookURL
	}
	if req.DiscordWebhookURL != nil {
		s.cfg.Alert.Discord.WebhookURL = *req.DiscordWebhookURL
	}
	cfgCopy := *s.cfg
	s.cfgMu.Unlock()

	if path := config.ConfigFileUsed(); path != "" {
		data, err := yaml.Marshal(cfgCopy)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	// The alert dispatcher's transports are built once in NewDispatcher; a
	// changed webhook/token only takes effect after the next restart.
	s.handleGetAlertsConfig(w, r)
}
