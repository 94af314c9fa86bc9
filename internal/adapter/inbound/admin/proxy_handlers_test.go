package admin

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/Sentinel-Gate/Sentinelgate/internal/config"
	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/proxy"
)

func TestHandleProxyStatusReportsTargetAndMode(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &config.HarnessConfig{})

	rec := doJSON(t, s.handleProxyStatus, http.MethodGet, "/api/proxy/status", nil, nil)
	var resp ProxyStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Mode != string(proxy.ModeMonitor) {
		t.Errorf("Mode = %q, want the default monitor mode", resp.Mode)
	}
}

func TestHandleProxyConfigSwitchesMode(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &config.HarnessConfig{})

	rec := doJSON(t, s.handleProxyConfig, http.MethodPut, "/api/proxy/config", proxyConfigRequest{Mode: "enforce"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	if s.transport.Mode() != proxy.ModeEnforce {
		t.Errorf("transport.Mode() = %v, want ModeEnforce after the config change", s.transport.Mode())
	}
}

func TestHandleProxyConfigRejectsInvalidMode(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &config.HarnessConfig{})

	rec := doJSON(t, s.handleProxyConfig, http.MethodPut, "/api/proxy/config", proxyConfigRequest{Mode: "bogus"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleProvidersReflectsConfiguredTarget(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &config.HarnessConfig{})

	rec := doJSON(t, s.handleProviders, http.MethodGet, "/api/providers", nil, nil)
	var providers []Provider
	if err := json.Unmarshal(rec.Body.Bytes(), &providers); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(providers) != 3 {
		t.Fatalf("expected 3 known dialects, got %d", len(providers))
	}
	for _, p := range providers {
		if !p.Configured {
			t.Errorf("provider %q should be Configured given a non-empty target", p.Dialect)
		}
	}
}

func TestHandleGetAlertsConfigRedactsSecrets(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &config.HarnessConfig{
		Alert: config.AlertConfig{
			MailboxSize: 64,
			Telegram:    config.TelegramAlertConfig{BotToken: "super-secret-token", ChatID: "123"},
			Slack:       config.SlackAlertConfig{WebhookURL: "https://hooks.slack.example/xyz"},
		},
	})

	rec := doJSON(t, s.handleGetAlertsConfig, http.MethodGet, "/api/alerts/config", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "super-secret-token") {
		t.Error("GET /api/alerts/config must never echo back the bot token")
	}

	var view alertsConfigView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !view.TelegramEnabled || view.TelegramChatID != "123" {
		t.Errorf("expected TelegramEnabled=true and ChatID passed through, got %+v", view)
	}
	if !view.SlackEnabled {
		t.Error("expected SlackEnabled=true given a configured webhook")
	}
	if view.DiscordEnabled {
		t.Error("expected DiscordEnabled=false with no webhook configured")
	}
}

func TestHandlePutAlertsConfigUpdatesOnlyProvidedFields(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &config.HarnessConfig{
		Alert: config.AlertConfig{MailboxSize: 10, Telegram: config.TelegramAlertConfig{ChatID: "old-chat"}},
	})

	newChat := "new-chat"
	rec := doJSON(t, s.handlePutAlertsConfig, http.MethodPut, "/api/alerts/config",
		alertsConfigUpdate{TelegramChatID: &newChat}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	s.cfgMu.RLock()
	got := s.cfg.Alert
	s.cfgMu.RUnlock()
	if got.Telegram.ChatID != "new-chat" {
		t.Errorf("Telegram.ChatID = %q, want new-chat", got.Telegram.ChatID)
	}
	if got.MailboxSize != 10 {
		t.Errorf("MailboxSize = %d, want the untouched original value 10", got.MailboxSize)
	}
}
