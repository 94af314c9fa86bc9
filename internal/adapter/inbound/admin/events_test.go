package admin

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Sentinel-Gate/Sentinelgate/internal/adapter/outbound/audit"
	domainaudit "github.com/Sentinel-Gate/Sentinelgate/internal/domain/audit"
	"github.com/Sentinel-Gate/Sentinelgate/internal/config"
)

func TestHandleEventsPushesNewVerdicts(t *testing.T) {
	store, err := audit.NewFileAuditStore(audit.AuditFileConfig{Dir: t.TempDir(), CacheSize: 10}, slog.Default())
	if err != nil {
		t.Fatalf("NewFileAuditStore: %v", err)
	}
	defer store.Close()

	s := newTestServer(t, &config.HarnessConfig{})
	s.auditStore = store

	srv := httptest.NewServer(http.HandlerFunc(s.handleEvents))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if err := store.Append(context.Background(), domainaudit.VerdictRecord{
		Timestamp:      time.Now(),
		RequestID:      "req-1",
		ToolName:       "exec",
		Risk:           "critical",
		Recommendation: "block",
		Decision:       "blocked",
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var received domainaudit.VerdictRecord
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if received.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want req-1", received.RequestID)
	}
}
