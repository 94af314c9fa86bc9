// Package admin implements the control-plane HTTP API (spec §6): rule
// CRUD, proxy status/mode control, provider/alert configuration, and a
// live event feed, all behind a single static bearer token.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alexedwards/argon2id"

	sghttp "github.com/Sentinel-Gate/Sentinelgate/internal/adapter/inbound/http"
	"github.com/Sentinel-Gate/Sentinelgate/internal/adapter/outbound/alert"
	"github.com/Sentinel-Gate/Sentinelgate/internal/adapter/outbound/audit"
	"github.com/Sentinel-Gate/Sentinelgate/internal/config"
	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/rules"
)

// Server serves the control-plane API described in spec §6.
type Server struct {
	cfg        *config.HarnessConfig
	store      *rules.Store
	auditStore *audit.FileAuditStore
	dispatcher *alert.Dispatcher
	transport  *sghttp.HTTPTransport
	logger     *slog.Logger

	// cfgMu guards reads/writes of cfg.Alert made through the control-plane
	// API, since the proxy and admin listeners share the same *HarnessConfig.
	cfgMu sync.RWMutex

	server *http.Server
}

// NewServer builds the control-plane API server. transport is the proxy
// adapter whose mode and target are surfaced/controlled via
// /api/proxy/status and /api/proxy/config.
func NewServer(cfg *config.HarnessConfig, store *rules.Store, auditStore *audit.FileAuditStore, dispatcher *alert.Dispatcher, transport *sghttp.HTTPTransport, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:        cfg,
		store:      store,
		auditStore: auditStore,
		dispatcher: dispatcher,
		transport:  transport,
		logger:     logger,
	}
}

// Start begins accepting control-plane connections. It blocks until ctx is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.requireAuth(s.handleStatus))
	mux.HandleFunc("GET /api/stats", s.requireAuth(s.handleStats))

	mux.HandleFunc("GET /api/rules", s.requireAuth(s.handleListRules))
	mux.HandleFunc("POST /api/rules", s.requireAuth(s.handleCreateRule))
	mux.HandleFunc("PUT /api/rules/{name}", s.requireAuth(s.handleUpdateRule))
	mux.HandleFunc("DELETE /api/rules/{name}", s.requireAuth(s.handleDeleteRule))
	mux.HandleFunc("POST /api/rules/test", s.requireAuth(s.handleTestRule))

	mux.HandleFunc("GET /api/proxy/status", s.requireAuth(s.handleProxyStatus))
	mux.HandleFunc("PUT /api/proxy/config", s.requireAuth(s.handleProxyConfig))

	mux.HandleFunc("GET /api/providers", s.requireAuth(s.handleProviders))

	mux.HandleFunc("GET /api/alerts/config", s.requireAuth(s.handleGetAlertsConfig))
	mux.HandleFunc("PUT /api/alerts/config", s.requireAuth(s.handlePutAlertsConfig))

	mux.HandleFunc("GET /ws/events", s.requireAuth(s.handleEvents))

	s.server = &http.Server{
		Addr:    s.cfg.Server.HTTPAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting control-plane listener", "addr", s.cfg.Server.HTTPAddr)
		err := s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Close()
	case err := <-errCh:
		return err
	}
}

// Close gracefully shuts down the control-plane listener.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// requireAuth enforces the static bearer token on every route except when
// DevMode is set (local iteration, no config file required) or no token
// hash is configured. Protected-rule write rejection happens in the
// individual rule handlers per spec §6 ("Protected rules return 403").
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.DevMode || s.cfg.Admin.TokenHash == "" {
			next(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		match, err := argon2id.ComparePasswordAndHash(token, s.cfg.Admin.TokenHash)
		if err != nil || !match {
			respondError(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return strings.TrimPrefix(h, prefix), true
}
