// Package http provides the HTTP transport adapter for the proxy.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sentinel-Gate/Sentinelgate/internal/adapter/outbound/alert"
	"github.com/Sentinel-Gate/Sentinelgate/internal/adapter/outbound/audit"
	"github.com/Sentinel-Gate/Sentinelgate/internal/config"
	domainaudit "github.com/Sentinel-Gate/Sentinelgate/internal/domain/audit"
	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/proxy"
	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/rules"
)

// hopByHopHeaders are stripped before forwarding in either direction
// (RFC 7230 §6.1), same list the teacher's gateway transport used.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// HTTPTransport is the single-target reverse proxy adapter described in
// spec §4.3.1: it listens on one address, forwards every request to one
// upstream LLM provider, and inspects/rewrites tool-use fragments in the
// response on the way back per the provider dialect detected.
type HTTPTransport struct {
	target        *url.URL
	client        *http.Client
	mode          atomic.Pointer[proxy.Mode]
	engine        *rules.Engine
	auditStore    *audit.FileAuditStore
	dispatcher    *alert.Dispatcher
	metrics       *Metrics
	maxBody       int64
	addr          string
	logger        *slog.Logger
	healthChecker *HealthChecker

	server *http.Server
}

// Mode returns the proxy's current enforcement posture. Safe for
// concurrent use; the control-plane API may change it at runtime.
func (t *HTTPTransport) Mode() proxy.Mode {
	if m := t.mode.Load(); m != nil {
		return *m
	}
	return proxy.ModeMonitor
}

// SetMode atomically swaps the proxy's enforcement posture (spec §6
// `PUT /api/proxy/config`).
func (t *HTTPTransport) SetMode(mode proxy.Mode) {
	t.mode.Store(&mode)
}

// Target returns the configured upstream origin.
func (t *HTTPTransport) Target() string {
	return t.target.String()
}

// NewHTTPTransport builds the reverse proxy adapter from a ProxyConfig and
// its wired collaborators. engine, auditStore, and dispatcher may be nil in
// tests; dispatcher nil means alerting is disabled.
func NewHTTPTransport(cfg config.ProxyConfig, engine *rules.Engine, auditStore *audit.FileAuditStore, dispatcher *alert.Dispatcher, logger *slog.Logger) (*HTTPTransport, error) {
	target, err := url.Parse(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("proxy: invalid target %q: %w", cfg.Target, err)
	}

	timeout := 60 * time.Second
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err == nil {
			timeout = d
		}
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}

	if logger == nil {
		logger = slog.Default()
	}

	t := &HTTPTransport{
		target: target,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		engine:     engine,
		auditStore: auditStore,
		dispatcher: dispatcher,
		maxBody:    maxBody,
		addr:       cfg.ListenAddr,
		logger:     logger,
	}
	mode := proxy.Mode(cfg.Mode)
	if mode == "" {
		mode = proxy.ModeMonitor
	}
	t.mode.Store(&mode)
	return t, nil
}

// WithHealthChecker attaches the /health endpoint handler.
func (t *HTTPTransport) WithHealthChecker(hc *HealthChecker) *HTTPTransport {
	t.healthChecker = hc
	return t
}

// Start begins accepting connections and forwarding them to the configured
// upstream. It blocks until ctx is cancelled or the listener fails.
func (t *HTTPTransport) Start(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	t.metrics = NewMetrics(reg)

	var handler http.Handler = http.HandlerFunc(t.forward)
	handler = RequestIDMiddleware(t.logger)(handler)
	handler = MetricsMiddleware(t.metrics)(handler)

	mux := http.NewServeMux()
	if t.healthChecker != nil {
		mux.Handle("/health", t.healthChecker.Handler())
	}
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/", handler)

	t.server = &http.Server{
		Addr:    t.addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		t.logger.Info("starting proxy listener", "addr", t.addr, "target", t.target.String(), "mode", t.Mode())
		err := t.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

func (t *HTTPTransport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	t.logger.Info("shutting down proxy listener")
	return t.server.Shutdown(ctx)
}

// Close gracefully shuts down the transport.
func (t *HTTPTransport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}

// forward builds the upstream request, executes it, inspects the response
// body when the route matches a known LLM-completion endpoint, and copies
// the (possibly rewritten) response back to the client.
func (t *HTTPTransport) forward(w http.ResponseWriter, r *http.Request) {
	requestID, _ := r.Context().Value(RequestIDKey).(string)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	upstreamReq, err := t.buildUpstreamRequest(r)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadGateway)
		return
	}

	resp, err := t.client.Do(upstreamReq)
	if err != nil {
		t.logger.Warn("upstream request failed", "error", err, "request_id", requestID)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	inspect := proxy.ShouldInspect(r.Method, r.URL.Path)

	dialectLabel := "unknown"
	if inspect && isEventStream(resp.Header.Get("Content-Type")) {
		dialectLabel = t.forwardStream(w, resp, requestID)
	} else if inspect {
		dialectLabel = t.forwardUnary(w, resp, requestID)
	} else {
		copyHeaders(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	}

	if t.metrics != nil {
		t.metrics.ProxyRequestsTotal.WithLabelValues(dialectLabel, string(t.Mode())).Inc()
	}
}

func (t *HTTPTransport) forwardUnary(w http.ResponseWriter, resp *http.Response, requestID string) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody))
	if err != nil {
		copyHeaders(w.Header(), resp.Header)
		w.WriteHeader(resp.StatusCode)
		return "unknown"
	}

	out, hits := proxy.InterceptUnary(body, t.Mode(), t.engine)
	t.recordHits(hits, requestID, "")

	copyHeaders(w.Header(), resp.Header)
	if !bytes.Equal(out, body) {
		w.Header().Del("Content-Length")
		w.Header().Del("Transfer-Encoding")
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(out)
	return dialectOf(body)
}

func (t *HTTPTransport) forwardStream(w http.ResponseWriter, resp *http.Response, requestID string) string {
	copyHeaders(w.Header(), resp.Header)
	w.Header().Del("Content-Length")
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)
	interceptor := proxy.NewStreamInterceptor(t.Mode(), t.engine)

	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			out := interceptor.Feed(buf[:n])
			if len(out) > 0 {
				_, _ = w.Write(out)
				if flusher != nil {
					flusher.Flush()
				}
			}
		}
		if err != nil {
			if tail := interceptor.Close(); len(tail) > 0 {
				_, _ = w.Write(tail)
			}
			break
		}
	}

	t.recordHits(interceptor.Hits, requestID, "")
	return "stream"
}

// recordHits turns every rule hit into an audit record and notifies the
// alert dispatcher for alert-worthy recommendations.
func (t *HTTPTransport) recordHits(hits []rules.HitRecord, requestID, sessionID string) {
	if len(hits) == 0 {
		return
	}
	now := time.Now()
	records := make([]domainaudit.VerdictRecord, 0, len(hits))
	for _, hit := range hits {
		decision := "forward"
		if t.Mode() == proxy.ModeEnforce && hit.Action.Blocking() {
			decision = "blocked"
		}
		records = append(records, domainaudit.VerdictRecord{
			Timestamp:      now,
			RequestID:      requestID,
			SessionID:      sessionID,
			ToolName:       hit.ToolName,
			SiteKey:        hit.SiteKey,
			Risk:           hit.Risk.String(),
			Recommendation: hit.Action.String(),
			Matched:        []string{hit.RuleName},
			Explanation:    hit.Reason,
			Decision:       decision,
		})

		if t.metrics != nil {
			t.metrics.ProxyVerdictsTotal.WithLabelValues(hit.Action.String()).Inc()
		}

		if t.dispatcher != nil && (hit.Action == rules.RecommendAlert || hit.Action == rules.RecommendCriticalAlert) {
			t.dispatcher.Notify(alert.Notice{
				Verdict: rules.Verdict{
					Matched:        []string{hit.RuleName},
					Risk:           hit.Risk,
					Recommendation: hit.Action,
					Explanation:    hit.Reason,
				},
				ToolName: hit.ToolName,
			})
		}
	}

	if t.auditStore != nil {
		if err := t.auditStore.Append(context.Background(), records...); err != nil {
			t.logger.Warn("audit append failed", "error", err)
			if t.metrics != nil {
				t.metrics.AuditDropsTotal.Add(float64(len(records)))
			}
		}
	}
}

func (t *HTTPTransport) buildUpstreamRequest(r *http.Request) (*http.Request, error) {
	upstreamURL := *t.target
	upstreamURL.Path = singleJoiningSlash(t.target.Path, r.URL.Path)
	upstreamURL.RawQuery = r.URL.RawQuery

	var body io.Reader = io.LimitReader(r.Body, t.maxBody)
	req, err := http.NewRequestWithContext(r.Context(), r.Method, upstreamURL.String(), body)
	if err != nil {
		return nil, err
	}

	copyHeaders(req.Header, r.Header)
	req.Header.Set("Host", t.target.Host)
	req.Host = t.target.Host

	if clientIP, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		req.Header.Set("X-Forwarded-For", clientIP)
	}
	req.Header.Set("X-Forwarded-Proto", schemeOf(r))
	req.Header.Set("X-Forwarded-Host", r.Host)

	return req, nil
}

func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		if isHopByHop(k) {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

func isHopByHop(header string) bool {
	for _, h := range hopByHopHeaders {
		if strings.EqualFold(h, header) {
			return true
		}
	}
	return false
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}

func schemeOf(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func isEventStream(contentType string) bool {
	return strings.HasPrefix(contentType, "text/event-stream")
}

func dialectOf(body []byte) string {
	switch {
	case bytes.Contains(body, []byte(`"type":"message"`)) || bytes.Contains(body, []byte(`"tool_use"`)):
		return "anthropic"
	case bytes.Contains(body, []byte(`"choices"`)):
		return "openai"
	case bytes.Contains(body, []byte(`"candidates"`)):
		return "gemini"
	default:
		return "unknown"
	}
}
