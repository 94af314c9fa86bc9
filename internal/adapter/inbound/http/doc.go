// Package http implements the inbound reverse proxy adapter described in
// spec §4.3: a single-target HTTPS reverse proxy that sits between an
// agent runtime and its configured LLM provider, inspecting and
// rewriting tool-invocation sites found in provider responses.
//
// # Usage
//
// Build and start the proxy:
//
//	transport, err := http.NewHTTPTransport(cfg.Proxy, engine, auditStore, dispatcher, logger)
//	transport = transport.WithHealthChecker(healthChecker)
//	err = transport.Start(ctx)
//
// # Request flow
//
// Every request arriving on the configured listen address is forwarded
// unmodified (headers copied verbatim except the Host header and
// hop-by-hop headers, which are stripped per RFC 7230 §6.1) to the
// configured upstream origin. Responses on routes that match a known
// LLM-completion endpoint (spec §4.3.2) are parsed for their provider
// dialect (Anthropic, OpenAI, or Gemini) and scanned for tool-use sites;
// matches are evaluated against the rule engine and, in Enforce mode,
// rewritten in place before being returned to the caller. Non-matching
// routes and undetectable bodies are forwarded byte-for-byte.
//
// # Security properties
//
//   - TLS 1.2 minimum on the outbound connection to the provider
//   - Hop-by-hop header stripping in both directions
//   - X-Forwarded-For/-Proto/-Host injected on the upstream request
//   - Redirects from upstream are surfaced to the client rather than
//     followed transparently (CheckRedirect returns ErrUseLastResponse)
//
// # Observability
//
// The adapter exposes /metrics (Prometheus) and, when a HealthChecker is
// attached, /health. Every forwarded request increments
// sentinelgate_proxy_requests_total{dialect,mode}; every rule hit
// increments sentinelgate_proxy_verdicts_total{recommendation} and is
// appended to the audit store.
package http
