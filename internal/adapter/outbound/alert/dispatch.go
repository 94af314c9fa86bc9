// Package alert dispatches fire-and-forget notifications to Telegram, Slack,
// and Discord when the rule engine reaches Alert or CriticalAlert (spec §4.1,
// §9 "Alerting is fire-and-forget"). A slow or unreachable webhook must never
// add latency to the proxy's request path, so sends happen on a single
// background consumer draining a bounded mailbox; a full mailbox drops the
// alert and counts it rather than blocking the caller.
package alert

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/Sentinel-Gate/Sentinelgate/internal/config"
	"github.com/Sentinel-Gate/Sentinelgate/internal/domain/rules"
)

// Notice is one alert-worthy verdict, handed to the dispatcher's mailbox.
type Notice struct {
	Verdict  rules.Verdict
	ToolName string
}

// transport sends one formatted message to one destination.
type transport interface {
	name() string
	send(ctx context.Context, client *http.Client, msg string) error
}

// Dispatcher owns the bounded mailbox and the background consumer goroutine.
type Dispatcher struct {
	mailbox    chan Notice
	client     *http.Client
	transports []transport
	log        *slog.Logger

	dropped atomic.Int64

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewDispatcher builds a Dispatcher from the configured transports. A
// transport with no credentials is omitted entirely. Returns nil if no
// transport is configured (dispatch is then a silent no-op).
func NewDispatcher(cfg config.AlertConfig, log *slog.Logger) *Dispatcher {
	var transports []transport
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		transports = append(transports, telegramTransport{botToken: cfg.Telegram.BotToken, chatID: cfg.Telegram.ChatID})
	}
	if cfg.Slack.WebhookURL != "" {
		transports = append(transports, slackTransport{webhookURL: cfg.Slack.WebhookURL})
	}
	if cfg.Discord.WebhookURL != "" {
		transports = append(transports, discordTransport{webhookURL: cfg.Discord.WebhookURL})
	}
	if len(transports) == 0 {
		return nil
	}

	size := cfg.MailboxSize
	if size <= 0 {
		size = 256
	}
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		mailbox: make(chan Notice, size),
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		transports: transports,
		log:        log,
	}
}

// Start launches the background consumer. Stop must be called to release it.
func (d *Dispatcher) Start(ctx context.Context) {
	if d == nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.wg.Add(1)
	go d.run(ctx)
}

// Stop cancels the consumer and waits for the in-flight send, if any, to
// finish or time out.
func (d *Dispatcher) Stop() {
	if d == nil || d.cancel == nil {
		return
	}
	d.cancel()
	d.wg.Wait()
}

// Dropped returns the number of alerts discarded because the mailbox was full.
func (d *Dispatcher) Dropped() int64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Notify enqueues an alert-worthy verdict. Never blocks: a full mailbox drops
// the notice and increments the drop counter. A nil Dispatcher is a valid
// no-op target, so callers don't need to guard every call site on whether
// alerting is configured.
func (d *Dispatcher) Notify(n Notice) {
	if d == nil {
		return
	}
	select {
	case d.mailbox <- n:
	default:
		d.dropped.Add(1)
		d.log.Warn("alert mailbox full, dropping notice", "tool", n.ToolName, "rule", n.Verdict.Matched)
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-d.mailbox:
			d.deliver(ctx, n)
		}
	}
}

// deliver fans the notice out to every configured transport concurrently and
// waits for all of them, so one slow webhook doesn't delay the others.
func (d *Dispatcher) deliver(ctx context.Context, n Notice) {
	msg := formatMessage(n)

	var wg sync.WaitGroup
	for _, t := range d.transports {
		t := t
		wg.Add(1)
		go func() {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := t.send(sendCtx, d.client, msg); err != nil {
				d.log.Warn("alert send failed", "transport", t.name(), "error", err)
			}
		}()
	}
	wg.Wait()
}

// formatMessage renders a verdict as a plain-text alert body shared by all
// three transports; each transport wraps it in its own payload envelope.
func formatMessage(n Notice) string {
	v := n.Verdict
	return "Sentinel Gate alert\n" +
		"Risk: " + v.Risk.String() + "\n" +
		"Recommendation: " + v.Recommendation.String() + "\n" +
		"Tool: " + n.ToolName + "\n" +
		"Target: " + v.Action.Target + "\n" +
		"Content: " + truncate(v.Action.Content, 200) + "\n" +
		"Matched rules: " + joinOrNone(v.Matched) + "\n" +
		"Explanation: " + v.Explanation
}

// truncate shortens s to at most max bytes, backing off to the nearest rune
// boundary rather than splitting a multi-byte UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	end := max
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end] + "..."
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	out := names[0]
	for _, n := range names[1:] {
		out += ", " + n
	}
	return out
}
