package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// slackTransport delivers alerts via a Slack incoming webhook.
type slackTransport struct {
	webhookURL string
}

func (t slackTransport) name() string { return "slack" }

func (t slackTransport) send(ctx context.Context, client *http.Client, msg string) error {
	body, err := json.Marshal(map[string]any{"text": msg})
	if err != nil {
		return fmt.Errorf("slack: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack: http status %d", resp.StatusCode)
	}
	return nil
}
