package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// discordTransport delivers alerts via a Discord incoming webhook.
type discordTransport struct {
	webhookURL string
}

func (t discordTransport) name() string { return "discord" }

func (t discordTransport) send(ctx context.Context, client *http.Client, msg string) error {
	// Discord caps message content at 2000 characters; truncate defensively
	// since the shared formatter doesn't know the destination's limit.
	content := msg
	if len(content) > 1900 {
		content = content[:1900] + "..."
	}

	body, err := json.Marshal(map[string]any{"content": content})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord: http status %d", resp.StatusCode)
	}
	return nil
}
