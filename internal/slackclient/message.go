package slackclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type postMessageRequest struct {
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

type updateMessageRequest struct {
	Channel string `json:"channel"`
	TS      string `json:"ts"`
	Text    string `json:"text"`
}

// PostMessage posts a message into a channel (threaded when threadTS is
// set) and returns the new message timestamp. Rate limits and 5xx
// responses are retried up to 3 times with the server-suggested delay.
func (c *Client) PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return "", fmt.Errorf("channel_id is required")
	}
	text = c.truncate(text)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text is required")
	}

	payload := postMessageRequest{
		Channel:  channelID,
		Text:     text,
		ThreadTS: strings.TrimSpace(threadTS),
	}
	const maxAttempts = 3
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, status, headers, err := c.callAPI(ctx, "chat.postMessage", payload)
		if err == nil {
			return out.TS, nil
		}
		lastErr = err

		if attempt >= maxAttempts {
			break
		}
		if status == 0 {
			status = http.StatusBadGateway
		}
		wait, retryable := retryDelay(status, headers, attempt)
		if !retryable {
			break
		}
		if err := sleepWithContext(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

// UpdateMessage rewrites an existing message in place. Over-length text
// is truncated here, with a visible notice, rather than trusting the
// API to reject it cleanly.
func (c *Client) UpdateMessage(ctx context.Context, channelID, ts, text string) error {
	if err := c.ready(); err != nil {
		return err
	}
	channelID = strings.TrimSpace(channelID)
	ts = strings.TrimSpace(ts)
	if channelID == "" {
		return fmt.Errorf("channel_id is required")
	}
	if ts == "" {
		return fmt.Errorf("ts is required")
	}

	payload := updateMessageRequest{
		Channel: channelID,
		TS:      ts,
		Text:    c.truncate(text),
	}
	_, _, _, err := c.callAPI(ctx, "chat.update", payload)
	return err
}

func (c *Client) truncate(text string) string {
	max := c.MaxMessageLen()
	if len(text) <= max {
		return text
	}
	return text[:max] + truncationNotice
}
