package slackclient

import (
	"context"
	"fmt"
	"strings"
)

type reactionRequest struct {
	Channel   string `json:"channel"`
	Timestamp string `json:"timestamp"`
	Name      string `json:"name"`
}

// AddReaction puts an emoji reaction on a message. Callers treat this
// as best effort.
func (c *Client) AddReaction(ctx context.Context, channelID, ts, emoji string) error {
	return c.toggleReaction(ctx, "reactions.add", channelID, ts, emoji)
}

// RemoveReaction removes an emoji reaction from a message. Removing a
// reaction that is not there reports no_reaction; callers ignore it.
func (c *Client) RemoveReaction(ctx context.Context, channelID, ts, emoji string) error {
	return c.toggleReaction(ctx, "reactions.remove", channelID, ts, emoji)
}

func (c *Client) toggleReaction(ctx context.Context, method, channelID, ts, emoji string) error {
	if err := c.ready(); err != nil {
		return err
	}
	channelID = strings.TrimSpace(channelID)
	ts = strings.TrimSpace(ts)
	emoji = strings.TrimSpace(emoji)
	if channelID == "" || ts == "" || emoji == "" {
		return fmt.Errorf("channel_id, timestamp and name are required")
	}
	_, _, _, err := c.callAPI(ctx, method, reactionRequest{
		Channel:   channelID,
		Timestamp: ts,
		Name:      emoji,
	})
	return err
}
