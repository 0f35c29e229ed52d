package slackclient

import (
	"context"

	"github.com/paulocesarias/slack-bots/internal/stream"
)

// ThreadSink binds a Client to one channel thread and adapts it to the
// aggregator's sink contract.
type ThreadSink struct {
	Client   *Client
	Channel  string
	ThreadTS string
}

func (s *ThreadSink) Create(ctx context.Context, text string) (stream.MessageHandle, error) {
	ts, err := s.Client.PostMessage(ctx, s.Channel, s.ThreadTS, text)
	if err != nil {
		return "", err
	}
	return stream.MessageHandle(ts), nil
}

func (s *ThreadSink) Update(ctx context.Context, handle stream.MessageHandle, text string) error {
	return s.Client.UpdateMessage(ctx, s.Channel, string(handle), text)
}

var _ stream.Sink = (*ThreadSink)(nil)
