package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sinkCall struct {
	op     string
	handle MessageHandle
	text   string
}

// fakeSink records every call and can be told to fail the first N
// creates or updates (or all of them with a large value).
type fakeSink struct {
	calls       []sinkCall
	failCreates int
	failUpdates int
	nCreates    int
	nUpdates    int
}

func (s *fakeSink) Create(_ context.Context, text string) (MessageHandle, error) {
	s.nCreates++
	s.calls = append(s.calls, sinkCall{op: "create", text: text})
	if s.nCreates <= s.failCreates {
		return "", errors.New("create failed")
	}
	return MessageHandle(fmt.Sprintf("ts-%d", s.nCreates)), nil
}

func (s *fakeSink) Update(_ context.Context, handle MessageHandle, text string) error {
	s.nUpdates++
	s.calls = append(s.calls, sinkCall{op: "update", handle: handle, text: text})
	if s.nUpdates <= s.failUpdates {
		return errors.New("update failed")
	}
	return nil
}

func (s *fakeSink) lastCall() sinkCall {
	if len(s.calls) == 0 {
		return sinkCall{}
	}
	return s.calls[len(s.calls)-1]
}

func (s *fakeSink) callsOf(op string) []sinkCall {
	var out []sinkCall
	for _, c := range s.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}
