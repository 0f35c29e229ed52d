package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// MessageHandle identifies a chat message for subsequent updates. It is
// opaque to this package; the sink mints it on message creation.
type MessageHandle string

// Sink is the chat destination the aggregator flushes into. Both calls
// must honor ctx deadlines and report failure instead of assuming
// delivery.
type Sink interface {
	Create(ctx context.Context, text string) (MessageHandle, error)
	Update(ctx context.Context, handle MessageHandle, text string) error
}

// AggregatorConfig tunes the flush predicate and the split geometry.
// Zero values take the defaults below.
type AggregatorConfig struct {
	// MinChars is the minimum number of new characters since the last
	// flush before an unforced flush is considered.
	MinChars int
	// MinInterval is the minimum time between unforced flushes. Keeps
	// update volume under the sink's rate limits.
	MinInterval time.Duration
	// MaxMessageLen is the sink's maximum message length. Once the
	// displayed text would exceed it, the open message is finalized and
	// a continuation message is started.
	MaxMessageLen int
	// TypingIndicator is appended to unforced flushes to show the
	// response is still streaming.
	TypingIndicator string
	// UpdateTimeout bounds sink calls for unforced flushes;
	// FinalTimeout bounds forced ones.
	UpdateTimeout time.Duration
	FinalTimeout  time.Duration
}

const (
	defaultMinChars      = 50
	defaultMinInterval   = 500 * time.Millisecond
	defaultMaxMessageLen = 39000
	defaultTypingDots    = "..."
	defaultUpdateTimeout = 10 * time.Second
	defaultFinalTimeout  = 30 * time.Second

	// splitReserve keeps room for the continuation markers when cutting
	// an over-length message; the backscan windows bound how far we
	// look for a clean break.
	splitReserve       = 200
	newlineScanWindow  = 500
	wordScanWindow     = 100
	continuedMarker    = "\n\n_[Continued in next message...]_"
	continuationFormat = "_[Continuation %d]_\n\n"
)

func (c AggregatorConfig) withDefaults() AggregatorConfig {
	if c.MinChars <= 0 {
		c.MinChars = defaultMinChars
	}
	if c.MinInterval <= 0 {
		c.MinInterval = defaultMinInterval
	}
	if c.MaxMessageLen <= 0 {
		c.MaxMessageLen = defaultMaxMessageLen
	}
	if c.TypingIndicator == "" {
		c.TypingIndicator = defaultTypingDots
	}
	if c.UpdateTimeout <= 0 {
		c.UpdateTimeout = defaultUpdateTimeout
	}
	if c.FinalTimeout <= 0 {
		c.FinalTimeout = defaultFinalTimeout
	}
	return c
}

// Aggregator owns the accumulated response text and the flush state
// machine. It is not safe for concurrent use; the read loop is the only
// caller.
type Aggregator struct {
	sink   Sink
	cfg    AggregatorConfig
	logger *slog.Logger
	now    func() time.Time

	text           string
	open           MessageHandle
	lastFlush      time.Time
	lastFlushedLen int
	finalized      []MessageHandle
	continuations  int
}

func NewAggregator(sink Sink, cfg AggregatorConfig, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		sink:   sink,
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// Append adds a streamed text chunk and flushes if the predicate allows.
// Sink failures on this path are swallowed; the next flush carries the
// undelivered delta.
func (a *Aggregator) Append(ctx context.Context, chunk string) {
	if chunk == "" {
		return
	}
	a.text += chunk
	a.Flush(ctx, false)
}

// AppendNotice appends a progress notice to the streamed text and
// force-flushes so the user sees it immediately.
func (a *Aggregator) AppendNotice(ctx context.Context, notice string) {
	if notice == "" {
		return
	}
	a.text += notice
	a.Flush(ctx, true)
}

// Flush pushes the accumulated text to the sink when forced, or when at
// least MinChars new characters have arrived and MinInterval has
// elapsed since the last flush. A forced flush omits the typing
// indicator. Returns true when there was nothing to do or the sink call
// succeeded.
func (a *Aggregator) Flush(ctx context.Context, force bool) bool {
	newChars := len(a.text) - a.lastFlushedLen
	elapsed := a.now().Sub(a.lastFlush)
	should := force || (newChars >= a.cfg.MinChars && elapsed >= a.cfg.MinInterval)
	if !should || a.text == "" {
		return true
	}

	display := a.displayText(force)
	timeout := a.cfg.UpdateTimeout
	if force {
		timeout = a.cfg.FinalTimeout
	}

	if len(display) > a.cfg.MaxMessageLen {
		a.split(ctx, timeout)
		display = a.displayText(force)
	}

	ok := false
	if a.open != "" {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		err := a.sink.Update(callCtx, a.open, display)
		cancel()
		ok = err == nil
		if err != nil {
			a.logger.Warn("stream_update_failed", "handle", string(a.open), "text_len", len(display), "force", force, "error", err.Error())
		}
	} else {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		handle, err := a.sink.Create(callCtx, display)
		cancel()
		if err != nil {
			a.logger.Warn("stream_create_failed", "text_len", len(display), "error", err.Error())
		} else {
			a.open = handle
			ok = true
		}
	}

	a.lastFlush = a.now()
	a.lastFlushedLen = len(a.text)
	return ok
}

// split finalizes the open message at a clean break point and seeds a
// continuation with the remainder. No content is lost or duplicated
// across the boundary beyond the inserted markers.
func (a *Aggregator) split(ctx context.Context, timeout time.Duration) {
	cutoff := a.cfg.MaxMessageLen - splitReserve
	if cutoff < 1 {
		cutoff = 1
	}
	if cutoff > len(a.text) {
		cutoff = len(a.text)
	}
	breakPoint := cutoff
	if pos := lastIndexWithin(a.text, "\n", cutoff-newlineScanWindow, cutoff); pos > 0 {
		breakPoint = pos
	} else if pos := lastIndexWithin(a.text, " ", cutoff-wordScanWindow, cutoff); pos > 0 {
		breakPoint = pos
	}

	if a.open != "" {
		finalText := a.text[:breakPoint] + continuedMarker
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		if err := a.sink.Update(callCtx, a.open, finalText); err != nil {
			a.logger.Warn("stream_split_finalize_failed", "handle", string(a.open), "error", err.Error())
		}
		cancel()
		a.finalized = append(a.finalized, a.open)
	}

	remainder := strings.TrimLeft(a.text[breakPoint:], " \t\n")
	a.continuations++
	a.text = fmt.Sprintf(continuationFormat, a.continuations) + remainder
	a.open = ""
	a.lastFlushedLen = 0

	a.logger.Info("stream_split", "continuation", a.continuations, "break_point", breakPoint, "remainder_len", len(remainder))
}

func (a *Aggregator) displayText(force bool) string {
	if force {
		return a.text
	}
	return a.text + a.cfg.TypingIndicator
}

// lastIndexWithin finds the last occurrence of sep in s[from:to],
// returning its absolute index, or -1. Bounds are clamped to s.
func lastIndexWithin(s, sep string, from, to int) int {
	if from < 0 {
		from = 0
	}
	if to > len(s) {
		to = len(s)
	}
	if from >= to {
		return -1
	}
	rel := strings.LastIndex(s[from:to], sep)
	if rel < 0 {
		return -1
	}
	return from + rel
}

// Text returns the accumulated text, including any continuation marker.
func (a *Aggregator) Text() string { return a.text }

// Len reports the accumulated text length.
func (a *Aggregator) Len() int { return len(a.text) }

// OpenHandle returns the handle of the message currently open for
// update, or "" when none is open.
func (a *Aggregator) OpenHandle() MessageHandle { return a.open }

// FinalizedHandles lists the messages closed by splits, oldest first.
func (a *Aggregator) FinalizedHandles() []MessageHandle {
	return append([]MessageHandle(nil), a.finalized...)
}

// Continuations reports how many splits have occurred.
func (a *Aggregator) Continuations() int { return a.continuations }

// FallbackText is the tail of the accumulated text, sized to fit one
// sink message. The tail is kept rather than the head since the answer
// is most likely at the end.
func (a *Aggregator) FallbackText() string {
	if len(a.text) <= a.cfg.MaxMessageLen {
		return a.text
	}
	return "...\n\n" + a.text[len(a.text)-(a.cfg.MaxMessageLen-10):]
}
