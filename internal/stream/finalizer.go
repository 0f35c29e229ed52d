package stream

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultFinalAttempts = 3
	defaultRetryPause    = time.Second
)

// Finalizer drives the terminal flush: bounded retries against the open
// message, then a guaranteed-delivery fallback message carrying the
// tail of the text.
type Finalizer struct {
	Agg      *Aggregator
	Logger   *slog.Logger
	Attempts int
	Pause    time.Duration

	sleep func(ctx context.Context, d time.Duration)
}

func NewFinalizer(agg *Aggregator, logger *slog.Logger) *Finalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finalizer{
		Agg:      agg,
		Logger:   logger,
		Attempts: defaultFinalAttempts,
		Pause:    defaultRetryPause,
		sleep:    sleepWithContext,
	}
}

// Run performs the terminal flush. Returns true when the final text was
// delivered, via either the open message or the fallback.
func (f *Finalizer) Run(ctx context.Context) bool {
	if f.Agg.Len() == 0 {
		return true
	}
	attempts := f.Attempts
	if attempts <= 0 {
		attempts = defaultFinalAttempts
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if f.Agg.Flush(ctx, true) {
			f.Logger.Info("final_flush_ok", "attempt", attempt, "text_len", f.Agg.Len(), "handle", string(f.Agg.OpenHandle()))
			return true
		}
		f.Logger.Warn("final_flush_attempt_failed", "attempt", attempt, "handle", string(f.Agg.OpenHandle()))
		if attempt < attempts {
			f.sleep(ctx, f.Pause)
		}
	}

	f.Logger.Error("final_flush_failed", "attempts", attempts, "text_len", f.Agg.Len())

	// Fallback: a fresh message with the tail of the text. Its outcome
	// must be observable either way.
	fallback := f.Agg.FallbackText()
	callCtx, cancel := context.WithTimeout(ctx, f.Agg.cfg.FinalTimeout)
	handle, err := f.Agg.sink.Create(callCtx, fallback)
	cancel()
	if err != nil {
		f.Logger.Error("final_fallback_failed", "text_len", len(fallback), "error", err.Error())
		return false
	}
	f.Logger.Info("final_fallback_sent", "handle", string(handle), "text_len", len(fallback))
	return true
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
