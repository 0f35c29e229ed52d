package stream

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestAggregator(sink Sink, cfg AggregatorConfig) (*Aggregator, *time.Time) {
	agg := NewAggregator(sink, cfg, testLogger())
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return now }
	agg.lastFlush = now
	return agg, &now
}

func TestAggregatorThrottlesSmallDeltas(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	agg, now := newTestAggregator(sink, AggregatorConfig{})
	ctx := context.Background()

	agg.Append(ctx, "Hello ")
	*now = now.Add(10 * time.Millisecond)
	agg.Append(ctx, "world, this is a longer response.")

	if len(sink.calls) != 0 {
		t.Fatalf("sink calls before terminal flush = %d, want 0", len(sink.calls))
	}

	if ok := agg.Flush(ctx, true); !ok {
		t.Fatalf("Flush(force) = false, want true")
	}
	creates := sink.callsOf("create")
	if len(creates) != 1 {
		t.Fatalf("creates = %d, want 1", len(creates))
	}
	want := "Hello world, this is a longer response."
	if creates[0].text != want {
		t.Fatalf("terminal flush text = %q, want %q", creates[0].text, want)
	}
}

func TestAggregatorUnforcedFlushCarriesIndicator(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	agg, now := newTestAggregator(sink, AggregatorConfig{MinChars: 5})
	ctx := context.Background()

	*now = now.Add(time.Second)
	agg.Append(ctx, "Hello world")

	if len(sink.calls) != 1 {
		t.Fatalf("sink calls = %d, want 1", len(sink.calls))
	}
	if got, want := sink.lastCall().text, "Hello world..."; got != want {
		t.Fatalf("flush text = %q, want %q", got, want)
	}
	if agg.OpenHandle() == "" {
		t.Fatalf("OpenHandle() empty after create")
	}
}

func TestAggregatorUpdatesOpenMessage(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	agg, now := newTestAggregator(sink, AggregatorConfig{MinChars: 5})
	ctx := context.Background()

	*now = now.Add(time.Second)
	agg.Append(ctx, "first chunk")
	first := agg.OpenHandle()

	*now = now.Add(time.Second)
	agg.Append(ctx, " second chunk")

	updates := sink.callsOf("update")
	if len(updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(updates))
	}
	if updates[0].handle != first {
		t.Fatalf("update handle = %q, want %q", updates[0].handle, first)
	}
	if got, want := updates[0].text, "first chunk second chunk..."; got != want {
		t.Fatalf("update text = %q, want %q", got, want)
	}
	if agg.OpenHandle() != first {
		t.Fatalf("OpenHandle() changed across in-place update")
	}
}

func TestAggregatorSwallowsNonTerminalFailure(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{failCreates: 1}
	agg, now := newTestAggregator(sink, AggregatorConfig{MinChars: 5})
	ctx := context.Background()

	*now = now.Add(time.Second)
	agg.Append(ctx, "lost delta")
	if agg.OpenHandle() != "" {
		t.Fatalf("OpenHandle() = %q after failed create, want empty", agg.OpenHandle())
	}

	*now = now.Add(time.Second)
	agg.Append(ctx, " and more")

	creates := sink.callsOf("create")
	if len(creates) != 2 {
		t.Fatalf("creates = %d, want 2", len(creates))
	}
	if got, want := creates[1].text, "lost delta and more..."; got != want {
		t.Fatalf("retried flush text = %q, want %q", got, want)
	}
}

func TestAggregatorSplitAtNewline(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	cfg := AggregatorConfig{MaxMessageLen: 1000}
	agg, _ := newTestAggregator(sink, cfg)
	ctx := context.Background()

	// Newline lands 250 chars before the safety cutoff (1000-200=800).
	head := strings.Repeat("a", 550)
	tail := strings.Repeat("b", 749)
	original := head + "\n" + tail

	agg.AppendNotice(ctx, head)
	first := agg.OpenHandle()
	if first == "" {
		t.Fatalf("no open message after first flush")
	}

	agg.AppendNotice(ctx, "\n"+tail)

	finalized := agg.FinalizedHandles()
	if len(finalized) != 1 || finalized[0] != first {
		t.Fatalf("FinalizedHandles() = %v, want [%q]", finalized, first)
	}
	if agg.Continuations() != 1 {
		t.Fatalf("Continuations() = %d, want 1", agg.Continuations())
	}
	second := agg.OpenHandle()
	if second == "" || second == first {
		t.Fatalf("OpenHandle() = %q, want a fresh handle", second)
	}

	// The finalized message carries the pre-cutoff text plus the marker.
	updates := sink.callsOf("update")
	var finalizeText string
	for _, u := range updates {
		if u.handle == first && strings.HasSuffix(u.text, continuedMarker) {
			finalizeText = u.text
		}
	}
	if finalizeText == "" {
		t.Fatalf("no finalize update with continuation marker on %q", first)
	}
	pre := strings.TrimSuffix(finalizeText, continuedMarker)
	if pre != head {
		t.Fatalf("finalized text breaks at %d, want %d", len(pre), len(head))
	}

	// De-marked, trimmed concatenation reproduces the original exactly.
	cont := strings.TrimPrefix(agg.Text(), "_[Continuation 1]_\n\n")
	if rebuilt := pre + "\n" + cont; rebuilt != original {
		t.Fatalf("split is not content-preserving: rebuilt %d chars, want %d", len(rebuilt), len(original))
	}

	// The continuation message itself was created with the marker.
	creates := sink.callsOf("create")
	if len(creates) != 2 {
		t.Fatalf("creates = %d, want 2", len(creates))
	}
	if !strings.HasPrefix(creates[1].text, "_[Continuation 1]_\n\n") {
		t.Fatalf("continuation create = %q..., want continuation marker prefix", creates[1].text[:24])
	}
}

func TestAggregatorSplitWordBoundaryFallback(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	agg, _ := newTestAggregator(sink, AggregatorConfig{MaxMessageLen: 1000})
	ctx := context.Background()

	// No newline anywhere; one space 50 chars before the cutoff.
	head := strings.Repeat("x", 750)
	tail := strings.Repeat("y", 400)
	agg.AppendNotice(ctx, head+" ")
	agg.AppendNotice(ctx, tail)

	if agg.Continuations() != 1 {
		t.Fatalf("Continuations() = %d, want 1", agg.Continuations())
	}
	cont := strings.TrimPrefix(agg.Text(), "_[Continuation 1]_\n\n")
	if cont != tail {
		t.Fatalf("continuation text = %d chars, want %d (break at space)", len(cont), len(tail))
	}
}

func TestAggregatorSplitHardCutWithoutBoundary(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	agg, _ := newTestAggregator(sink, AggregatorConfig{MaxMessageLen: 1000})
	ctx := context.Background()

	solid := strings.Repeat("z", 1100)
	agg.AppendNotice(ctx, solid)

	if agg.Continuations() != 1 {
		t.Fatalf("Continuations() = %d, want 1", agg.Continuations())
	}
	cont := strings.TrimPrefix(agg.Text(), "_[Continuation 1]_\n\n")
	if len(cont) != 1100-800 {
		t.Fatalf("continuation = %d chars, want %d (hard cut at safety cutoff)", len(cont), 1100-800)
	}
}

func TestAggregatorFallbackTextKeepsTail(t *testing.T) {
	t.Parallel()

	agg, _ := newTestAggregator(&fakeSink{}, AggregatorConfig{MaxMessageLen: 100})
	agg.text = strings.Repeat("p", 80) + strings.Repeat("q", 80)

	got := agg.FallbackText()
	if len(got) != len("...\n\n")+90 {
		t.Fatalf("FallbackText() len = %d, want %d", len(got), len("...\n\n")+90)
	}
	if !strings.HasPrefix(got, "...\n\n") {
		t.Fatalf("FallbackText() = %q..., want ellipsis prefix", got[:8])
	}
	if !strings.HasSuffix(got, strings.Repeat("q", 80)) {
		t.Fatalf("FallbackText() does not keep the tail")
	}

	short := "short answer"
	agg.text = short
	if agg.FallbackText() != short {
		t.Fatalf("FallbackText() = %q, want unmodified short text", agg.FallbackText())
	}
}
