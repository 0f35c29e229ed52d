package stream

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Stats is what the run can report about itself once the source is
// exhausted. Duration always has a wall-clock fallback; the rest is
// present only when the source emitted a result record.
type Stats struct {
	Duration time.Duration
	CostUSD  float64
	Usage    Usage
}

var summaryOrder = []struct {
	kind   ActionKind
	format string
}{
	{ActionRead, "read %d file(s)"},
	{ActionEdit, "edited %d file(s)"},
	{ActionWrite, "created %d file(s)"},
	{ActionCommand, "ran %d command(s)"},
	{ActionGlob, "searched %d pattern(s)"},
	{ActionGrep, "grepped %d time(s)"},
	{ActionWebFetch, "fetched %d URL(s)"},
	{ActionWebSearch, "web searched %d time(s)"},
	{ActionAgent, "spawned %d agent(s)"},
	{ActionMCP, "called %d MCP tool(s)"},
}

// Summary renders the non-zero counters as a "Done: ..." line in fixed
// category order, or "" when no work was counted.
func Summary(counters ActionCounters) string {
	var parts []string
	for _, entry := range summaryOrder {
		if n := counters[entry.kind]; n > 0 {
			parts = append(parts, fmt.Sprintf(entry.format, n))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Done: " + strings.Join(parts, ", ")
}

// StatsLine renders elapsed time, cost and token usage as one line, or
// "" when nothing is known.
func StatsLine(s Stats) string {
	var parts []string
	if s.Duration > 0 {
		parts = append(parts, fmt.Sprintf("%.1fs", s.Duration.Seconds()))
	}
	if s.CostUSD > 0 {
		parts = append(parts, fmt.Sprintf("$%.4f", s.CostUSD))
	}
	in := s.Usage.DisplayInputTokens()
	out := s.Usage.OutputTokens
	if in > 0 || out > 0 {
		parts = append(parts, fmt.Sprintf("%s in / %s out tokens", groupThousands(in), groupThousands(out)))
	}
	if len(parts) == 0 {
		return ""
	}
	return "_Stats: " + strings.Join(parts, " | ") + "_"
}

// groupThousands formats n with comma separators (1234567 -> 1,234,567).
func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := ""
	if strings.HasPrefix(s, "-") {
		neg = "-"
		s = s[1:]
	}
	if len(s) <= 3 {
		return neg + s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return neg + b.String()
}
