package stream

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
)

// DefaultCommandDenylist suppresses notifications and counting for
// low-signal inspection commands. Configurable via stream.command_denylist.
var DefaultCommandDenylist = []string{
	"cat ", "head ", "tail ", "ls ", "pwd", "echo ", "grep ", "find ", "source ",
}

// Notifier posts a standalone message into the thread. Best effort; the
// reporter never checks the outcome.
type Notifier func(ctx context.Context, text string)

// ActionCounters maps action kinds to true invocation counts.
type ActionCounters map[ActionKind]int

// Reporter turns classified tool invocations into deduplicated progress
// notifications and running counters. File-shaped actions (edit, write,
// command) are woven into the streamed text; search-shaped ones go out
// as standalone thread messages.
type Reporter struct {
	agg      *Aggregator
	notify   Notifier
	logger   *slog.Logger
	denylist []string
	counters ActionCounters
	seen     map[string]bool
}

func NewReporter(agg *Aggregator, notify Notifier, denylist []string, logger *slog.Logger) *Reporter {
	if notify == nil {
		notify = func(context.Context, string) {}
	}
	if denylist == nil {
		denylist = DefaultCommandDenylist
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		agg:      agg,
		notify:   notify,
		logger:   logger,
		denylist: denylist,
		counters: make(ActionCounters),
		seen:     make(map[string]bool),
	}
}

// Observe counts one tool invocation and emits at most one notification
// per dedup key for this run. Read invocations are counted silently.
func (r *Reporter) Observe(ctx context.Context, inv ToolInvocation) {
	switch inv.Kind {
	case ActionEdit, ActionWrite:
		r.counters[inv.Kind]++
		file := inv.Params["file_path"]
		if file == "" {
			return
		}
		filename := path.Base(file)
		if !r.firstSeen("file:" + filename) {
			return
		}
		verb := "Editing"
		if inv.Kind == ActionWrite {
			verb = "Creating"
		}
		r.agg.AppendNotice(ctx, fmt.Sprintf("\n_%s `%s`..._\n", verb, filename))
		r.logger.Info("tool_observed", "kind", string(inv.Kind), "file", filename)

	case ActionRead:
		r.counters[ActionRead]++
		r.logger.Debug("tool_observed", "kind", string(ActionRead))

	case ActionCommand:
		cmd := inv.Params["command"]
		if cmd == "" || CommandIsLowSignal(cmd, r.denylist) {
			return
		}
		r.counters[ActionCommand]++
		display := truncateWithEllipsis(cmd, 50)
		r.agg.AppendNotice(ctx, fmt.Sprintf("\n_Running `%s`..._\n", display))
		r.logger.Info("tool_observed", "kind", string(ActionCommand), "command", display)

	case ActionGlob:
		r.counters[ActionGlob]++
		pattern := inv.Params["pattern"]
		if pattern == "" || !r.firstSeen("glob:"+pattern) {
			return
		}
		r.notify(ctx, fmt.Sprintf("Searching for files `%s`...", pattern))
		r.logger.Info("tool_observed", "kind", string(ActionGlob), "pattern", pattern)

	case ActionGrep:
		r.counters[ActionGrep]++
		pattern := inv.Params["pattern"]
		if pattern == "" || !r.firstSeen("grep:"+pattern) {
			return
		}
		r.notify(ctx, fmt.Sprintf("Searching in files for `%s`...", truncate(pattern, 30)))
		r.logger.Info("tool_observed", "kind", string(ActionGrep), "pattern", truncate(pattern, 30))

	case ActionWebFetch:
		r.counters[ActionWebFetch]++
		domain := domainOf(inv.Params["url"])
		if domain == "" || !r.firstSeen("fetch:"+domain) {
			return
		}
		r.notify(ctx, fmt.Sprintf("Fetching `%s`...", domain))
		r.logger.Info("tool_observed", "kind", string(ActionWebFetch), "domain", domain)

	case ActionWebSearch:
		r.counters[ActionWebSearch]++
		query := inv.Params["query"]
		if query == "" || !r.firstSeen("search:"+query) {
			return
		}
		r.notify(ctx, fmt.Sprintf("Searching the web: `%s`...", truncateWithEllipsis(query, 40)))
		r.logger.Info("tool_observed", "kind", string(ActionWebSearch), "query", query)

	case ActionAgent:
		r.counters[ActionAgent]++
		desc := inv.Params["description"]
		if desc == "" {
			desc = "agent task"
		}
		if !r.firstSeen("agent:" + desc) {
			return
		}
		r.notify(ctx, fmt.Sprintf("Spawning agent: %s...", desc))
		r.logger.Info("tool_observed", "kind", string(ActionAgent), "description", desc)

	case ActionMCP:
		r.counters[ActionMCP]++
		if inv.Server == "" || !r.firstSeen("mcp:"+inv.Server) {
			return
		}
		r.notify(ctx, fmt.Sprintf("Calling %s: %s...", inv.Server, inv.Action))
		r.logger.Info("tool_observed", "kind", string(ActionMCP), "server", inv.Server, "action", inv.Action)
	}
}

// Counters returns a copy of the running counts.
func (r *Reporter) Counters() ActionCounters {
	out := make(ActionCounters, len(r.counters))
	for k, v := range r.counters {
		out[k] = v
	}
	return out
}

func (r *Reporter) firstSeen(key string) bool {
	if r.seen[key] {
		return false
	}
	r.seen[key] = true
	return true
}

// CommandIsLowSignal reports whether a shell command matches one of the
// denylisted inspection prefixes.
func CommandIsLowSignal(cmd string, denylist []string) bool {
	for _, prefix := range denylist {
		if strings.HasPrefix(cmd, prefix) {
			return true
		}
	}
	return false
}

// domainOf extracts the host part of a URL for display, or returns the
// raw value when it does not look like a URL.
func domainOf(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	if len(parts) >= 3 && strings.Contains(url, "://") {
		return parts[2]
	}
	return url
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func truncateWithEllipsis(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
