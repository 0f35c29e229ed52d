package stream

// ActionKind classifies a tool invocation extracted from the event stream.
type ActionKind string

const (
	ActionEdit      ActionKind = "edit"
	ActionWrite     ActionKind = "write"
	ActionRead      ActionKind = "read"
	ActionCommand   ActionKind = "command"
	ActionGlob      ActionKind = "glob"
	ActionGrep      ActionKind = "grep"
	ActionWebFetch  ActionKind = "web-fetch"
	ActionWebSearch ActionKind = "web-search"
	ActionAgent     ActionKind = "agent-spawn"
	ActionMCP       ActionKind = "external-tool-call"
)

// Event is a sealed union of the records produced by one line of the
// event source. Transport errors are never events; a line that cannot
// be parsed becomes Unparsable.
type Event interface {
	event()
}

// TextDelta is a chunk of assistant text to accumulate.
type TextDelta struct {
	Chunk string
}

// ToolInvocation is one tool call observed in an assistant record.
// Server and Action are set only for ActionMCP.
type ToolInvocation struct {
	Kind   ActionKind
	Params map[string]string
	Server string
	Action string
}

// ResultEvent is the terminal record carrying final text and run stats.
type ResultEvent struct {
	Text       string
	DurationMS int64
	CostUSD    float64
	Usage      Usage
}

// Unparsable wraps a line that was not valid JSON. Non-fatal.
type Unparsable struct {
	Raw string
}

func (TextDelta) event()      {}
func (ToolInvocation) event() {}
func (ResultEvent) event()    {}
func (Unparsable) event()     {}

var (
	_ Event = TextDelta{}
	_ Event = ToolInvocation{}
	_ Event = ResultEvent{}
	_ Event = Unparsable{}
)

// Usage carries token accounting from the result record. Cache reads
// and cache creation count toward the input figure when displayed.
type Usage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheReadInputTokens     int64
	CacheCreationInputTokens int64
}

// DisplayInputTokens folds cached token counts into the input total.
func (u Usage) DisplayInputTokens() int64 {
	return u.InputTokens + u.CacheReadInputTokens + u.CacheCreationInputTokens
}
