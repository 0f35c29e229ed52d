package stream

// DiagnosticLog keeps the first few unparsable lines from the source
// for error reporting. Bounded so a chatty broken stream cannot grow
// memory.
type DiagnosticLog struct {
	limit int
	lines []string
}

func NewDiagnosticLog(limit int) *DiagnosticLog {
	if limit <= 0 {
		limit = 5
	}
	return &DiagnosticLog{limit: limit}
}

func (d *DiagnosticLog) Add(line string) {
	if len(d.lines) >= d.limit {
		return
	}
	d.lines = append(d.lines, line)
}

func (d *DiagnosticLog) First() (string, bool) {
	if len(d.lines) == 0 {
		return "", false
	}
	return d.lines[0], true
}

func (d *DiagnosticLog) Lines() []string {
	return append([]string(nil), d.lines...)
}

// OutcomeKind is the terminal classification of a run.
type OutcomeKind int

const (
	// OutcomeSuccess: text was streamed or the result record carried text.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeError: nothing was produced and the source process failed.
	OutcomeError
	// OutcomeSilent: nothing was produced, but nothing failed either.
	OutcomeSilent
)

// Outcome pairs the classification with the user-visible error text for
// OutcomeError runs.
type Outcome struct {
	Kind      OutcomeKind
	ErrorText string
}

const maxDiagnosticChars = 200

// ClassifyOutcome decides how the run ended. A non-zero exit only
// matters when no content was produced; the first captured diagnostic,
// length-bounded, becomes the error surface when available.
func ClassifyOutcome(streamedLen int, resultText string, exitCode int, diags *DiagnosticLog) Outcome {
	if streamedLen > 0 || resultText != "" {
		return Outcome{Kind: OutcomeSuccess}
	}
	if exitCode != 0 {
		text := "Sorry, something went wrong processing your request."
		if diags != nil {
			if first, ok := diags.First(); ok {
				text = "Sorry, something went wrong: " + truncate(first, maxDiagnosticChars)
			}
		}
		return Outcome{Kind: OutcomeError, ErrorText: text}
	}
	return Outcome{Kind: OutcomeSilent}
}
