package stream

import (
	"encoding/json"
	"strconv"
	"strings"
)

const mcpToolPrefix = "mcp__"

type rawLine struct {
	Type    string      `json:"type"`
	Message *rawMessage `json:"message"`

	Result     string    `json:"result"`
	DurationMS int64     `json:"duration_ms"`
	TotalCost  float64   `json:"total_cost_usd"`
	Usage      *rawUsage `json:"usage"`
}

type rawMessage struct {
	Content []rawContentItem `json:"content"`
}

type rawContentItem struct {
	Type  string         `json:"type"`
	Text  string         `json:"text"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

type rawUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
}

// ParseLine classifies one line of the event source. It returns nil for
// blank lines, a single Unparsable for lines that are not valid JSON,
// and otherwise the ordered events extracted from the record: one
// TextDelta per text content item, one ToolInvocation per recognized
// tool_use item, or one ResultEvent for a result record. Pure function
// of the line.
func ParseLine(line string) []Event {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	var raw rawLine
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return []Event{Unparsable{Raw: line}}
	}

	switch raw.Type {
	case "assistant":
		if raw.Message == nil {
			return nil
		}
		var events []Event
		for _, item := range raw.Message.Content {
			if item.Type == "text" && item.Text != "" {
				events = append(events, TextDelta{Chunk: item.Text})
			}
		}
		for _, item := range raw.Message.Content {
			if item.Type != "tool_use" {
				continue
			}
			inv, ok := classifyTool(item.Name, item.Input)
			if !ok {
				continue
			}
			events = append(events, inv)
		}
		return events
	case "result":
		ev := ResultEvent{
			Text:       raw.Result,
			DurationMS: raw.DurationMS,
			CostUSD:    raw.TotalCost,
		}
		if raw.Usage != nil {
			ev.Usage = Usage{
				InputTokens:              raw.Usage.InputTokens,
				OutputTokens:             raw.Usage.OutputTokens,
				CacheReadInputTokens:     raw.Usage.CacheReadInputTokens,
				CacheCreationInputTokens: raw.Usage.CacheCreationInputTokens,
			}
		}
		return []Event{ev}
	default:
		return nil
	}
}

func classifyTool(name string, input map[string]any) (ToolInvocation, bool) {
	name = strings.TrimSpace(name)
	params := stringParams(input)

	switch name {
	case "Edit":
		return ToolInvocation{Kind: ActionEdit, Params: params}, true
	case "Write":
		return ToolInvocation{Kind: ActionWrite, Params: params}, true
	case "Read":
		return ToolInvocation{Kind: ActionRead, Params: params}, true
	case "Bash":
		return ToolInvocation{Kind: ActionCommand, Params: params}, true
	case "Glob":
		return ToolInvocation{Kind: ActionGlob, Params: params}, true
	case "Grep":
		return ToolInvocation{Kind: ActionGrep, Params: params}, true
	case "WebFetch":
		return ToolInvocation{Kind: ActionWebFetch, Params: params}, true
	case "WebSearch":
		return ToolInvocation{Kind: ActionWebSearch, Params: params}, true
	case "Task":
		return ToolInvocation{Kind: ActionAgent, Params: params}, true
	}

	if strings.HasPrefix(name, mcpToolPrefix) {
		inv := ToolInvocation{Kind: ActionMCP, Params: params}
		// Tool names look like mcp__<server>__<action>.
		parts := strings.Split(name, "__")
		if len(parts) >= 3 {
			inv.Server = parts[1]
			inv.Action = parts[2]
		}
		return inv, true
	}

	return ToolInvocation{}, false
}

func stringParams(input map[string]any) map[string]string {
	if len(input) == 0 {
		return nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
