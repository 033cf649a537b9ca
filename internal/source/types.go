package source

import "encoding/json"

// rawEntry is one decoded line of a Claude Code JSONL session file.
type rawEntry struct {
	Type      string       `json:"type"`
	Timestamp string       `json:"timestamp,omitempty"`
	GitBranch string       `json:"gitBranch,omitempty"`
	IsMeta    bool         `json:"isMeta,omitempty"`
	Message   *rawMessage  `json:"message,omitempty"`
	Data      *rawProgress `json:"data,omitempty"`
	ToolUseID string       `json:"toolUseID,omitempty"`
}

// rawMessage is the message envelope carried by user and assistant entries.
// Content is either a plain string or a list of content blocks, so it stays
// raw until decodeContent looks at it.
type rawMessage struct {
	ID      string          `json:"id"`
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *rawUsage       `json:"usage,omitempty"`
}

// rawUsage holds cumulative token counts from one API response snapshot.
type rawUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
}

// contentBlock is one element of a block-list message content.
type contentBlock struct {
	Type string `json:"type"` // "text" | "tool_use" | "tool_result"
	Text string `json:"text,omitempty"`

	// tool_use fields
	Name  string    `json:"name,omitempty"`
	ID    string    `json:"id,omitempty"`
	Input toolInput `json:"input,omitempty"`

	// tool_result fields
	ToolUseID string `json:"tool_use_id,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// toolInput carries the tool parameters consulted for known tool names.
type toolInput struct {
	FilePath string `json:"file_path,omitempty"`
	Path     string `json:"path,omitempty"`
	Command  string `json:"command,omitempty"`
}

// rawProgress is the data envelope of a progress entry.
type rawProgress struct {
	Type    string              `json:"type"`
	Message *rawProgressMessage `json:"message,omitempty"`
}

// rawProgressMessage wraps the sub-agent's own entry: usage sits at
// data.message.message.usage.
type rawProgressMessage struct {
	Type    string      `json:"type"`
	Message *rawMessage `json:"message,omitempty"`
}

// decodeContent splits a raw message content into its two possible shapes.
// isString is true when the content was a plain JSON string.
func decodeContent(raw json.RawMessage) (text string, blocks []contentBlock, isString bool) {
	if len(raw) == 0 {
		return "", nil, false
	}
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", nil, false
		}
		return text, nil, true
	case '[':
		if err := json.Unmarshal(raw, &blocks); err != nil {
			return "", nil, false
		}
		return "", blocks, false
	}
	return "", nil, false
}
