// Package model defines domain types for reconstructed sessions and stats.
package model

// Command outcome values for TurnCommand.Status.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// TurnTokens holds token usage for a single conversation turn.
type TurnTokens struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens"`
}

// Total returns the sum across all four token dimensions.
func (t TurnTokens) Total() int64 {
	return t.InputTokens + t.OutputTokens + t.CacheReadTokens + t.CacheCreationTokens
}

// IsZero reports whether every dimension is zero.
func (t TurnTokens) IsZero() bool {
	return t.InputTokens == 0 && t.OutputTokens == 0 &&
		t.CacheReadTokens == 0 && t.CacheCreationTokens == 0
}

// TurnCommand is a shell command executed during a turn, with its resolved
// outcome. Command text is truncated to 200 characters at capture time.
type TurnCommand struct {
	Command string `json:"command"`
	Status  string `json:"status"`
}

// ConversationTurn is one user-prompt-to-assistant-response unit of the
// reconstructed conversation.
type ConversationTurn struct {
	Timestamp       string        `json:"timestamp"`
	UserPrompt      string        `json:"user_prompt"` // truncated to 500 chars
	ToolsUsed       []string      `json:"tools_used"`
	ResponseSummary string        `json:"response_summary"` // truncated to 200 chars
	Tokens          TurnTokens    `json:"tokens"`
	ContextWindow   int64         `json:"context_window"` // input-side tokens of the turn's last API call
	SubagentTokens  *TurnTokens   `json:"subagent_tokens,omitempty"`
	Commands        []TurnCommand `json:"commands"`
	FilesModified   []string      `json:"files_modified"`
}

// SessionRecord is the fully reconstructed output of parsing one JSONL
// session file.
type SessionRecord struct {
	SessionID   string `json:"session_id"`
	ProjectPath string `json:"project_path"`
	ProjectName string `json:"project_name"`
	GitBranch   string `json:"git_branch"`
	Model       string `json:"model"`

	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	DurationMinutes float64 `json:"duration_minutes"`

	Conversation []ConversationTurn `json:"conversation"`

	TotalUserMessages      int `json:"total_user_messages"`
	TotalAssistantMessages int `json:"total_assistant_messages"`
	TotalToolCalls         int `json:"total_tool_calls"`

	// TotalTokens excludes cache reads: input + output + cache creation.
	TotalTokens         int64 `json:"total_tokens"`
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens"`

	SubagentInputTokens         int64 `json:"subagent_input_tokens"`
	SubagentOutputTokens        int64 `json:"subagent_output_tokens"`
	SubagentCacheCreationTokens int64 `json:"subagent_cache_creation_tokens"`

	ToolsSummary map[string]int `json:"tools_summary"`
	FilesRead    []string       `json:"files_read"`
	FilesWritten []string       `json:"files_written"`
	CommandsRun  []string       `json:"commands_run"`
}

// SessionInfo is the cheap single-pass listing view of a session file:
// first timestamp, message count, and branch, without full reconstruction.
type SessionInfo struct {
	SessionID    string `json:"session_id"`
	ProjectPath  string `json:"project_path"`
	ProjectName  string `json:"project_name"`
	StartTime    string `json:"start_time"`
	MessageCount int    `json:"message_count"`
	GitBranch    string `json:"git_branch"`
	IsCurrent    bool   `json:"is_current"`
}
