package model

// CachedStats is the flat per-session projection persisted to the
// statistics directory, one JSON file per session. SourceMtimeNs is the
// source file's modification time at parse time; raw equality against the
// current mtime decides cache validity.
type CachedStats struct {
	SessionID   string `json:"session_id"`
	ProjectName string `json:"project_name"`
	ProjectPath string `json:"project_path"`
	GitBranch   string `json:"git_branch"`
	Model       string `json:"model"`

	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	DurationMinutes float64 `json:"duration_minutes"`

	TotalUserMessages      int `json:"total_user_messages"`
	TotalAssistantMessages int `json:"total_assistant_messages"`
	TotalToolCalls         int `json:"total_tool_calls"`

	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens"`

	SubagentInputTokens         int64 `json:"subagent_input_tokens"`
	SubagentOutputTokens        int64 `json:"subagent_output_tokens"`
	SubagentCacheCreationTokens int64 `json:"subagent_cache_creation_tokens"`

	ToolsSummary map[string]int `json:"tools_summary"`

	SourceMtimeNs int64  `json:"jsonl_mtime_ns"`
	SourcePath    string `json:"jsonl_path"`
}

// DailyAggregate folds the cached stats of every session in a date range
// into one summary.
type DailyAggregate struct {
	DateRange string `json:"date_range"`

	TotalSessions        int     `json:"total_sessions"`
	TotalDurationMinutes float64 `json:"total_duration_minutes"`

	TotalInputTokens         int64 `json:"total_input_tokens"`
	TotalOutputTokens        int64 `json:"total_output_tokens"`
	TotalCacheCreationTokens int64 `json:"total_cache_creation_tokens"`
	TotalCacheReadTokens     int64 `json:"total_cache_read_tokens"`

	TotalSubagentInputTokens         int64 `json:"total_subagent_input_tokens"`
	TotalSubagentOutputTokens        int64 `json:"total_subagent_output_tokens"`
	TotalSubagentCacheCreationTokens int64 `json:"total_subagent_cache_creation_tokens"`

	TotalToolCalls         int `json:"total_tool_calls"`
	TotalUserMessages      int `json:"total_user_messages"`
	TotalAssistantMessages int `json:"total_assistant_messages"`

	ToolsHistogram    map[string]int `json:"tools_histogram"`
	ModelDistribution map[string]int `json:"model_distribution"`
	Projects          []string       `json:"projects"`

	Sessions []CachedStats `json:"sessions"`

	CachedCount int `json:"cached_count"`
	ParsedCount int `json:"parsed_count"`
}
