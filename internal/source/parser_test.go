package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sinh-x/ai-usage-log/internal/model"
)

const testSessionID = "11111111-2222-3333-4444-555555555555"

// writeSession creates a projects dir with one session file and returns a
// Reader over it.
func writeSession(t *testing.T, lines ...string) *Reader {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "-home-dev-repos-myproject")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, testSessionID+".jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return NewReader(root, 0)
}

func readSession(t *testing.T, r *Reader) *model.SessionRecord {
	t.Helper()
	rec, err := r.ReadSession(testSessionID, "")
	if err != nil {
		t.Fatalf("ReadSession: %v", err)
	}
	return rec
}

func TestReadSession_PromptAndSummary(t *testing.T) {
	r := writeSession(t,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","gitBranch":"main","message":{"role":"user","content":"fix the login bug"}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:05Z","message":{"id":"m1","model":"claude-sonnet-4","content":[{"type":"text","text":"Looking at it."},{"type":"text","text":"Found the cause."}],"usage":{"input_tokens":10,"output_tokens":5}}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:05:30Z","message":{"id":"m2","model":"claude-sonnet-4","content":[{"type":"text","text":"Fixed."}],"usage":{"input_tokens":20,"output_tokens":8}}}`,
	)

	rec := readSession(t, r)

	if len(rec.Conversation) != 1 {
		t.Fatalf("turns = %d, want 1", len(rec.Conversation))
	}
	turn := rec.Conversation[0]
	if turn.UserPrompt != "fix the login bug" {
		t.Errorf("UserPrompt = %q", turn.UserPrompt)
	}
	if turn.ResponseSummary != "Looking at it. Found the cause. Fixed." {
		t.Errorf("ResponseSummary = %q", turn.ResponseSummary)
	}
	if rec.TotalUserMessages != 1 || rec.TotalAssistantMessages != 2 {
		t.Errorf("messages = %d/%d, want 1/2", rec.TotalUserMessages, rec.TotalAssistantMessages)
	}
	if rec.GitBranch != "main" {
		t.Errorf("GitBranch = %q, want main", rec.GitBranch)
	}
	if rec.Model != "claude-sonnet-4" {
		t.Errorf("Model = %q", rec.Model)
	}
	if rec.ProjectName != "myproject" {
		t.Errorf("ProjectName = %q, want myproject", rec.ProjectName)
	}
	if rec.DurationMinutes != 5.5 {
		t.Errorf("DurationMinutes = %v, want 5.5", rec.DurationMinutes)
	}
}

func TestReadSession_StreamedUsageDedup(t *testing.T) {
	// Three cumulative snapshots of the same response: the net effect must
	// match the final snapshot, not the sum of all three.
	r := writeSession(t,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"hi"}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:01Z","message":{"id":"m1","usage":{"input_tokens":100,"output_tokens":10}}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:02Z","message":{"id":"m1","usage":{"input_tokens":100,"output_tokens":30}}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:03Z","message":{"id":"m1","usage":{"input_tokens":100,"output_tokens":50}}}`,
	)

	rec := readSession(t, r)

	if rec.InputTokens != 100 {
		t.Errorf("InputTokens = %d, want 100", rec.InputTokens)
	}
	if rec.OutputTokens != 50 {
		t.Errorf("OutputTokens = %d, want 50", rec.OutputTokens)
	}
}

func TestReadSession_NoMessageIDNeverDeduped(t *testing.T) {
	r := writeSession(t,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"hi"}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:01Z","message":{"usage":{"input_tokens":100,"output_tokens":10}}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:02Z","message":{"usage":{"input_tokens":100,"output_tokens":10}}}`,
	)

	rec := readSession(t, r)

	if rec.InputTokens != 200 || rec.OutputTokens != 20 {
		t.Errorf("tokens = %d/%d, want 200/20", rec.InputTokens, rec.OutputTokens)
	}
}

func TestReadSession_OrphanTokensDrainIntoFirstTurn(t *testing.T) {
	// Usage arriving before any prompt must land in the first turn so the
	// per-turn sums still add up to the session totals.
	r := writeSession(t,
		`{"type":"assistant","timestamp":"2025-06-01T09:59:00Z","message":{"id":"m0","usage":{"input_tokens":40,"output_tokens":4,"cache_creation_input_tokens":7}}}`,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"first"}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:01Z","message":{"id":"m1","usage":{"input_tokens":10,"output_tokens":2}}}`,
		`{"type":"user","timestamp":"2025-06-01T10:01:00Z","message":{"role":"user","content":"second"}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:01:01Z","message":{"id":"m2","usage":{"input_tokens":20,"output_tokens":3}}}`,
	)

	rec := readSession(t, r)

	if len(rec.Conversation) != 2 {
		t.Fatalf("turns = %d, want 2", len(rec.Conversation))
	}

	var sum model.TurnTokens
	for _, turn := range rec.Conversation {
		sum.InputTokens += turn.Tokens.InputTokens
		sum.OutputTokens += turn.Tokens.OutputTokens
		sum.CacheReadTokens += turn.Tokens.CacheReadTokens
		sum.CacheCreationTokens += turn.Tokens.CacheCreationTokens
	}
	if sum.InputTokens != rec.InputTokens || sum.OutputTokens != rec.OutputTokens ||
		sum.CacheCreationTokens != rec.CacheCreationTokens {
		t.Errorf("turn sums %+v do not match session totals %d/%d/%d",
			sum, rec.InputTokens, rec.OutputTokens, rec.CacheCreationTokens)
	}

	first := rec.Conversation[0].Tokens
	if first.InputTokens != 50 || first.CacheCreationTokens != 7 {
		t.Errorf("first turn tokens = %+v, want orphan drained in", first)
	}
	second := rec.Conversation[1].Tokens
	if second.InputTokens != 20 {
		t.Errorf("second turn input = %d, want 20", second.InputTokens)
	}
}

func TestReadSession_ContextWindowLastCallWins(t *testing.T) {
	r := writeSession(t,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"go"}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:01Z","message":{"id":"m1","usage":{"input_tokens":52000,"output_tokens":10,"cache_creation_input_tokens":5}}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:02Z","message":{"id":"m2","usage":{"input_tokens":100,"output_tokens":20,"cache_read_input_tokens":52700,"cache_creation_input_tokens":5}}}`,
	)

	rec := readSession(t, r)

	if got := rec.Conversation[0].ContextWindow; got != 52805 {
		t.Errorf("ContextWindow = %d, want 52805", got)
	}
}

func TestReadSession_ContextWindowIgnoresZeroSnapshot(t *testing.T) {
	r := writeSession(t,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"go"}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:01Z","message":{"id":"m1","usage":{"input_tokens":1000,"output_tokens":10}}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:02Z","message":{"id":"m2","usage":{"input_tokens":0,"output_tokens":5}}}`,
	)

	rec := readSession(t, r)

	if got := rec.Conversation[0].ContextWindow; got != 1000 {
		t.Errorf("ContextWindow = %d, want 1000 (zero snapshot must not clobber)", got)
	}
}

func TestReadSession_Truncation(t *testing.T) {
	longPrompt := strings.Repeat("p", 1000)
	longText := strings.Repeat("r", 500)
	longCmd := "echo " + strings.Repeat("x", 500)

	r := writeSession(t,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"`+longPrompt+`"}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:01Z","message":{"id":"m1","content":[{"type":"text","text":"`+longText+`"},{"type":"tool_use","name":"Bash","id":"b1","input":{"command":"`+longCmd+`"}}]}}`,
	)

	rec := readSession(t, r)

	turn := rec.Conversation[0]
	if len([]rune(turn.UserPrompt)) != 500 {
		t.Errorf("prompt length = %d, want 500", len([]rune(turn.UserPrompt)))
	}
	if len([]rune(turn.ResponseSummary)) != 200 {
		t.Errorf("summary length = %d, want 200", len([]rune(turn.ResponseSummary)))
	}
	if len(turn.Commands) != 1 {
		t.Fatalf("commands = %d, want 1", len(turn.Commands))
	}
	if len([]rune(turn.Commands[0].Command)) != 200 {
		t.Errorf("command length = %d, want 200", len([]rune(turn.Commands[0].Command)))
	}
	// The session-level command log keeps the full text.
	if rec.CommandsRun[0] != longCmd {
		t.Error("CommandsRun should keep the untruncated command")
	}
}

func TestReadSession_CommandResolution(t *testing.T) {
	r := writeSession(t,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"run things"}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:01Z","message":{"id":"m1","content":[{"type":"tool_use","name":"Bash","id":"b1","input":{"command":"make test"}},{"type":"tool_use","name":"Bash","id":"b2","input":{"command":"make lint"}}]}}`,
		`{"type":"user","timestamp":"2025-06-01T10:00:05Z","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"b1","is_error":true}]}}`,
	)

	rec := readSession(t, r)

	turn := rec.Conversation[0]
	want := []model.TurnCommand{
		{Command: "make test", Status: model.StatusError},
		{Command: "make lint", Status: model.StatusSuccess}, // never resolved
	}
	if len(turn.Commands) != len(want) {
		t.Fatalf("commands = %d, want %d", len(turn.Commands), len(want))
	}
	for i, w := range want {
		if turn.Commands[i] != w {
			t.Errorf("command[%d] = %+v, want %+v", i, turn.Commands[i], w)
		}
	}
}

func TestReadSession_NoiseAndInjectedContent(t *testing.T) {
	r := writeSession(t,
		`{"type":"file-history-snapshot","timestamp":"2025-06-01T09:00:00Z"}`,
		`{"type":"queue-operation","timestamp":"2025-06-01T09:00:01Z"}`,
		`{"type":"system","timestamp":"2025-06-01T09:00:02Z"}`,
		`{"type":"summary","summary":"old context"}`,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","isMeta":true,"message":{"role":"user","content":"meta note"}}`,
		`{"type":"user","timestamp":"2025-06-01T10:00:01Z","message":{"role":"user","content":"<system-reminder>injected</system-reminder>"}}`,
		`{"type":"user","timestamp":"2025-06-01T10:00:02Z","message":{"role":"user","content":"[Request interrupted by user for tool use]"}}`,
		`{"type":"user","timestamp":"2025-06-01T10:00:03Z","message":{"role":"user","content":"   "}}`,
		`{"type":"user","timestamp":"2025-06-01T10:30:00Z","message":{"role":"user","content":"real prompt"}}`,
	)

	rec := readSession(t, r)

	if rec.TotalUserMessages != 1 {
		t.Errorf("TotalUserMessages = %d, want 1", rec.TotalUserMessages)
	}
	if len(rec.Conversation) != 1 || rec.Conversation[0].UserPrompt != "real prompt" {
		t.Fatalf("conversation = %+v, want single real prompt", rec.Conversation)
	}
	// Skip-kind entries with earlier timestamps must not widen the span;
	// rejected user entries still count as activity.
	if rec.StartTime != "2025-06-01T10:00:00Z" {
		t.Errorf("StartTime = %q", rec.StartTime)
	}
	if rec.EndTime != "2025-06-01T10:30:00Z" {
		t.Errorf("EndTime = %q", rec.EndTime)
	}
}

func TestReadSession_ToolExtraction(t *testing.T) {
	r := writeSession(t,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"work"}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:01Z","message":{"id":"m1","content":[`+
			`{"type":"tool_use","name":"Read","id":"t1","input":{"file_path":"/src/main.go"}},`+
			`{"type":"tool_use","name":"Glob","id":"t2","input":{"path":"/src"}},`+
			`{"type":"tool_use","name":"Write","id":"t3","input":{"file_path":"/src/new.go"}},`+
			`{"type":"tool_use","name":"Edit","id":"t4","input":{"file_path":"/src/main.go"}},`+
			`{"type":"tool_use","name":"WebFetch","id":"t5","input":{}}]}}`,
	)

	rec := readSession(t, r)

	if rec.TotalToolCalls != 5 {
		t.Errorf("TotalToolCalls = %d, want 5", rec.TotalToolCalls)
	}
	if rec.ToolsSummary["Read"] != 1 || rec.ToolsSummary["WebFetch"] != 1 {
		t.Errorf("ToolsSummary = %v", rec.ToolsSummary)
	}
	wantRead := []string{"/src", "/src/main.go"}
	if len(rec.FilesRead) != 2 || rec.FilesRead[0] != wantRead[0] || rec.FilesRead[1] != wantRead[1] {
		t.Errorf("FilesRead = %v, want %v", rec.FilesRead, wantRead)
	}
	wantWritten := []string{"/src/main.go", "/src/new.go"}
	if len(rec.FilesWritten) != 2 || rec.FilesWritten[0] != wantWritten[0] || rec.FilesWritten[1] != wantWritten[1] {
		t.Errorf("FilesWritten = %v, want %v", rec.FilesWritten, wantWritten)
	}
	turn := rec.Conversation[0]
	if len(turn.ToolsUsed) != 5 {
		t.Errorf("ToolsUsed = %v", turn.ToolsUsed)
	}
	if len(turn.FilesModified) != 2 {
		t.Errorf("FilesModified = %v", turn.FilesModified)
	}
}

func TestReadSession_SubagentAttribution(t *testing.T) {
	// The Task runs in the first turn; its progress entries arrive after
	// the second prompt has already flushed that turn.
	r := writeSession(t,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"delegate"}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:01Z","message":{"id":"m1","content":[{"type":"tool_use","name":"Task","id":"task1","input":{}}]}}`,
		`{"type":"user","timestamp":"2025-06-01T10:01:00Z","message":{"role":"user","content":"meanwhile"}}`,
		`{"type":"progress","timestamp":"2025-06-01T10:01:30Z","toolUseID":"task1","data":{"type":"agent_progress","message":{"type":"assistant","message":{"id":"sub1","usage":{"input_tokens":300,"output_tokens":40,"cache_creation_input_tokens":9}}}}}`,
		`{"type":"progress","timestamp":"2025-06-01T10:01:31Z","toolUseID":"task1","data":{"type":"agent_progress","message":{"type":"assistant","message":{"id":"sub1","usage":{"input_tokens":300,"output_tokens":70,"cache_creation_input_tokens":9}}}}}`,
	)

	rec := readSession(t, r)

	if rec.SubagentInputTokens != 300 || rec.SubagentOutputTokens != 70 || rec.SubagentCacheCreationTokens != 9 {
		t.Errorf("subagent totals = %d/%d/%d, want 300/70/9",
			rec.SubagentInputTokens, rec.SubagentOutputTokens, rec.SubagentCacheCreationTokens)
	}

	first := rec.Conversation[0]
	if first.SubagentTokens == nil {
		t.Fatal("first turn SubagentTokens = nil, want attributed tokens")
	}
	if first.SubagentTokens.InputTokens != 300 || first.SubagentTokens.OutputTokens != 70 {
		t.Errorf("first turn subagent = %+v", first.SubagentTokens)
	}
	if rec.Conversation[1].SubagentTokens != nil {
		t.Errorf("second turn subagent = %+v, want nil", rec.Conversation[1].SubagentTokens)
	}
	// Sub-agent work never inflates the primary token counters.
	if rec.InputTokens != 0 || rec.OutputTokens != 0 {
		t.Errorf("primary tokens = %d/%d, want 0/0", rec.InputTokens, rec.OutputTokens)
	}
}

func TestReadSession_SubagentUnmappedProgress(t *testing.T) {
	r := writeSession(t,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"hi"}}`,
		`{"type":"progress","timestamp":"2025-06-01T10:00:30Z","toolUseID":"ghost","data":{"type":"agent_progress","message":{"type":"assistant","message":{"id":"sub1","usage":{"input_tokens":50,"output_tokens":5}}}}}`,
	)

	rec := readSession(t, r)

	// Session totals still count the work; no turn claims it.
	if rec.SubagentInputTokens != 50 {
		t.Errorf("SubagentInputTokens = %d, want 50", rec.SubagentInputTokens)
	}
	if rec.Conversation[0].SubagentTokens != nil {
		t.Errorf("turn subagent = %+v, want nil", rec.Conversation[0].SubagentTokens)
	}
}

func TestReadSession_MalformedLines(t *testing.T) {
	r := writeSession(t,
		`not json at all`,
		`{"type":"assistant","broken`,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"still works"}}`,
	)

	rec := readSession(t, r)
	if len(rec.Conversation) != 1 {
		t.Errorf("turns = %d, want 1", len(rec.Conversation))
	}
}

func TestReadSession_NotFound(t *testing.T) {
	r := NewReader(t.TempDir(), 0)
	_, err := r.ReadSession("no-such-session", "")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestReadSession_TotalTokensExcludesCacheReads(t *testing.T) {
	r := writeSession(t,
		`{"type":"user","timestamp":"2025-06-01T10:00:00Z","message":{"role":"user","content":"hi"}}`,
		`{"type":"assistant","timestamp":"2025-06-01T10:00:01Z","message":{"id":"m1","usage":{"input_tokens":10,"output_tokens":20,"cache_read_input_tokens":9000,"cache_creation_input_tokens":30}}}`,
	)

	rec := readSession(t, r)

	if rec.TotalTokens != 60 {
		t.Errorf("TotalTokens = %d, want 60 (10+20+30)", rec.TotalTokens)
	}
	if rec.CacheReadTokens != 9000 {
		t.Errorf("CacheReadTokens = %d, want 9000", rec.CacheReadTokens)
	}
}

func TestToLocal_FixedOffset(t *testing.T) {
	r := &Reader{TZOffsetHours: 7}
	got := r.toLocal("2025-06-01T10:00:00.000Z")
	if got != "2025-06-01T17:00:00.000+07:00" {
		t.Errorf("toLocal = %q", got)
	}

	half := &Reader{TZOffsetHours: -5.5}
	got = half.toLocal("2025-06-01T10:00:00.000Z")
	if got != "2025-06-01T04:30:00.000-05:30" {
		t.Errorf("toLocal = %q", got)
	}

	zero := &Reader{}
	if got := zero.toLocal("2025-06-01T10:00:00Z"); got != "2025-06-01T10:00:00Z" {
		t.Errorf("zero offset should pass through, got %q", got)
	}
}

func TestDurationMinutes(t *testing.T) {
	cases := []struct {
		start, end string
		want       float64
	}{
		{"2025-06-01T10:00:00Z", "2025-06-01T10:05:30Z", 5.5},
		{"2025-06-01T10:00:00Z", "2025-06-01T10:00:10Z", 0.2},
		{"", "2025-06-01T10:00:00Z", 0},
		{"2025-06-01T10:00:00Z", "", 0},
		{"bogus", "2025-06-01T10:00:00Z", 0},
	}
	for _, c := range cases {
		if got := durationMinutes(c.start, c.end); got != c.want {
			t.Errorf("durationMinutes(%q, %q) = %v, want %v", c.start, c.end, got, c.want)
		}
	}
}
