// Package source discovers and reconstructs Claude Code JSONL session files
// from the projects directory into structured conversation records.
package source

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sinh-x/ai-usage-log/internal/model"
)

// ErrSessionNotFound reports that a session id has no resolvable source
// file, as opposed to a scope that simply contains zero sessions.
var ErrSessionNotFound = errors.New("session not found")

// Truncation limits for captured text.
const (
	maxPromptLen   = 500
	maxResponseLen = 200
	maxCommandLen  = 200
)

// Reader parses JSONL session files under a Claude projects directory.
// TZOffsetHours shifts every surfaced timestamp from UTC to a fixed offset
// (fractional hours allowed); zero means pass-through.
type Reader struct {
	ProjectsDir   string
	TZOffsetHours float64
}

// NewReader returns a Reader over the given projects directory, defaulting
// to ~/.claude/projects when empty.
func NewReader(projectsDir string, tzOffsetHours float64) *Reader {
	if projectsDir == "" {
		projectsDir = DefaultProjectsDir()
	}
	return &Reader{ProjectsDir: projectsDir, TZOffsetHours: tzOffsetHours}
}

// pendingCommand is a Bash invocation awaiting its tool_result. Kept as an
// ordered slice so unresolved commands flush in submission order.
type pendingCommand struct {
	toolUseID string
	command   string
}

// turnAccumulator collects one in-progress conversation turn. It lives only
// inside a single parse pass and is discarded at flush.
type turnAccumulator struct {
	timestamp     string
	userPrompt    string
	toolsUsed     []string
	responseTexts []string
	tokens        model.TurnTokens
	contextWindow int64
	subagent      model.TurnTokens
	pending       []pendingCommand
	resolved      []model.TurnCommand
	filesModified []string
}

// parseState is the single-pass accumulation state for one session file.
type parseState struct {
	model     string
	gitBranch string
	startTime string
	endTime   string

	totals model.TurnTokens

	totalUserMessages      int
	totalAssistantMessages int
	totalToolCalls         int

	toolsSummary map[string]int
	filesRead    map[string]struct{}
	filesWritten map[string]struct{}
	commandsRun  []string

	turns   []model.ConversationTurn
	current *turnAccumulator

	// Tokens from assistant entries seen before the first prompt; drained
	// into the first flushed turn exactly once so the per-turn sums match
	// the session totals.
	orphan        model.TurnTokens
	orphanDrained bool

	primary        *deduper
	subagentDedup  *deduper
	subagentTotals model.TurnTokens

	// Task tool_use id -> index the spawning turn will occupy in turns.
	// A weak positional reference: the turn may not be flushed yet.
	taskTurnIndex map[string]int
}

func newParseState() *parseState {
	return &parseState{
		toolsSummary:  make(map[string]int),
		filesRead:     make(map[string]struct{}),
		filesWritten:  make(map[string]struct{}),
		primary:       newDeduper(),
		subagentDedup: newDeduper(),
		taskTurnIndex: make(map[string]int),
	}
}

// ReadSession fully reconstructs one session. Corrupt lines are skipped;
// a missing session id returns ErrSessionNotFound.
func (r *Reader) ReadSession(sessionID, projectPath string) (*model.SessionRecord, error) {
	path, err := r.FindSessionFile(sessionID, projectPath)
	if err != nil {
		return nil, err
	}

	st := newParseState()
	if err := r.parseFile(path, st); err != nil {
		return nil, err
	}
	st.flushTurn()

	encodedName := filepath.Base(filepath.Dir(path))
	projPath := projectPath
	if projPath == "" {
		projPath = encodedName
	}

	rec := &model.SessionRecord{
		SessionID:   sessionID,
		ProjectPath: projPath,
		ProjectName: DecodeProjectName(encodedName),
		GitBranch:   st.gitBranch,
		Model:       st.model,

		StartTime:       st.startTime,
		EndTime:         st.endTime,
		DurationMinutes: durationMinutes(st.startTime, st.endTime),

		Conversation: st.turns,

		TotalUserMessages:      st.totalUserMessages,
		TotalAssistantMessages: st.totalAssistantMessages,
		TotalToolCalls:         st.totalToolCalls,

		// Cache reads scale with context reuse, not new work, so the
		// headline total leaves them out.
		TotalTokens:         st.totals.InputTokens + st.totals.OutputTokens + st.totals.CacheCreationTokens,
		InputTokens:         st.totals.InputTokens,
		OutputTokens:        st.totals.OutputTokens,
		CacheReadTokens:     st.totals.CacheReadTokens,
		CacheCreationTokens: st.totals.CacheCreationTokens,

		SubagentInputTokens:         st.subagentTotals.InputTokens,
		SubagentOutputTokens:        st.subagentTotals.OutputTokens,
		SubagentCacheCreationTokens: st.subagentTotals.CacheCreationTokens,

		ToolsSummary: st.toolsSummary,
		FilesRead:    sortedKeys(st.filesRead),
		FilesWritten: sortedKeys(st.filesWritten),
		CommandsRun:  st.commandsRun,
	}
	return rec, nil
}

// parseFile runs the entry state machine over every line of one file.
func (r *Reader) parseFile(path string, st *parseState) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening session file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry rawEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue // malformed line, never fatal
		}
		r.processEntry(&entry, st)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading session file: %w", err)
	}
	return nil
}

func (r *Reader) processEntry(e *rawEntry, st *parseState) {
	kind := classifyEntry(e)
	if kind == kindSkip {
		return
	}

	if e.Timestamp != "" {
		local := r.toLocal(e.Timestamp)
		if st.startTime == "" {
			st.startTime = local
		}
		st.endTime = local
	}
	if st.gitBranch == "" && e.GitBranch != "" {
		st.gitBranch = e.GitBranch
	}

	switch kind {
	case kindUser:
		r.processUser(e, st)
	case kindAssistant:
		st.processAssistant(e)
	case kindProgress:
		st.processProgress(e)
	}
}

func (r *Reader) processUser(e *rawEntry, st *parseState) {
	kind, prompt, blocks := classifyUser(e)
	switch kind {
	case userPrompt:
		st.totalUserMessages++
		st.flushTurn()
		st.current = &turnAccumulator{
			timestamp:  r.toLocal(e.Timestamp),
			userPrompt: truncate(prompt, maxPromptLen),
		}

	case userToolResults:
		// Resolves pending commands on the in-progress turn only; never
		// flushes or starts one.
		if st.current == nil {
			return
		}
		for _, b := range blocks {
			st.current.resolveCommand(b.ToolUseID, b.IsError)
		}
	}
}

func (st *parseState) processAssistant(e *rawEntry) {
	st.totalAssistantMessages++
	msg := e.Message
	if msg == nil {
		return
	}

	if st.model == "" && msg.Model != "" {
		st.model = msg.Model
	}

	if msg.Usage != nil {
		cur := snapshotOf(msg.Usage)
		d := st.primary.delta(msg.ID, cur)

		st.totals.InputTokens += d.input
		st.totals.OutputTokens += d.output
		st.totals.CacheReadTokens += d.cacheRead
		st.totals.CacheCreationTokens += d.cacheCreation

		// Context window is the raw input side of this one API call, not
		// the deduplicated delta.
		contextWindow := cur.input + cur.cacheRead + cur.cacheCreation

		if st.current != nil {
			st.current.tokens.InputTokens += d.input
			st.current.tokens.OutputTokens += d.output
			st.current.tokens.CacheReadTokens += d.cacheRead
			st.current.tokens.CacheCreationTokens += d.cacheCreation
			// A turn can span several API calls; the last one reflects
			// the true context size.
			if contextWindow > 0 {
				st.current.contextWindow = contextWindow
			}
		} else {
			st.orphan.InputTokens += d.input
			st.orphan.OutputTokens += d.output
			st.orphan.CacheReadTokens += d.cacheRead
			st.orphan.CacheCreationTokens += d.cacheCreation
		}
	}

	_, blocks, _ := decodeContent(msg.Content)
	for i := range blocks {
		b := &blocks[i]
		switch b.Type {
		case "text":
			if b.Text != "" && st.current != nil {
				st.current.responseTexts = append(st.current.responseTexts, b.Text)
			}
		case "tool_use":
			st.processToolUse(b)
		}
	}
}

func (st *parseState) processToolUse(b *contentBlock) {
	if b.Name == "" {
		return
	}
	st.totalToolCalls++
	st.toolsSummary[b.Name]++
	if st.current != nil {
		st.current.toolsUsed = append(st.current.toolsUsed, b.Name)
	}

	switch toolKindOf(b.Name) {
	case toolRead, toolGlob, toolGrep:
		p := b.Input.FilePath
		if p == "" {
			p = b.Input.Path
		}
		if p != "" {
			st.filesRead[p] = struct{}{}
		}

	case toolWrite, toolEdit:
		if b.Input.FilePath != "" {
			st.filesWritten[b.Input.FilePath] = struct{}{}
			if st.current != nil {
				st.current.filesModified = append(st.current.filesModified, b.Input.FilePath)
			}
		}

	case toolBash:
		if b.Input.Command != "" {
			st.commandsRun = append(st.commandsRun, b.Input.Command)
			if st.current != nil && b.ID != "" {
				st.current.pending = append(st.current.pending, pendingCommand{
					toolUseID: b.ID,
					command:   truncate(b.Input.Command, maxCommandLen),
				})
			}
		}

	case toolTask:
		// Remember which turn spawned the sub-agent so late progress
		// entries can be attributed after the turn is flushed.
		if b.ID != "" {
			st.taskTurnIndex[b.ID] = len(st.turns)
		}

	case toolOther:
		// Unrecognized tool: counted above, extracts nothing.
	}
}

func (st *parseState) processProgress(e *rawEntry) {
	d := e.Data
	if d == nil || d.Type != "agent_progress" {
		return
	}
	if d.Message == nil || d.Message.Type != "assistant" {
		return
	}
	inner := d.Message.Message
	if inner == nil || inner.Usage == nil {
		return
	}

	cur := snapshotOf(inner.Usage)
	delta := st.subagentDedup.delta(inner.ID, cur)

	// Sub-agent accounting tracks input, output, and cache creation only.
	st.subagentTotals.InputTokens += delta.input
	st.subagentTotals.OutputTokens += delta.output
	st.subagentTotals.CacheCreationTokens += delta.cacheCreation

	turnIdx, ok := st.taskTurnIndex[e.ToolUseID]
	if !ok {
		// No Task invocation recorded for this id; the session totals
		// above are all that can be kept.
		return
	}
	if turnIdx < len(st.turns) {
		// Spawning turn already flushed: mutate its stored totals.
		turn := &st.turns[turnIdx]
		if turn.SubagentTokens == nil {
			turn.SubagentTokens = &model.TurnTokens{}
		}
		turn.SubagentTokens.InputTokens += delta.input
		turn.SubagentTokens.OutputTokens += delta.output
		turn.SubagentTokens.CacheCreationTokens += delta.cacheCreation
	} else if st.current != nil {
		st.current.subagent.InputTokens += delta.input
		st.current.subagent.OutputTokens += delta.output
		st.current.subagent.CacheCreationTokens += delta.cacheCreation
	}
}

// resolveCommand moves a pending command to resolved with the status the
// tool result reports. Unknown ids are ignored.
func (t *turnAccumulator) resolveCommand(toolUseID string, isError bool) {
	if toolUseID == "" {
		return
	}
	for i, p := range t.pending {
		if p.toolUseID != toolUseID {
			continue
		}
		status := model.StatusSuccess
		if isError {
			status = model.StatusError
		}
		t.resolved = append(t.resolved, model.TurnCommand{Command: p.command, Status: status})
		t.pending = append(t.pending[:i], t.pending[i+1:]...)
		return
	}
}

// flushTurn emits the accumulated turn, draining orphan tokens into the
// first turn only. Called when a new prompt arrives and once at EOF.
func (st *parseState) flushTurn() {
	t := st.current
	if t == nil {
		return
	}

	if !st.orphanDrained {
		t.tokens.InputTokens += st.orphan.InputTokens
		t.tokens.OutputTokens += st.orphan.OutputTokens
		t.tokens.CacheReadTokens += st.orphan.CacheReadTokens
		t.tokens.CacheCreationTokens += st.orphan.CacheCreationTokens
		st.orphanDrained = true
	}

	summary := ""
	if len(t.responseTexts) > 0 {
		summary = truncate(strings.Join(t.responseTexts, " "), maxResponseLen)
	}

	var subagent *model.TurnTokens
	if !t.subagent.IsZero() {
		sub := t.subagent
		subagent = &sub
	}

	commands := make([]model.TurnCommand, 0, len(t.resolved)+len(t.pending))
	commands = append(commands, t.resolved...)
	for _, p := range t.pending {
		// Never resolved: assume it ran fine.
		commands = append(commands, model.TurnCommand{Command: p.command, Status: model.StatusSuccess})
	}

	st.turns = append(st.turns, model.ConversationTurn{
		Timestamp:       t.timestamp,
		UserPrompt:      t.userPrompt,
		ToolsUsed:       t.toolsUsed,
		ResponseSummary: summary,
		Tokens:          t.tokens,
		ContextWindow:   t.contextWindow,
		SubagentTokens:  subagent,
		Commands:        commands,
		FilesModified:   t.filesModified,
	})
	st.current = nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
