package source

import (
	"regexp"
	"strings"
)

// entryKind is the closed set of entry categories the reconstructor acts on.
type entryKind int

const (
	kindSkip entryKind = iota
	kindUser
	kindAssistant
	kindProgress
)

// Noise entry types that never carry conversation data. Unknown or untagged
// types classify as skip too.
var skipTypes = map[string]struct{}{
	"file-history-snapshot": {},
	"queue-operation":       {},
	"system":                {},
}

func classifyEntry(e *rawEntry) entryKind {
	if _, noise := skipTypes[e.Type]; noise {
		return kindSkip
	}
	switch e.Type {
	case "user":
		return kindUser
	case "assistant":
		return kindAssistant
	case "progress":
		return kindProgress
	}
	return kindSkip
}

// userKind classifies what a user entry contributes to the conversation.
type userKind int

const (
	userSkip userKind = iota
	userPrompt
	userToolResults
)

// systemTagPattern matches injected tags that look like user content but
// aren't real prompts.
var systemTagPattern = regexp.MustCompile(
	`<(system-reminder|local-command-caveat|local-command-stdout|command-name)`,
)

const interruptedText = "[Request interrupted by user for tool use]"

// classifyUser decides whether a user entry is a real prompt, a
// tool-result-only message, or noise. For prompts it returns the combined
// prompt text; for tool-result messages it returns the result blocks.
func classifyUser(e *rawEntry) (userKind, string, []contentBlock) {
	if e.IsMeta || e.Message == nil {
		return userSkip, "", nil
	}

	text, blocks, isString := decodeContent(e.Message.Content)

	if isString {
		if strings.TrimSpace(text) == "" || isRejectedPrompt(text) {
			return userSkip, "", nil
		}
		return userPrompt, text, nil
	}

	if len(blocks) == 0 {
		return userSkip, "", nil
	}

	allResults := true
	for _, b := range blocks {
		if b.Type != "tool_result" {
			allResults = false
			break
		}
	}
	if allResults {
		return userToolResults, "", blocks
	}

	// Mixed blocks: join text blocks into one prompt candidate.
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	combined := strings.TrimSpace(strings.Join(parts, " "))
	if combined == "" || isRejectedPrompt(combined) {
		return userSkip, "", nil
	}
	return userPrompt, combined, nil
}

func isRejectedPrompt(s string) bool {
	return systemTagPattern.MatchString(s) || strings.TrimSpace(s) == interruptedText
}

// toolKind is the closed set of tool names that drive file and command
// extraction. Anything else is toolOther and extracts nothing.
type toolKind int

const (
	toolOther toolKind = iota
	toolRead
	toolGlob
	toolGrep
	toolWrite
	toolEdit
	toolBash
	toolTask
)

func toolKindOf(name string) toolKind {
	switch name {
	case "Read":
		return toolRead
	case "Glob":
		return toolGlob
	case "Grep":
		return toolGrep
	case "Write":
		return toolWrite
	case "Edit":
		return toolEdit
	case "Bash":
		return toolBash
	case "Task":
		return toolTask
	}
	return toolOther
}
