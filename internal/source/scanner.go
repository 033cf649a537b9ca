package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sinh-x/ai-usage-log/internal/model"
)

// DefaultProjectsDir returns ~/.claude/projects.
func DefaultProjectsDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude", "projects")
}

// EncodeProjectPath encodes an absolute project path the way Claude Code
// names project directories: every "/" and "." becomes "-".
func EncodeProjectPath(path string) string {
	return strings.NewReplacer("/", "-", ".", "-").Replace(path)
}

// DecodeProjectName extracts a human-readable project name from an encoded
// directory name: the last non-empty "-"-delimited segment.
//
//	"-home-sinh-git-repos-myproject" -> "myproject"
func DecodeProjectName(encoded string) string {
	parts := strings.Split(strings.Trim(encoded, "-"), "-")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return encoded
}

// projectDir resolves a project path to its encoded directory, reporting
// whether it exists.
func (r *Reader) projectDir(projectPath string) (string, bool) {
	if projectPath == "" {
		return "", false
	}
	dir := filepath.Join(r.ProjectsDir, EncodeProjectPath(projectPath))
	info, err := os.Stat(dir)
	return dir, err == nil && info.IsDir()
}

// scanScope is one project directory to inspect during discovery.
type scanScope struct {
	dir     string
	encoded string
}

// scanScopes returns the project directories in scope. A scoped lookup on a
// missing project and a missing projects root both yield an empty scope,
// not an error.
func (r *Reader) scanScopes(projectPath string) []scanScope {
	if projectPath != "" {
		dir, ok := r.projectDir(projectPath)
		if !ok {
			return nil
		}
		return []scanScope{{dir: dir, encoded: filepath.Base(dir)}}
	}

	entries, err := os.ReadDir(r.ProjectsDir)
	if err != nil {
		return nil
	}
	var scopes []scanScope
	for _, e := range entries {
		if e.IsDir() {
			scopes = append(scopes, scanScope{
				dir:     filepath.Join(r.ProjectsDir, e.Name()),
				encoded: e.Name(),
			})
		}
	}
	sort.Slice(scopes, func(i, j int) bool { return scopes[i].encoded < scopes[j].encoded })
	return scopes
}

// FindSessionFile locates the JSONL file for a session id. With a project
// path the lookup is direct; otherwise every project directory is scanned
// and the first match wins.
func (r *Reader) FindSessionFile(sessionID, projectPath string) (string, error) {
	if projectPath != "" {
		if dir, ok := r.projectDir(projectPath); ok {
			candidate := filepath.Join(dir, sessionID+".jsonl")
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	for _, scope := range r.scanScopes("") {
		candidate := filepath.Join(scope.dir, sessionID+".jsonl")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
}

// sessionFile is one discovered JSONL candidate.
type sessionFile struct {
	path        string
	sessionID   string
	projectPath string
	encoded     string
	mtime       time.Time
}

// listFiles gathers session files across the scope: directories in
// descending name order, files within each directory newest first.
func (r *Reader) listFiles(projectPath string) []sessionFile {
	scopes := r.scanScopes(projectPath)
	sort.Slice(scopes, func(i, j int) bool { return scopes[i].encoded > scopes[j].encoded })

	var files []sessionFile
	for _, scope := range scopes {
		matches, err := filepath.Glob(filepath.Join(scope.dir, "*.jsonl"))
		if err != nil {
			continue
		}

		var inDir []sessionFile
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			projPath := projectPath
			if projPath == "" {
				projPath = scope.encoded
			}
			inDir = append(inDir, sessionFile{
				path:        m,
				sessionID:   strings.TrimSuffix(filepath.Base(m), ".jsonl"),
				projectPath: projPath,
				encoded:     scope.encoded,
				mtime:       info.ModTime(),
			})
		}
		sort.Slice(inDir, func(i, j int) bool { return inDir[i].mtime.After(inDir[j].mtime) })
		files = append(files, inDir...)
	}
	return files
}

// ListSessions discovers sessions in scope with a cheap metadata scan per
// file: first timestamp, message count, and branch, without full
// reconstruction. The most-recently-modified file in scope is flagged as
// the current session. An empty scope is an empty, successful result.
func (r *Reader) ListSessions(projectPath string, limit int) ([]model.SessionInfo, error) {
	files := r.listFiles(projectPath)
	if len(files) == 0 {
		return []model.SessionInfo{}, nil
	}

	currentID := ""
	var newest time.Time
	for _, f := range files {
		if f.mtime.After(newest) {
			newest = f.mtime
			currentID = f.sessionID
		}
	}

	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	sessions := make([]model.SessionInfo, 0, len(files))
	for _, f := range files {
		info := r.quickScan(f.path, f.sessionID, f.projectPath, DecodeProjectName(f.encoded))
		info.IsCurrent = f.sessionID == currentID
		sessions = append(sessions, info)
	}
	return sessions, nil
}

// quickScanEntry is the minimal decode used by listing and date bucketing.
type quickScanEntry struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	GitBranch string `json:"gitBranch"`
}

func (r *Reader) quickScan(path, sessionID, projectPath, projectName string) model.SessionInfo {
	info := model.SessionInfo{
		SessionID:   sessionID,
		ProjectPath: projectPath,
		ProjectName: projectName,
	}

	f, err := os.Open(path)
	if err != nil {
		return info
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry quickScanEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if _, noise := skipTypes[entry.Type]; noise {
			continue
		}
		if entry.Type != "user" && entry.Type != "assistant" {
			continue
		}
		info.MessageCount++
		if info.StartTime == "" && entry.Timestamp != "" {
			info.StartTime = r.toLocal(entry.Timestamp)
		}
		if info.GitBranch == "" && entry.GitBranch != "" {
			info.GitBranch = entry.GitBranch
		}
	}
	return info
}

// SessionFileRef identifies one discovered session file for callers that
// drive extraction themselves.
type SessionFileRef struct {
	Path        string
	SessionID   string
	ProjectPath string
}

// SessionFilesInScope returns every session file in scope, project
// directories in ascending name order.
func (r *Reader) SessionFilesInScope(projectPath string) []SessionFileRef {
	var refs []SessionFileRef
	for _, scope := range r.scanScopes(projectPath) {
		matches, err := filepath.Glob(filepath.Join(scope.dir, "*.jsonl"))
		if err != nil {
			continue
		}
		projPath := projectPath
		if projPath == "" {
			projPath = scope.encoded
		}
		for _, m := range matches {
			refs = append(refs, SessionFileRef{
				Path:        m,
				SessionID:   strings.TrimSuffix(filepath.Base(m), ".jsonl"),
				ProjectPath: projPath,
			})
		}
	}
	return refs
}

// SessionDate reads only the first timestamp of a file and returns its
// date (after timezone normalization) as "2006-01-02". Used to bucket
// candidate files without full reconstruction.
func (r *Reader) SessionDate(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry quickScanEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if entry.Timestamp == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, r.toLocal(entry.Timestamp))
		if err != nil {
			return "", false
		}
		return t.Format("2006-01-02"), true
	}
	return "", false
}
