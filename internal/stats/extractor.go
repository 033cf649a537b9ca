// Package stats extracts compact per-session statistics, caches them on
// disk keyed by source modification time, and aggregates them over date
// ranges.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sinh-x/ai-usage-log/internal/model"
	"github.com/sinh-x/ai-usage-log/internal/source"
)

// filenameUnsafe matches characters that cannot appear in cache filenames.
var filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Extractor caches compact session stats in StatisticsDir, one JSON file
// per session named <date>--<project>--<session-id>.json.
type Extractor struct {
	StatisticsDir string
	Reader        *source.Reader
}

// NewExtractor returns an Extractor writing to statisticsDir.
func NewExtractor(statisticsDir string, r *source.Reader) *Extractor {
	return &Extractor{StatisticsDir: statisticsDir, Reader: r}
}

// ExtractSessionStats returns the cached stats for a session when the
// source file is unchanged, otherwise re-parses and refreshes the cache.
// fromCache reports which path was taken.
func (e *Extractor) ExtractSessionStats(sessionID, projectPath string) (*model.CachedStats, bool, error) {
	path, err := e.Reader.FindSessionFile(sessionID, projectPath)
	if err != nil {
		return nil, false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, false, fmt.Errorf("stat session file: %w", err)
	}
	mtimeNs := info.ModTime().UnixNano()

	if cached := e.findCached(sessionID); cached != nil && cached.SourceMtimeNs == mtimeNs {
		logrus.WithField("session", sessionID).Debug("stats cache hit")
		return cached, true, nil
	}

	logrus.WithField("session", sessionID).Debug("stats cache miss, reparsing")
	rec, err := e.Reader.ReadSession(sessionID, projectPath)
	if err != nil {
		return nil, false, err
	}

	stats := toCachedStats(rec, mtimeNs, path)
	if err := e.saveCache(stats); err != nil {
		return nil, false, err
	}
	return stats, false, nil
}

// cachePath builds <statistics-dir>/<date>--<project>--<session-id>.json.
func (e *Extractor) cachePath(sessionID, date, projectName string) string {
	safe := strings.Trim(filenameUnsafe.ReplaceAllString(projectName, "-"), "-")
	if safe == "" {
		safe = "unknown"
	}
	return filepath.Join(e.StatisticsDir, fmt.Sprintf("%s--%s--%s.json", date, safe, sessionID))
}

// findCached looks up an existing cache entry by session-id suffix alone.
// The date/project prefix is deliberately not required to match, so a
// session whose computed date or project changes is still found and simply
// overwritten (old files are left behind). A corrupt file is a miss.
func (e *Extractor) findCached(sessionID string) *model.CachedStats {
	matches, err := filepath.Glob(filepath.Join(e.StatisticsDir, "*--*--"+sessionID+".json"))
	if err != nil || len(matches) == 0 {
		return nil
	}

	raw, err := os.ReadFile(matches[0])
	if err != nil {
		return nil
	}
	var stats model.CachedStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil
	}
	return &stats
}

func (e *Extractor) saveCache(stats *model.CachedStats) error {
	date := "unknown"
	if len(stats.StartTime) >= 10 {
		date = stats.StartTime[:10]
	}
	path := e.cachePath(stats.SessionID, date, stats.ProjectName)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating statistics dir: %w", err)
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing stats cache: %w", err)
	}
	return nil
}

func toCachedStats(rec *model.SessionRecord, mtimeNs int64, path string) *model.CachedStats {
	return &model.CachedStats{
		SessionID:   rec.SessionID,
		ProjectName: rec.ProjectName,
		ProjectPath: rec.ProjectPath,
		GitBranch:   rec.GitBranch,
		Model:       rec.Model,

		StartTime:       rec.StartTime,
		EndTime:         rec.EndTime,
		DurationMinutes: rec.DurationMinutes,

		TotalUserMessages:      rec.TotalUserMessages,
		TotalAssistantMessages: rec.TotalAssistantMessages,
		TotalToolCalls:         rec.TotalToolCalls,

		InputTokens:         rec.InputTokens,
		OutputTokens:        rec.OutputTokens,
		CacheCreationTokens: rec.CacheCreationTokens,
		CacheReadTokens:     rec.CacheReadTokens,

		SubagentInputTokens:         rec.SubagentInputTokens,
		SubagentOutputTokens:        rec.SubagentOutputTokens,
		SubagentCacheCreationTokens: rec.SubagentCacheCreationTokens,

		ToolsSummary: rec.ToolsSummary,

		SourceMtimeNs: mtimeNs,
		SourcePath:    path,
	}
}
