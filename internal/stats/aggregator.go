package stats

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sinh-x/ai-usage-log/internal/model"
	"github.com/sinh-x/ai-usage-log/internal/source"
)

const dateLayout = "2006-01-02"

// extractResult is one session's outcome within a batch.
type extractResult struct {
	stats     *model.CachedStats
	fromCache bool
	ok        bool
}

// DailyStats aggregates every session whose first timestamp falls within
// [date, dateEnd] (inclusive; dateEnd defaults to date), optionally scoped
// to one project. Candidate files are bucketed by a cheap first-timestamp
// read, then extracted through the cache with a bounded worker pool.
// Sessions whose extraction fails are skipped, never fatal to the batch.
func (e *Extractor) DailyStats(date, dateEnd, projectPath string) (*model.DailyAggregate, error) {
	start, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	end := start
	if dateEnd != "" {
		end, err = time.Parse(dateLayout, dateEnd)
		if err != nil {
			return nil, fmt.Errorf("invalid end date %q: %w", dateEnd, err)
		}
	}

	rangeStr := date
	if dateEnd != "" && dateEnd != date {
		rangeStr = date + " to " + dateEnd
	}

	var matching []source.SessionFileRef
	for _, f := range e.Reader.SessionFilesInScope(projectPath) {
		d, ok := e.Reader.SessionDate(f.Path)
		if !ok {
			continue
		}
		day, err := time.Parse(dateLayout, d)
		if err != nil {
			continue
		}
		if !day.Before(start) && !day.After(end) {
			matching = append(matching, f)
		}
	}

	results := e.extractAll(matching)

	sessions := make([]model.CachedStats, 0, len(results))
	cachedCount := 0
	parsedCount := 0
	for _, res := range results {
		if !res.ok {
			continue
		}
		sessions = append(sessions, *res.stats)
		if res.fromCache {
			cachedCount++
		} else {
			parsedCount++
		}
	}

	return aggregate(sessions, rangeStr, cachedCount, parsedCount), nil
}

// extractAll runs cache-or-parse extraction for each candidate through a
// bounded worker pool. Results keep discovery order; the fold over them is
// order-independent anyway.
func (e *Extractor) extractAll(files []source.SessionFileRef) []extractResult {
	results := make([]extractResult, len(files))
	if len(files) == 0 {
		return results
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	for i := range files {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				f := files[idx]
				stats, fromCache, err := e.ExtractSessionStats(f.SessionID, f.ProjectPath)
				if err != nil {
					logrus.WithFields(logrus.Fields{
						"session": f.SessionID,
						"error":   err,
					}).Warn("skipping session in aggregate")
					continue
				}
				results[idx] = extractResult{stats: stats, fromCache: fromCache, ok: true}
			}
		}()
	}
	wg.Wait()

	return results
}

// ExtractMany extracts stats for several session ids, dropping ids without
// a resolvable source file.
func (e *Extractor) ExtractMany(sessionIDs []string, projectPath string) []model.CachedStats {
	var out []model.CachedStats
	for _, id := range sessionIDs {
		stats, _, err := e.ExtractSessionStats(id, projectPath)
		if err != nil {
			continue
		}
		out = append(out, *stats)
	}
	return out
}

func aggregate(sessions []model.CachedStats, dateRange string, cachedCount, parsedCount int) *model.DailyAggregate {
	agg := &model.DailyAggregate{
		DateRange:         dateRange,
		TotalSessions:     len(sessions),
		ToolsHistogram:    make(map[string]int),
		ModelDistribution: make(map[string]int),
		Sessions:          sessions,
		CachedCount:       cachedCount,
		ParsedCount:       parsedCount,
	}

	projects := make(map[string]struct{})
	totalDuration := 0.0

	for i := range sessions {
		s := &sessions[i]
		totalDuration += s.DurationMinutes
		agg.TotalInputTokens += s.InputTokens
		agg.TotalOutputTokens += s.OutputTokens
		agg.TotalCacheCreationTokens += s.CacheCreationTokens
		agg.TotalCacheReadTokens += s.CacheReadTokens
		agg.TotalSubagentInputTokens += s.SubagentInputTokens
		agg.TotalSubagentOutputTokens += s.SubagentOutputTokens
		agg.TotalSubagentCacheCreationTokens += s.SubagentCacheCreationTokens
		agg.TotalToolCalls += s.TotalToolCalls
		agg.TotalUserMessages += s.TotalUserMessages
		agg.TotalAssistantMessages += s.TotalAssistantMessages

		for tool, count := range s.ToolsSummary {
			agg.ToolsHistogram[tool] += count
		}
		if s.Model != "" {
			agg.ModelDistribution[s.Model]++
		}
		projects[s.ProjectName] = struct{}{}
	}

	agg.TotalDurationMinutes = math.Round(totalDuration*10) / 10

	agg.Projects = make([]string, 0, len(projects))
	for p := range projects {
		agg.Projects = append(agg.Projects, p)
	}
	sort.Strings(agg.Projects)

	return agg
}
