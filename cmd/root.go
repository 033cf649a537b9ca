package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sinh-x/ai-usage-log/internal/config"
	"github.com/sinh-x/ai-usage-log/internal/source"
	"github.com/sinh-x/ai-usage-log/internal/stats"
)

var (
	flagClaudeDir string
	flagStatsDir  string
	flagProject   string
	flagTZOffset  float64
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "ai-usage-log",
	Short: "Claude Code session analytics from your local transcripts",
	Long: `ai-usage-log reconstructs Claude Code JSONL transcripts into readable
conversations and aggregates token usage across sessions, projects and days.

Transcripts are read from ~/.claude/projects; per-session statistics are
cached on disk and refreshed only when the source file changes.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if flagVerbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagClaudeDir, "claude-dir", "d", "", "Claude projects directory (default from config)")
	pf.StringVar(&flagStatsDir, "stats-dir", "", "statistics cache directory (default from config)")
	pf.StringVarP(&flagProject, "project", "p", "", "limit to one project path")
	pf.Float64Var(&flagTZOffset, "tz-offset", 0, "timezone offset in hours for displayed timestamps")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Debug("falling back to default config")
		return config.DefaultConfig()
	}
	return cfg
}

func newReader(cfg config.Config) *source.Reader {
	dir := flagClaudeDir
	if dir == "" {
		dir = cfg.ProjectsDir()
	}
	tz := cfg.General.TZOffsetHours
	if rootCmd.PersistentFlags().Changed("tz-offset") {
		tz = flagTZOffset
	}
	return source.NewReader(dir, tz)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func newExtractor(cfg config.Config) *stats.Extractor {
	dir := flagStatsDir
	if dir == "" {
		dir = cfg.StatisticsDir()
	}
	return stats.NewExtractor(dir, newReader(cfg))
}
