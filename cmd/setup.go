package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/sinh-x/ai-usage-log/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()

	claudeDir := cfg.ProjectsDir()
	statsDir := cfg.StatisticsDir()
	tzStr := strconv.FormatFloat(cfg.General.TZOffsetHours, 'g', -1, 64)
	limit := cfg.General.SessionLimit

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Claude projects directory").
				Description("Where Claude Code writes its JSONL transcripts.").
				Value(&claudeDir),
			huh.NewInput().
				Title("Statistics directory").
				Description("Where per-session stats are cached as JSON.").
				Value(&statsDir),
			huh.NewInput().
				Title("Timezone offset (hours)").
				Description("Applied to displayed timestamps, e.g. 7 or -5.5. 0 keeps raw times.").
				Value(&tzStr).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
						return fmt.Errorf("not a number: %s", s)
					}
					return nil
				}),
			huh.NewSelect[int]().
				Title("Session list limit").
				Options(huh.NewOptions(10, 20, 50, 100)...).
				Value(&limit),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	cfg.General.ClaudeProjectsDir = claudeDir
	cfg.General.StatisticsDir = statsDir
	if s := strings.TrimSpace(tzStr); s != "" {
		tz, err := strconv.ParseFloat(s, 64)
		if err == nil {
			cfg.General.TZOffsetHours = tz
		}
	}
	cfg.General.SessionLimit = limit

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Saved to %s\n", config.ConfigPath())
	return nil
}
