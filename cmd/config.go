package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sinh-x/ai-usage-log/internal/cli"
	"github.com/sinh-x/ai-usage-log/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()

	status := "defaults (run `ai-usage-log setup` to create)"
	if config.Exists() {
		status = config.ConfigPath()
	}

	fmt.Println(cli.RenderTitle("CONFIGURATION"))
	fmt.Println()
	fmt.Print(cli.RenderKeyValues([][2]string{
		{"Config file", status},
		{"Claude projects", cfg.ProjectsDir()},
		{"Statistics dir", cfg.StatisticsDir()},
		{"TZ offset", strconv.FormatFloat(cfg.General.TZOffsetHours, 'g', -1, 64) + "h"},
		{"Session limit", strconv.Itoa(cfg.General.SessionLimit)},
	}))
	return nil
}
