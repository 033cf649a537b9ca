package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sinh-x/ai-usage-log/internal/cli"
)

var extractJSON bool

var extractCmd = &cobra.Command{
	Use:   "extract <session-id>",
	Short: "Extract cached statistics for one session",
	Long: `Extract the flat statistics record for a session. The result is served
from the statistics cache when the source transcript is unchanged, and
re-parsed otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the stats record as JSON")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(_ *cobra.Command, args []string) error {
	cfg := loadConfig()
	st, fromCache, err := newExtractor(cfg).ExtractSessionStats(args[0], flagProject)
	if err != nil {
		return err
	}

	if extractJSON {
		return printJSON(st)
	}

	origin := "parsed"
	if fromCache {
		origin = "cache"
	}

	fmt.Println(cli.RenderTitle("SESSION STATS"))
	fmt.Println()
	fmt.Print(cli.RenderKeyValues([][2]string{
		{"Session", st.SessionID},
		{"Project", st.ProjectName},
		{"Model", st.Model},
		{"Started", st.StartTime},
		{"Duration", cli.FormatMinutes(st.DurationMinutes)},
		{"Messages", fmt.Sprintf("%d user / %d assistant", st.TotalUserMessages, st.TotalAssistantMessages)},
		{"Input", cli.FormatTokens(st.InputTokens)},
		{"Output", cli.FormatTokens(st.OutputTokens)},
		{"Cache write", cli.FormatTokens(st.CacheCreationTokens)},
		{"Cache read", cli.FormatTokens(st.CacheReadTokens)},
		{"Source", origin},
	}))
	return nil
}
