package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sinh-x/ai-usage-log/internal/cli"
)

var (
	dailyUntil string
	dailyJSON  bool
)

var dailyCmd = &cobra.Command{
	Use:   "daily [date]",
	Short: "Aggregate usage for a day or date range",
	Long: `Aggregate session statistics for one day (default today) or an
inclusive range when --until is given. Dates are YYYY-MM-DD.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDaily,
}

func init() {
	dailyCmd.Flags().StringVar(&dailyUntil, "until", "", "end date of an inclusive range (YYYY-MM-DD)")
	dailyCmd.Flags().BoolVar(&dailyJSON, "json", false, "print the aggregate as JSON")
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(_ *cobra.Command, args []string) error {
	date := time.Now().Format("2006-01-02")
	if len(args) == 1 {
		date = args[0]
	}

	cfg := loadConfig()
	agg, err := newExtractor(cfg).DailyStats(date, dailyUntil, flagProject)
	if err != nil {
		return err
	}

	if dailyJSON {
		return printJSON(agg)
	}

	fmt.Println(cli.RenderTitle("DAILY USAGE " + agg.DateRange))
	fmt.Println()
	fmt.Print(cli.RenderKeyValues([][2]string{
		{"Sessions", fmt.Sprintf("%d (%d cached, %d parsed)", agg.TotalSessions, agg.CachedCount, agg.ParsedCount)},
		{"Projects", strings.Join(agg.Projects, ", ")},
		{"Duration", cli.FormatMinutes(agg.TotalDurationMinutes)},
		{"Messages", fmt.Sprintf("%d user / %d assistant", agg.TotalUserMessages, agg.TotalAssistantMessages)},
		{"Tool calls", strconv.Itoa(agg.TotalToolCalls)},
		{"Input", cli.FormatTokens(agg.TotalInputTokens)},
		{"Output", cli.FormatTokens(agg.TotalOutputTokens)},
		{"Cache write", cli.FormatTokens(agg.TotalCacheCreationTokens)},
		{"Cache read", cli.FormatTokens(agg.TotalCacheReadTokens)},
	}))
	fmt.Println()

	if len(agg.ToolsHistogram) > 0 {
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "TOOLS",
			Headers: []string{"Tool", "Calls"},
			Rows:    histogramRows(agg.ToolsHistogram),
		}))
		fmt.Println()
	}

	if len(agg.ModelDistribution) > 0 {
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "MODELS",
			Headers: []string{"Model", "Sessions"},
			Rows:    histogramRows(agg.ModelDistribution),
		}))
	}
	return nil
}

// histogramRows sorts by count descending, then name, for stable output.
func histogramRows(hist map[string]int) [][]string {
	type kv struct {
		name  string
		count int
	}
	entries := make([]kv, 0, len(hist))
	for name, count := range hist {
		entries = append(entries, kv{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.name, strconv.Itoa(e.count)})
	}
	return rows
}
