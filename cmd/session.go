package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sinh-x/ai-usage-log/internal/cli"
	"github.com/sinh-x/ai-usage-log/internal/model"
)

var sessionJSON bool

var sessionCmd = &cobra.Command{
	Use:   "session <session-id>",
	Short: "Show a fully reconstructed session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSession,
}

func init() {
	sessionCmd.Flags().BoolVar(&sessionJSON, "json", false, "print the raw session record as JSON")
	rootCmd.AddCommand(sessionCmd)
}

func runSession(_ *cobra.Command, args []string) error {
	cfg := loadConfig()
	rec, err := newReader(cfg).ReadSession(args[0], flagProject)
	if err != nil {
		return err
	}

	if sessionJSON {
		return printJSON(rec)
	}

	fmt.Println(cli.RenderTitle("SESSION " + cli.Truncate(rec.SessionID, 20)))
	fmt.Println()
	fmt.Print(cli.RenderKeyValues([][2]string{
		{"Project", rec.ProjectName},
		{"Branch", rec.GitBranch},
		{"Model", rec.Model},
		{"Started", rec.StartTime},
		{"Duration", cli.FormatMinutes(rec.DurationMinutes)},
		{"Messages", fmt.Sprintf("%d user / %d assistant", rec.TotalUserMessages, rec.TotalAssistantMessages)},
		{"Tool calls", strconv.Itoa(rec.TotalToolCalls)},
		{"Tokens", cli.FormatTokens(rec.TotalTokens)},
		{"Cache read", cli.FormatTokens(rec.CacheReadTokens)},
	}))
	fmt.Println()

	if len(rec.Conversation) > 0 {
		rows := make([][]string, 0, len(rec.Conversation))
		for _, turn := range rec.Conversation {
			rows = append(rows, []string{
				cli.Truncate(turn.UserPrompt, 44),
				strconv.Itoa(len(turn.ToolsUsed)),
				cli.FormatTokens(turn.Tokens.Total()),
				cli.FormatTokens(turn.ContextWindow),
				subagentCell(turn.SubagentTokens),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "CONVERSATION",
			Headers: []string{"Prompt", "Tools", "Tokens", "Context", "Subagent"},
			Rows:    rows,
		}))
		fmt.Println()
	}

	if len(rec.FilesWritten) > 0 {
		fmt.Print(cli.RenderKeyValues([][2]string{
			{"Files written", strings.Join(rec.FilesWritten, ", ")},
		}))
	}
	if len(rec.CommandsRun) > 0 {
		fmt.Print(cli.RenderKeyValues([][2]string{
			{"Commands", strconv.Itoa(len(rec.CommandsRun))},
		}))
	}
	return nil
}

func subagentCell(t *model.TurnTokens) string {
	if t == nil {
		return "-"
	}
	return cli.FormatTokens(t.Total())
}
