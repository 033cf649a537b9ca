package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sinh-x/ai-usage-log/internal/cli"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent Claude Code sessions",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "l", 0, "max sessions to list (default from config)")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	limit := sessionsLimit
	if limit <= 0 {
		limit = cfg.General.SessionLimit
	}

	infos, err := newReader(cfg).ListSessions(flagProject, limit)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	rows := make([][]string, 0, len(infos))
	for _, s := range infos {
		marker := ""
		if s.IsCurrent {
			marker = "*"
		}
		rows = append(rows, []string{
			marker,
			cli.Truncate(s.SessionID, 12),
			s.ProjectName,
			s.GitBranch,
			s.StartTime,
			strconv.Itoa(s.MessageCount),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "SESSIONS",
		Headers: []string{"", "Session", "Project", "Branch", "Started", "Msgs"},
		Rows:    rows,
	}))
	return nil
}
