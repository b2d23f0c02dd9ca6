package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/proctrack/cli"
	"github.com/grovetools/proctrack/internal/db"
	"github.com/grovetools/proctrack/pkg/daemon"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/grovetools/proctrack/tui/components/table"
	"github.com/grovetools/proctrack/tui/theme"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stats",
		Aliases: []string{"statistics"},
		Short:   "Show accumulated time per group",
		Long: `Show accumulated time per group.

Overlapping sessions of one group are counted once. A filter given on the
command line replaces the filter stored for a group in the settings.
--from and --to accept epoch milliseconds, RFC 3339 timestamps or dates.

Examples:
  proctrack stats
  proctrack stats --group work --from 2024-05-01
  proctrack stats --query jira --json`,
		Args: cobra.NoArgs,
		RunE: runStats,
	}

	cmd.Flags().StringP("group", "g", "", "Only show this group, with its sessions")
	cmd.Flags().StringP("query", "q", "", "Only count sessions with a title containing this text")
	cmd.Flags().String("from", "", "Only count sessions started at or after this time")
	cmd.Flags().String("to", "", "Only count sessions stopped at or before this time")

	cmd.AddCommand(newStatsClearCmd())
	cmd.AddCommand(newStatsOffsetCmd())

	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	group, _ := cmd.Flags().GetString("group")
	query, _ := cmd.Flags().GetString("query")
	fromRaw, _ := cmd.Flags().GetString("from")
	toRaw, _ := cmd.Flags().GetString("to")

	now := time.Now()
	from, err := parseTime("from", fromRaw, now)
	if err != nil {
		return err
	}
	to, err := parseTime("to", toRaw, now)
	if err != nil {
		return err
	}

	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}
	client := daemon.New(cfg)
	defer client.Close()

	result, err := client.Statistics(cmd.Context(), daemon.StatisticsQuery{
		Group:  group,
		Filter: models.StatisticsFilter{Query: query, From: from, To: to},
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cli.GetOptions(cmd).JSONOutput {
		if result == nil {
			result = []models.GroupStatistics{}
		}
		return printJSON(out, result)
	}
	renderStatistics(out, result, group != "")
	return nil
}

func renderStatistics(out io.Writer, result []models.GroupStatistics, withSessions bool) {
	t := theme.DefaultTheme
	if len(result) == 0 {
		fmt.Fprintln(out, "No groups. Create one with 'proctrack groups add <name>'.")
		return
	}

	rows := make([][]string, 0, len(result))
	for _, g := range result {
		name := g.GroupName
		if g.Active {
			name = t.Active.Render(name)
		}
		marks := ""
		if g.Filtered {
			marks = "filtered"
		}
		rows = append(rows, []string{
			name,
			table.Duration(g.GroupRuntime),
			strconv.Itoa(len(g.Sessions)),
			table.Truncate(strings.Join(g.LatestTitles, ", "), maxTitleWidth),
			marks,
		})
	}
	fmt.Fprintln(out, table.SimpleTable([]string{"GROUP", "TIME", "SESSIONS", "LATEST TITLES", ""}, rows))

	for _, g := range result {
		if g.OverlapAnomaly != models.OverlapNone {
			fmt.Fprintln(out, t.Warning.Render(fmt.Sprintf("%s: total may be inaccurate (%s)", g.GroupName, g.OverlapAnomaly)))
		}
	}

	if !withSessions {
		return
	}
	for _, g := range result {
		if len(g.Sessions) == 0 {
			continue
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, t.Bold.Render(g.GroupName+" sessions"))
		fmt.Fprintln(out, table.SimpleTable(
			[]string{"STARTED", "STOPPED", "ELAPSED", "EXECUTABLE", "TITLE"},
			sessionRows(g.Sessions),
		))
	}
}

func sessionRows(sessions []models.SessionView) [][]string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		stopped := "open"
		if s.StoppedAt != nil {
			stopped = table.Timestamp(*s.StoppedAt)
		}
		title := ""
		if n := len(s.TitleHistory); n > 0 {
			title = s.TitleHistory[n-1].Title
		}
		rows = append(rows, []string{
			table.Timestamp(s.StartedAt),
			stopped,
			table.Duration(s.Elapsed),
			s.Executable,
			table.Truncate(title, maxTitleWidth),
		})
	}
	return rows
}

func newStatsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <group>",
		Short: "Delete the recorded sessions of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, database *db.DB) error {
				group, err := database.ResolveGroup(ctx, args[0])
				if err != nil {
					return err
				}
				n, err := database.DeleteGroupData(ctx, group.ID)
				if err != nil {
					return err
				}
				pretty(cmd).Success(fmt.Sprintf("Deleted %d sessions of '%s'", n, group.Name))
				return nil
			})
		},
	}
}

func newStatsOffsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "offset <group> <ms|now|0>",
		Short: "Hide sessions that started before a point in time",
		Long: `Hide sessions that started before a point in time.

The offset only changes what statistics show; no session is deleted.
An offset of 0 shows everything again.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, err := parseTime("offset", args[1], time.Now())
			if err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, database *db.DB) error {
				group, err := database.ResolveGroup(ctx, args[0])
				if err != nil {
					return err
				}
				if err := database.SetGroupViewOffset(ctx, group.ID, offset); err != nil {
					return err
				}
				if offset == 0 {
					pretty(cmd).Success(fmt.Sprintf("Cleared the view offset of '%s'", group.Name))
				} else {
					pretty(cmd).Success(fmt.Sprintf("'%s' now counts sessions from %s", group.Name, table.Timestamp(offset)))
				}
				return nil
			})
		},
	}
}
