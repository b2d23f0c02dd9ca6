package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/grovetools/proctrack/cli"
	"github.com/grovetools/proctrack/pkg/daemon"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/grovetools/proctrack/tui/components/table"
	"github.com/spf13/cobra"
)

const maxTitleWidth = 60

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the windowed processes that would be tracked",
		Long: `List the windowed processes that would be tracked.

The list comes from the running daemon. Without a daemon a single poll is
made in-process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			client := daemon.New(cfg)
			defer client.Close()

			stop := func() {}
			if !client.IsRunning() {
				stop = startSpinner(cmd, "Polling windows...")
			}
			snapshot, err := client.Processes(cmd.Context())
			stop()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				if snapshot == nil {
					snapshot = models.Snapshot{}
				}
				return printJSON(out, snapshot)
			}
			if len(snapshot) == 0 {
				fmt.Fprintln(out, "No windowed processes found")
				return nil
			}
			fmt.Fprintln(out, table.SimpleTable(
				[]string{"PID", "EXECUTABLE", "TITLE", "STARTED"},
				processRows(snapshot.SortedByID()),
			))
			return nil
		},
	}
}

func processRows(snapshot models.Snapshot) [][]string {
	rows := make([][]string, 0, len(snapshot))
	for _, p := range snapshot {
		started := "-"
		if p.StartTime > 0 {
			started = time.Unix(p.StartTime, 0).Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{
			strconv.Itoa(p.ID),
			p.Executable,
			table.Truncate(p.WindowTitle, maxTitleWidth),
			started,
		})
	}
	return rows
}
