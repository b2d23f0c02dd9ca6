package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/grovetools/proctrack/cli"
	"github.com/grovetools/proctrack/internal/daemon/store"
	"github.com/grovetools/proctrack/pkg/daemon"
	"github.com/grovetools/proctrack/tui/components/table"
	"github.com/grovetools/proctrack/tui/theme"
	"github.com/spf13/cobra"
)

// StatusOutput is the JSON shape of 'proctrack status'.
type StatusOutput struct {
	Daemon bool `json:"daemon"`
	*daemon.Status
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show tracking and recording status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			client := daemon.New(cfg)
			defer client.Close()

			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(out, StatusOutput{Daemon: client.IsRunning(), Status: status})
			}
			fmt.Fprintln(out, table.StatusTable(statusRows(client.IsRunning(), status)))
			return nil
		},
	}
}

func statusRows(running bool, status *daemon.Status) [][]string {
	t := theme.DefaultTheme

	daemonState := t.Muted.Render("not running")
	if running {
		daemonState = t.Success.Render("running")
	}
	tracking := t.Muted.Render(status.Tracking)
	if status.Tracking == store.TrackingRunning {
		tracking = t.Success.Render(status.Tracking)
	}
	recording := "off"
	if status.Recording {
		recording = t.Highlight.Render("on")
	}

	rows := [][]string{
		{"Daemon", daemonState},
		{"Tracking", tracking},
	}
	if status.FatalError != "" {
		rows = append(rows, []string{"Error", t.Error.Render(status.FatalError)})
	}
	rows = append(rows,
		[]string{"Recording", recording},
		[]string{"Poll interval", time.Duration(status.RecurringDelay * float64(time.Second)).String()},
	)
	if status.LastPoll > 0 {
		rows = append(rows,
			[]string{"Last poll", table.Timestamp(status.LastPoll)},
			[]string{"Processes", strconv.Itoa(status.ProcessCount)},
		)
	}
	return rows
}
