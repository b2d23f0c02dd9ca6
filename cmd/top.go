package cmd

import (
	"time"

	"github.com/grovetools/proctrack/cli"
	"github.com/grovetools/proctrack/pkg/daemon"
	"github.com/grovetools/proctrack/tui"
	"github.com/grovetools/proctrack/tui/dashboard"
	"github.com/spf13/cobra"
)

func newTopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Live dashboard of groups and processes",
		Long: `Live dashboard of groups and processes.

With a running daemon the dashboard follows its event stream. Otherwise it
refreshes from the database on an interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, _ := cmd.Flags().GetDuration("interval")

			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			client := daemon.New(cfg)
			defer client.Close()

			return tui.Run(dashboard.New(client, interval))
		},
	}
	cmd.Flags().Duration("interval", 2*time.Second, "Refresh interval without a daemon")
	return cmd
}
