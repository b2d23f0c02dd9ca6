package cmd

import (
	"fmt"
	"time"

	"github.com/grovetools/proctrack/cli"
	"github.com/grovetools/proctrack/logging"
	"github.com/grovetools/proctrack/pkg/paths"
	"github.com/grovetools/proctrack/settings"
	"github.com/grovetools/proctrack/tui/components/table"
	"github.com/spf13/cobra"
)

// PathsOutput lists the files and directories proctrack uses.
type PathsOutput struct {
	ConfigDir  string `json:"config_dir"`
	ConfigFile string `json:"config_file,omitempty"`
	StateDir   string `json:"state_dir"`
	LogDir     string `json:"log_dir"`
	RuntimeDir string `json:"runtime_dir"`
	Database   string `json:"database"`
	Settings   string `json:"settings"`
	Socket     string `json:"socket"`
	PidFile    string `json:"pid_file"`
	DaemonLog  string `json:"daemon_log"`
}

func newPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by proctrack",
		Long: `Print the paths used by proctrack.

All of them move under one directory when PROCTRACK_HOME is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			output := PathsOutput{
				ConfigDir:  paths.ConfigDir(),
				ConfigFile: configSource(cmd),
				StateDir:   paths.StateDir(),
				LogDir:     paths.LogDir(),
				RuntimeDir: paths.RuntimeDir(),
				Database:   cfg.Database.Path,
				Settings:   settings.Open("").Path(),
				Socket:     paths.SocketPath(),
				PidFile:    paths.PidFilePath(),
				DaemonLog:  logging.LogFilePath("proctrackd", time.Now()),
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(out, output)
			}
			fmt.Fprintln(out, table.StatusTable([][]string{
				{"Config dir", output.ConfigDir},
				{"Config file", orDash(output.ConfigFile)},
				{"State dir", output.StateDir},
				{"Log dir", output.LogDir},
				{"Runtime dir", output.RuntimeDir},
				{"Database", output.Database},
				{"Settings", output.Settings},
				{"Socket", output.Socket},
				{"PID file", output.PidFile},
				{"Daemon log", output.DaemonLog},
			}))
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
