package cmd

import (
	"github.com/grovetools/proctrack/cli"
	"github.com/grovetools/proctrack/pkg/profiling"
	"github.com/grovetools/proctrack/version"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the proctrack command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"proctrack",
		"Track how long applications stay open, grouped by rules",
	)
	root.Long = `Track how long applications stay open, grouped by rules.

A background daemon polls the windowed processes of the desktop session and
records tracking sessions for every process matched by a rule. Groups collect
rules and report the union of their session time.

Examples:
  # Start tracking in the foreground
  proctrack daemon start

  # Track every Firefox window in a "browsing" group
  proctrack groups add browsing
  proctrack rules add browsing exec firefox
  proctrack record on

  # Show accumulated time per group
  proctrack stats`
	cli.SetVersionTemplate(root, version.GetInfo())
	profiling.NewCobraProfiler().Attach(root)

	root.AddCommand(
		newDaemonCmd(),
		newStatusCmd(),
		newListCmd(),
		newGroupsCmd(),
		newRulesCmd(),
		newStatsCmd(),
		newRecordCmd(),
		newSettingsCmd(),
		newConfigCmd(),
		newLogsCmd(),
		newTopCmd(),
		newPathsCmd(),
		cli.NewVersionCommand("proctrack"),
	)

	cli.ApplyStyledHelpRecursive(root)
	return root
}

// Execute runs the root command and reports errors through the CLI error
// handler. It returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	cmd, err := root.ExecuteC()
	if err != nil {
		if cmd == nil {
			cmd = root
		}
		cli.NewErrorHandler(cli.GetOptions(cmd).Verbose).Handle(err)
		return 1
	}
	return 0
}
