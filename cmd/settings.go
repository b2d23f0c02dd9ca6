package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/grovetools/proctrack/cli"
	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/settings"
	"github.com/grovetools/proctrack/tui/components/table"
	"github.com/grovetools/proctrack/tui/theme"
	"github.com/spf13/cobra"
)

var knownSettings = [][]string{
	{settings.KeyInitialDelay, "seconds before the first poll"},
	{settings.KeyRecurringDelay, "seconds between polls"},
	{settings.KeyRecording, "write sessions (true/false)"},
	{settings.KeyLatestTitleCount, "titles listed per group"},
	{"filters.<group-id>.query", "stored statistics title filter"},
	{"filters.<group-id>.from", "stored lower bound, epoch ms"},
	{"filters.<group-id>.to", "stored upper bound, epoch ms"},
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change runtime settings",
		Long: `Read and change runtime settings.

Settings live in settings.yml under the state directory. A running daemon
reloads the file when it changes.`,
	}
	cli.SetStyledHelpWithExtras(cmd, func(out io.Writer, t *theme.Theme) {
		fmt.Fprintln(out, "\n "+t.Highlight.Render("KEYS"))
		for _, k := range knownSettings {
			fmt.Fprintf(out, " %-30s %s\n", k[0], t.Muted.Render(k[1]))
		}
	})

	cmd.AddCommand(newSettingsGetCmd())
	cmd.AddCommand(newSettingsSetCmd())
	cmd.AddCommand(newSettingsUnsetCmd())

	return cmd
}

func newSettingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := settings.Open("")
			out := cmd.OutOrStdout()
			jsonOutput := cli.GetOptions(cmd).JSONOutput

			if len(args) == 1 {
				value, ok, err := store.Get(args[0])
				if err != nil {
					return err
				}
				if !ok {
					return errors.NotFound("setting", args[0])
				}
				if jsonOutput {
					return printJSON(out, map[string]interface{}{args[0]: value})
				}
				fmt.Fprintln(out, value)
				return nil
			}

			all, err := store.Load()
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(out, all)
			}
			if len(all) == 0 {
				fmt.Fprintln(out, "No settings stored")
				return nil
			}
			keys := make([]string, 0, len(all))
			for k := range all {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			rows := make([][]string, 0, len(keys))
			for _, k := range keys {
				rows = append(rows, []string{k, fmt.Sprint(all[k])})
			}
			fmt.Fprintln(out, table.StatusTable(rows))
			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := settings.ParseValue(args[1])
			if err := settings.Open("").Set(args[0], value); err != nil {
				return err
			}
			pretty(cmd).Success(fmt.Sprintf("%s = %v", args[0], value))
			return nil
		},
	}
}

func newSettingsUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a setting so its default applies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := settings.Open("").Delete(args[0]); err != nil {
				return err
			}
			pretty(cmd).Success(fmt.Sprintf("Removed %s", args[0]))
			return nil
		},
	}
}
