package cmd

import (
	"fmt"

	"github.com/grovetools/proctrack/cli"
	"github.com/grovetools/proctrack/config"
	"github.com/grovetools/proctrack/pkg/paths"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the proctrack.yml configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSchemaCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with defaults applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				var doc map[string]interface{}
				if err := yaml.Unmarshal(data, &doc); err != nil {
					return fmt.Errorf("failed to convert configuration: %w", err)
				}
				return printJSON(out, doc)
			}

			if source := configSource(cmd); source != "" {
				fmt.Fprintf(out, "# Source: %s\n", source)
			}
			fmt.Fprint(out, string(data))
			return nil
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of proctrack.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return fmt.Errorf("failed to generate schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

// configSource names the file the configuration came from, or "" when only
// defaults apply.
func configSource(cmd *cobra.Command) string {
	if file := cli.GetOptions(cmd).ConfigFile; file != "" {
		return file
	}
	path, err := config.FindConfigFile(paths.ConfigDir())
	if err != nil {
		return ""
	}
	return path
}
