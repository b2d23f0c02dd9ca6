package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/grovetools/proctrack/cli"
	"github.com/grovetools/proctrack/internal/db"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/grovetools/proctrack/settings"
	"github.com/grovetools/proctrack/tui/components/table"
	"github.com/spf13/cobra"
)

func newGroupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "groups",
		Aliases: []string{"group"},
		Short:   "Manage tracking groups",
		Long: `Manage tracking groups. A group collects rules and reports their combined time.
Groups can be referenced by name or id.

Examples:
  proctrack groups add work
  proctrack groups rename work client-work
  proctrack groups rm client-work`,
	}

	cmd.AddCommand(newGroupsAddCmd())
	cmd.AddCommand(newGroupsRenameCmd())
	cmd.AddCommand(newGroupsRmCmd())
	cmd.AddCommand(newGroupsLsCmd())

	return cmd
}

func newGroupsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, database *db.DB) error {
				group, err := database.CreateGroup(ctx, args[0])
				if err != nil {
					return err
				}
				if cli.GetOptions(cmd).JSONOutput {
					return printJSON(cmd.OutOrStdout(), group)
				}
				pretty(cmd).Success(fmt.Sprintf("Created group '%s' (id %d)", group.Name, group.ID))
				return nil
			})
		},
	}
}

func newGroupsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <group> <new-name>",
		Short: "Rename a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, database *db.DB) error {
				group, err := database.ResolveGroup(ctx, args[0])
				if err != nil {
					return err
				}
				if err := database.RenameGroup(ctx, group.ID, args[1]); err != nil {
					return err
				}
				pretty(cmd).Success(fmt.Sprintf("Renamed group '%s' to '%s'", group.Name, args[1]))
				return nil
			})
		},
	}
}

func newGroupsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <group>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a group with its rules and sessions",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, database *db.DB) error {
				group, err := database.ResolveGroup(ctx, args[0])
				if err != nil {
					return err
				}
				if err := database.DeleteGroup(ctx, group.ID); err != nil {
					return err
				}
				if err := clearStoredFilter(settings.Open(""), group.ID); err != nil {
					pretty(cmd).WarnPretty(fmt.Sprintf("Could not remove stored filters: %v", err))
				}
				pretty(cmd).Success(fmt.Sprintf("Deleted group '%s'", group.Name))
				return nil
			})
		},
	}
}

// clearStoredFilter drops the persisted statistics filter of a group.
func clearStoredFilter(store *settings.Store, groupID int64) error {
	for _, field := range []string{"query", "from", "to"} {
		if err := store.Delete(settings.FilterKey(groupID, field)); err != nil {
			return err
		}
	}
	return nil
}

// GroupListing is one row of 'groups ls --json'.
type GroupListing struct {
	models.Group
	Rules int `json:"rules"`
}

func newGroupsLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List groups",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, database *db.DB) error {
				groups, err := database.ListGroups(ctx)
				if err != nil {
					return err
				}
				rules, err := database.ListRules(ctx, 0)
				if err != nil {
					return err
				}
				ruleCount := make(map[int64]int)
				for _, r := range rules {
					ruleCount[r.GroupID]++
				}

				listing := make([]GroupListing, 0, len(groups))
				for _, g := range groups {
					listing = append(listing, GroupListing{Group: g, Rules: ruleCount[g.ID]})
				}

				out := cmd.OutOrStdout()
				if cli.GetOptions(cmd).JSONOutput {
					return printJSON(out, listing)
				}
				if len(listing) == 0 {
					fmt.Fprintln(out, "No groups. Create one with 'proctrack groups add <name>'.")
					return nil
				}
				rows := make([][]string, 0, len(listing))
				for _, g := range listing {
					rows = append(rows, []string{
						strconv.FormatInt(g.ID, 10),
						g.Name,
						strconv.Itoa(g.Rules),
						table.Timestamp(g.ViewOffset),
					})
				}
				fmt.Fprintln(out, table.SimpleTable([]string{"ID", "NAME", "RULES", "VIEW OFFSET"}, rows))
				return nil
			})
		},
	}
}
