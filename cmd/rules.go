package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/grovetools/proctrack/cli"
	"github.com/grovetools/proctrack/internal/db"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/grovetools/proctrack/tui/components/table"
	"github.com/spf13/cobra"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		Aliases: []string{"rule"},
		Short:   "Manage the rules that assign processes to groups",
		Long: `Manage the rules that assign processes to groups.

An exec rule matches the executable name exactly. A regex rule matches the
window title and only counts time while the title matches.

Examples:
  proctrack rules add work exec code
  proctrack rules add work regex "^.* - Jira$"
  proctrack rules ls --group work
  proctrack rules rm 3`,
	}

	cmd.AddCommand(newRulesAddCmd())
	cmd.AddCommand(newRulesRmCmd())
	cmd.AddCommand(newRulesLsCmd())

	return cmd
}

func newRulesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <group> <exec|regex> <pattern>",
		Short: "Add a rule to a group",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleType, err := models.ParseRuleType(args[1])
			if err != nil {
				return invalidInput("rule type", args[1], "expected exec or regex")
			}
			return withDB(cmd, func(ctx context.Context, database *db.DB) error {
				group, err := database.ResolveGroup(ctx, args[0])
				if err != nil {
					return err
				}
				rule, err := database.AddRule(ctx, group.ID, ruleType, args[2])
				if err != nil {
					return err
				}
				if cli.GetOptions(cmd).JSONOutput {
					return printJSON(cmd.OutOrStdout(), rule)
				}
				pretty(cmd).Success(fmt.Sprintf("Added %s rule %q to '%s' (id %d)", rule.Type, rule.Pattern, group.Name, rule.ID))
				return nil
			})
		},
	}
}

func newRulesRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <rule-id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a rule",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return invalidInput("rule id", args[0], "must be numeric")
			}
			return withDB(cmd, func(ctx context.Context, database *db.DB) error {
				if err := database.DeleteRule(ctx, id); err != nil {
					return err
				}
				pretty(cmd).Success(fmt.Sprintf("Deleted rule %d", id))
				return nil
			})
		},
	}
}

func newRulesLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List rules",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			groupRef, _ := cmd.Flags().GetString("group")
			return withDB(cmd, func(ctx context.Context, database *db.DB) error {
				var groupID int64
				if groupRef != "" {
					group, err := database.ResolveGroup(ctx, groupRef)
					if err != nil {
						return err
					}
					groupID = group.ID
				}

				rules, err := database.ListRules(ctx, groupID)
				if err != nil {
					return err
				}
				if rules == nil {
					rules = []models.Rule{}
				}

				out := cmd.OutOrStdout()
				if cli.GetOptions(cmd).JSONOutput {
					return printJSON(out, rules)
				}
				if len(rules) == 0 {
					fmt.Fprintln(out, "No rules")
					return nil
				}

				groups, err := database.ListGroups(ctx)
				if err != nil {
					return err
				}
				names := make(map[int64]string, len(groups))
				for _, g := range groups {
					names[g.ID] = g.Name
				}

				rows := make([][]string, 0, len(rules))
				for _, r := range rules {
					rows = append(rows, []string{
						strconv.FormatInt(r.ID, 10),
						names[r.GroupID],
						string(r.Type),
						r.Pattern,
					})
				}
				fmt.Fprintln(out, table.SimpleTable([]string{"ID", "GROUP", "TYPE", "PATTERN"}, rows))
				return nil
			})
		},
	}
	cmd.Flags().StringP("group", "g", "", "Only list rules of this group")
	return cmd
}
