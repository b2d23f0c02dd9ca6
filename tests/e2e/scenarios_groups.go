package main

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/harness"
)

// GroupsCRUDScenario walks a group through its lifecycle.
func GroupsCRUDScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "proctrack-groups-crud",
		Description: "Creates, renames, lists and deletes a group.",
		Tags:        []string{"groups"},
		Steps: []harness.Step{
			setupStep(),
			harness.NewStep("Create a group", func(ctx *harness.Context) error {
				out, err := mustSucceed(ctx, "groups", "add", "work")
				if err != nil {
					return err
				}
				return assert.Contains(out, "Created group 'work'", "creation should be confirmed")
			}),
			harness.NewStep("Reject a duplicate name", func(ctx *harness.Context) error {
				res, err := runProctrack(ctx, "groups", "add", "work")
				if err != nil {
					return err
				}
				if err := assert.Equal(1, res.ExitCode, "duplicate group should fail"); err != nil {
					return err
				}
				return assert.Contains(res.Stderr, "CONFLICT", "error code should be reported")
			}),
			harness.NewStep("Rename and list", func(ctx *harness.Context) error {
				if _, err := mustSucceed(ctx, "groups", "rename", "work", "client"); err != nil {
					return err
				}
				out, err := mustSucceed(ctx, "groups", "ls")
				if err != nil {
					return err
				}
				if err := assert.Contains(out, "client", "renamed group should be listed"); err != nil {
					return err
				}
				return assert.NotContains(out, "work", "old name should be gone")
			}),
			harness.NewStep("Delete", func(ctx *harness.Context) error {
				if _, err := mustSucceed(ctx, "groups", "rm", "client"); err != nil {
					return err
				}
				out, err := mustSucceed(ctx, "groups", "ls", "--json")
				if err != nil {
					return err
				}
				return assert.Contains(out, "[]", "no groups should remain")
			}),
		},
	}
}

// RulesCRUDScenario adds and removes rules of both types.
func RulesCRUDScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "proctrack-rules-crud",
		Description: "Adds exec and regex rules, rejects invalid patterns and deletes a rule.",
		Tags:        []string{"rules"},
		Steps: []harness.Step{
			setupStep(),
			harness.NewStep("Add rules", func(ctx *harness.Context) error {
				if _, err := mustSucceed(ctx, "groups", "add", "browsing"); err != nil {
					return err
				}
				if _, err := mustSucceed(ctx, "rules", "add", "browsing", "exec", "firefox"); err != nil {
					return err
				}
				out, err := mustSucceed(ctx, "rules", "add", "browsing", "regex", "GitHub$", "--json")
				if err != nil {
					return err
				}
				var rule struct {
					ID int64 `json:"id"`
				}
				if err := json.Unmarshal([]byte(out), &rule); err != nil {
					return fmt.Errorf("rules add --json is not JSON: %w", err)
				}
				ctx.Set("rule_id", fmt.Sprint(rule.ID))
				return nil
			}),
			harness.NewStep("Reject an invalid regex", func(ctx *harness.Context) error {
				res, err := runProctrack(ctx, "rules", "add", "browsing", "regex", "(unclosed")
				if err != nil {
					return err
				}
				if err := assert.Equal(1, res.ExitCode, "invalid regex should fail"); err != nil {
					return err
				}
				return assert.Contains(res.Stderr, "INVALID_PATTERN", "error code should be reported")
			}),
			harness.NewStep("Delete a rule", func(ctx *harness.Context) error {
				if _, err := mustSucceed(ctx, "rules", "rm", ctx.GetString("rule_id")); err != nil {
					return err
				}
				out, err := mustSucceed(ctx, "rules", "ls", "--group", "browsing")
				if err != nil {
					return err
				}
				if err := assert.Contains(out, "firefox", "exec rule should remain"); err != nil {
					return err
				}
				return assert.NotContains(out, "GitHub$", "regex rule should be gone")
			}),
		},
	}
}

// StatsEmptyGroupScenario reads statistics without a daemon.
func StatsEmptyGroupScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "proctrack-stats-empty",
		Description: "Statistics of a new group are zero and come from the database when no daemon runs.",
		Tags:        []string{"stats"},
		Steps: []harness.Step{
			setupStep(),
			harness.NewStep("Query statistics", func(ctx *harness.Context) error {
				if _, err := mustSucceed(ctx, "groups", "add", "writing"); err != nil {
					return err
				}
				out, err := mustSucceed(ctx, "stats", "--json")
				if err != nil {
					return err
				}
				var result []struct {
					GroupName    string `json:"group_name"`
					GroupRuntime int64  `json:"group_runtime"`
				}
				if err := json.Unmarshal([]byte(out), &result); err != nil {
					return fmt.Errorf("stats --json is not JSON: %w", err)
				}
				if err := assert.Equal(1, len(result), "one group expected"); err != nil {
					return err
				}
				return assert.Equal(int64(0), result[0].GroupRuntime, "new group has no time")
			}),
			harness.NewStep("Set and clear a view offset", func(ctx *harness.Context) error {
				if _, err := mustSucceed(ctx, "stats", "offset", "writing", "now"); err != nil {
					return err
				}
				out, err := mustSucceed(ctx, "stats", "clear", "writing")
				if err != nil {
					return err
				}
				return assert.Contains(out, "Deleted 0 sessions", "nothing was recorded")
			}),
		},
	}
}
