package main

import (
	"strings"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/harness"
)

// SettingsRoundTripScenario writes, reads and removes a setting.
func SettingsRoundTripScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "proctrack-settings-roundtrip",
		Tags: []string{"settings"},
		Steps: []harness.Step{
			harness.NewStep("Set, get and unset the poll interval", func(ctx *harness.Context) error {
				if _, err := mustSucceed(ctx, "settings", "set", "tracking.recurring_delay", "3"); err != nil {
					return err
				}
				out, err := mustSucceed(ctx, "settings", "get", "tracking.recurring_delay")
				if err != nil {
					return err
				}
				if err := assert.Equal("3", strings.TrimSpace(out), "stored value should be returned"); err != nil {
					return err
				}
				if _, err := mustSucceed(ctx, "settings", "unset", "tracking.recurring_delay"); err != nil {
					return err
				}
				res, err := runProctrack(ctx, "settings", "get", "tracking.recurring_delay")
				if err != nil {
					return err
				}
				return assert.Equal(1, res.ExitCode, "removed setting should not be found")
			}),
			harness.NewStep("Reject an invalid value", func(ctx *harness.Context) error {
				res, err := runProctrack(ctx, "settings", "set", "--", "tracking.recurring_delay", "-1")
				if err != nil {
					return err
				}
				return assert.Equal(1, res.ExitCode, "negative delay should fail")
			}),
		},
	}
}

// RecordToggleScenario flips recording and reads it back through status.
func RecordToggleScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "proctrack-record-toggle",
		Tags: []string{"settings", "record"},
		Steps: []harness.Step{
			setupStep(),
			harness.NewStep("Turn recording on", func(ctx *harness.Context) error {
				out, err := mustSucceed(ctx, "record", "on")
				if err != nil {
					return err
				}
				if err := assert.Contains(out, "Recording on", "toggle should be confirmed"); err != nil {
					return err
				}
				status, err := mustSucceed(ctx, "status", "--json")
				if err != nil {
					return err
				}
				return assert.Contains(status, `"recording": true`, "status should report recording")
			}),
			harness.NewStep("Turn recording off", func(ctx *harness.Context) error {
				if _, err := mustSucceed(ctx, "record", "off"); err != nil {
					return err
				}
				status, err := mustSucceed(ctx, "status", "--json")
				if err != nil {
					return err
				}
				return assert.Contains(status, `"recording": false`, "status should report recording off")
			}),
		},
	}
}
