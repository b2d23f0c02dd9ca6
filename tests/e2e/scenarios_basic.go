package main

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/harness"
)

// VersionScenario tests the 'version' command.
func VersionScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "proctrack-basic-version",
		Tags: []string{"basic"},
		Steps: []harness.Step{
			harness.NewStep("Run 'proctrack version'", func(ctx *harness.Context) error {
				out, err := mustSucceed(ctx, "version")
				if err != nil {
					return err
				}
				if err := assert.Contains(out, "proctrack", "Output should name the tool"); err != nil {
					return err
				}
				if err := assert.Contains(out, "Commit:", "Output should contain Commit"); err != nil {
					return err
				}
				return assert.Contains(out, "Platform:", "Output should contain Platform")
			}),
			harness.NewStep("Run 'proctrack version --json'", func(ctx *harness.Context) error {
				out, err := mustSucceed(ctx, "version", "--json")
				if err != nil {
					return err
				}
				var info map[string]interface{}
				if err := json.Unmarshal([]byte(out), &info); err != nil {
					return fmt.Errorf("version --json is not JSON: %w", err)
				}
				if _, ok := info["goVersion"]; !ok {
					return fmt.Errorf("version --json lacks goVersion: %s", out)
				}
				return nil
			}),
		},
	}
}

// PathsScenario verifies that the database path follows the config file.
func PathsScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "proctrack-basic-paths",
		Tags: []string{"basic", "config"},
		Steps: []harness.Step{
			setupStep(),
			harness.NewStep("Database path comes from proctrack.yml", func(ctx *harness.Context) error {
				out, err := mustSucceed(ctx, "paths", "--json")
				if err != nil {
					return err
				}
				var p map[string]string
				if err := json.Unmarshal([]byte(out), &p); err != nil {
					return fmt.Errorf("paths --json is not JSON: %w", err)
				}
				if err := assert.Contains(p["database"], "proctrack-config", "database should live in the sandbox config dir"); err != nil {
					return err
				}
				return assert.Contains(p["socket"], "proctrackd.sock", "socket path should be reported")
			}),
		},
	}
}
