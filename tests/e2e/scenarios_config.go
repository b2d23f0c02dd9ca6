package main

import (
	"path/filepath"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/fs"
	"github.com/grovetools/tend/pkg/harness"
)

// ConfigDefaultsScenario checks that defaults fill an almost empty config.
func ConfigDefaultsScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "proctrack-config-defaults",
		Description: "Verifies that missing settings in proctrack.yml take their defaults.",
		Tags:        []string{"config"},
		Steps: []harness.Step{
			setupStep(),
			harness.NewStep("Show the effective configuration", func(ctx *harness.Context) error {
				out, err := mustSucceed(ctx, "config", "show")
				if err != nil {
					return err
				}
				if err := assert.Contains(out, "initial_delay: 5s", "initial delay default"); err != nil {
					return err
				}
				if err := assert.Contains(out, "recurring_delay: 1s", "recurring delay default"); err != nil {
					return err
				}
				return assert.Contains(out, "# Source:", "the config file should be named")
			}),
		},
	}
}

// ConfigSchemaScenario checks 'config schema'.
func ConfigSchemaScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "proctrack-config-schema",
		Tags: []string{"config"},
		Steps: []harness.Step{
			harness.NewStep("Print the schema", func(ctx *harness.Context) error {
				out, err := mustSucceed(ctx, "config", "schema")
				if err != nil {
					return err
				}
				if err := assert.Contains(out, `"tracker"`, "schema should describe the tracker section"); err != nil {
					return err
				}
				return assert.Contains(out, `"logging"`, "schema should include the logging extension")
			}),
		},
	}
}

// ConfigInvalidScenario checks that validation errors stop commands.
func ConfigInvalidScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "proctrack-config-invalid",
		Description: "Verifies that a malformed duration is rejected with a pointer to the field.",
		Tags:        []string{"config"},
		Steps: []harness.Step{
			harness.NewStep("Reject a bad recurring delay", func(ctx *harness.Context) error {
				dir := ctx.NewDir("bad-config")
				path := filepath.Join(dir, "proctrack.yml")
				if err := fs.WriteString(path, "tracker:\n  recurring_delay: soon\n"); err != nil {
					return err
				}
				ctx.Set("config", path)

				res, err := runProctrack(ctx, "groups", "ls")
				if err != nil {
					return err
				}
				if err := assert.Equal(1, res.ExitCode, "invalid config should fail"); err != nil {
					return err
				}
				return assert.Contains(res.Stderr, "tracker.recurring_delay", "the offending field should be named")
			}),
		},
	}
}
