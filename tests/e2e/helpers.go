package main

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/grovetools/tend/pkg/fs"
	"github.com/grovetools/tend/pkg/harness"
)

// findProctrackBinary finds the proctrack binary under test. The test
// runner puts the freshly built ./bin first on PATH.
func findProctrackBinary() (string, error) {
	path, err := exec.LookPath("proctrack")
	if err != nil {
		return "", fmt.Errorf("could not find 'proctrack' binary in PATH; build it into ./bin first")
	}
	return path, nil
}

// writeSandboxConfig writes a proctrack.yml whose database lives inside the
// scenario sandbox and returns its path.
func writeSandboxConfig(ctx *harness.Context, extra string) (string, error) {
	dir := ctx.NewDir("proctrack-config")
	path := filepath.Join(dir, "proctrack.yml")
	content := fmt.Sprintf("database:\n  path: %s\n%s", filepath.Join(dir, "proctrack.db"), extra)
	if err := fs.WriteString(path, content); err != nil {
		return "", err
	}
	return path, nil
}

// cliResult is the captured outcome of one proctrack invocation.
type cliResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// runProctrack runs the binary inside the sandbox with the scenario config.
func runProctrack(ctx *harness.Context, args ...string) (cliResult, error) {
	bin, err := findProctrackBinary()
	if err != nil {
		return cliResult{}, err
	}
	if configPath := ctx.GetString("config"); configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd := ctx.Command(bin, args...)
	result := cmd.Run()
	ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
	return cliResult{Stdout: result.Stdout, Stderr: result.Stderr, ExitCode: result.ExitCode}, nil
}

// mustSucceed runs proctrack and fails unless it exits 0.
func mustSucceed(ctx *harness.Context, args ...string) (string, error) {
	res, err := runProctrack(ctx, args...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("proctrack %v exited %d: %s", args, res.ExitCode, res.Stderr)
	}
	return res.Stdout, nil
}

// setupStep writes the sandbox config and remembers its path.
func setupStep() harness.Step {
	return harness.NewStep("Write sandbox configuration", func(ctx *harness.Context) error {
		path, err := writeSandboxConfig(ctx, "")
		if err != nil {
			return err
		}
		ctx.Set("config", path)
		return nil
	})
}
