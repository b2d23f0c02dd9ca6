// Package process enumerates running, windowed processes and normalizes them
// into snapshots. Platform specifics stay behind the Provider interface.
package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/models"
	"github.com/sirupsen/logrus"
)

// Provider produces one normalized snapshot per call. Implementations keep no
// state between calls.
type Provider interface {
	Poll(ctx context.Context) (models.Snapshot, error)
}

// Preflighter is implemented by providers that depend on an external helper.
// Preflight fails with a MISSING_DEPENDENCY error when the helper is absent.
type Preflighter interface {
	Preflight() error
}

// Options configures the platform provider.
type Options struct {
	// Exclude holds additional executable glob patterns to drop.
	Exclude []string
	// IncludeSelf keeps the tracker's own process in snapshots.
	IncludeSelf bool
	Logger      *logrus.Entry
}

// New returns the provider for the current platform. It fails with
// PLATFORM_UNSUPPORTED when no implementation exists.
func New(opts Options) (Provider, error) {
	filter, err := NewExclusionFilter(defaultDenylist(), opts.Exclude)
	if err != nil {
		return nil, err
	}
	if !opts.IncludeSelf {
		filter.ExcludeSelf(os.Getpid())
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return newPlatformProvider(filter, logger)
}

// runFunc executes a helper command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// lookPathFunc resolves a helper binary.
type lookPathFunc func(file string) (string, error)

// runCommand runs a helper command bound to ctx so Stop can abandon it.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.CollectionFailed(name, err)
	}
	if len(strings.TrimSpace(string(out))) == 0 {
		return nil, errors.CollectionFailed(name, errEmptyOutput)
	}
	return out, nil
}

var errEmptyOutput = fmt.Errorf("command returned no output")
