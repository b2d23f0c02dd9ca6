package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/grovetools/proctrack/cli"
	"github.com/grovetools/proctrack/config"
	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/internal/db"
	"github.com/grovetools/proctrack/logging"
	"github.com/grovetools/proctrack/pkg/profiling"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// pretty returns a status line writer bound to the command's stdout.
func pretty(cmd *cobra.Command) *logging.PrettyLogger {
	return logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
}

// startSpinner shows an activity indicator on stderr while a slow one-shot
// query runs. It is a no-op when stderr is not a terminal or output is JSON.
func startSpinner(cmd *cobra.Command, suffix string) (stop func()) {
	if cli.GetOptions(cmd).JSONOutput || !isatty.IsTerminal(os.Stderr.Fd()) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}

// openDB loads the configuration and opens the database it names.
func openDB(cmd *cobra.Command) (*config.Config, *db.DB, error) {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	defer profiling.Start("db.Open").Stop()
	database, err := db.Open(cfg.Database.Path, cfg.BusyTimeout())
	if err != nil {
		return nil, nil, err
	}
	return cfg, database, nil
}

// withDB runs fn against the configured database and closes it afterwards.
func withDB(cmd *cobra.Command, fn func(ctx context.Context, database *db.DB) error) error {
	_, database, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(cmd.Context(), database)
}

// parseTime accepts epoch milliseconds, RFC 3339 or a local YYYY-MM-DD date
// and returns epoch milliseconds.
func parseTime(flag, value string, now time.Time) (int64, error) {
	value = strings.TrimSpace(value)
	switch value {
	case "":
		return 0, nil
	case "now":
		return now.UnixMilli(), nil
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		if ms < 0 {
			return 0, invalidInput(flag, value, "must not be negative")
		}
		return ms, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UnixMilli(), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", value, now.Location()); err == nil {
		return t.UnixMilli(), nil
	}
	return 0, invalidInput(flag, value, "expected epoch milliseconds, RFC 3339 or YYYY-MM-DD")
}

func invalidInput(field, value, reason string) error {
	return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("invalid %s %q: %s", field, value, reason)).
		WithDetail("field", field)
}
