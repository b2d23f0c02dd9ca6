package cmd

import (
	"bufio"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"time"

	"github.com/grovetools/proctrack/logging"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		Long: `Show the daemon log of a day.

Examples:
  # Follow today's daemon log
  proctrack logs -f

  # Last 50 lines of another day
  proctrack logs -n 50 --date 2024-05-01`,
		Args: cobra.NoArgs,
		RunE: runLogs,
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().IntP("lines", "n", 0, "Number of lines to show from the end of the log (default: all)")
	cmd.Flags().String("component", "proctrackd", "Component whose log is shown")
	cmd.Flags().String("date", "", "Day of the log, YYYY-MM-DD (default: today)")

	return cmd
}

func runLogs(cmd *cobra.Command, args []string) error {
	follow, _ := cmd.Flags().GetBool("follow")
	lines, _ := cmd.Flags().GetInt("lines")
	component, _ := cmd.Flags().GetString("component")
	date, _ := cmd.Flags().GetString("date")

	day := time.Now()
	if date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			return invalidInput("date", date, "expected YYYY-MM-DD")
		}
		day = parsed
	}
	path := logging.LogFilePath(component, day)
	out := cmd.OutOrStdout()

	_, statErr := os.Stat(path)
	exists := statErr == nil
	if !exists && !follow {
		fmt.Fprintf(out, "No log at %s\n", path)
		return nil
	}

	if exists {
		if err := printLastLines(out, path, lines); err != nil {
			return err
		}
	}
	if !follow {
		return nil
	}

	location := &tail.SeekInfo{Offset: 0, Whence: io.SeekStart}
	if exists {
		location.Whence = io.SeekEnd
	}
	t, err := tail.TailFile(path, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Location: location,
		Logger:   stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return fmt.Errorf("failed to follow %s: %w", path, err)
	}
	defer t.Cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			fmt.Fprintln(out, line.Text)
		}
	}
}

// printLastLines writes the final n lines of path, or all of it when n <= 0.
func printLastLines(out io.Writer, path string, n int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var ring []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if n <= 0 {
			fmt.Fprintln(out, scanner.Text())
			continue
		}
		ring = append(ring, scanner.Text())
		if len(ring) > n {
			ring = ring[1:]
		}
	}
	for _, line := range ring {
		fmt.Fprintln(out, line)
	}
	return scanner.Err()
}
