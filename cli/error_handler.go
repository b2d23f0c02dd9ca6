package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/tui/theme"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints err with a remediation hint for its code and returns it.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}

	t := theme.DefaultTheme
	fmt.Fprintf(h.Out, "%s %v\n", t.Error.Render("Error:"), err)
	if hint := Remediation(err); hint != "" {
		fmt.Fprintln(h.Out, t.Muted.Render(hint))
	}

	if h.Verbose {
		if ptErr, ok := err.(*errors.ProcTrackError); ok {
			fmt.Fprintf(h.Out, "\nError details:\n%s\n", ptErr.ToJSON())
		}
	}
	return err
}

// Remediation returns the hint shown below an error, or "" when there is none.
func Remediation(err error) string {
	ptErr := asProcTrackError(err)

	switch errors.GetCode(err) {
	case errors.ErrCodeMissingDependency:
		if ptErr != nil {
			if hint, ok := ptErr.Details["hint"].(string); ok && hint != "" {
				return hint
			}
			return fmt.Sprintf("Install '%v' and make sure it is on PATH.", ptErr.Details["tool"])
		}
		return "Install the missing helper and make sure it is on PATH."

	case errors.ErrCodePlatformUnsupported:
		return "Process tracking is available on Linux, macOS and Windows."

	case errors.ErrCodeDaemonNotRunning:
		return "Start it with 'proctrack daemon start'."

	case errors.ErrCodeConfigNotFound:
		return "Run 'proctrack paths' to see where proctrack.yml is looked up."

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		if ptErr != nil {
			if field, ok := ptErr.Details["field"]; ok {
				return fmt.Sprintf("Check '%v' in proctrack.yml. 'proctrack config schema' prints the accepted shape.", field)
			}
		}
		return "'proctrack config schema' prints the accepted shape of proctrack.yml."

	case errors.ErrCodeNotFound:
		if ptErr != nil {
			switch ptErr.Details["kind"] {
			case "group":
				return "Run 'proctrack groups ls' to see available groups."
			case "rule":
				return "Run 'proctrack rules ls' to see available rules."
			}
		}
		return ""

	case errors.ErrCodeConflict:
		if ptErr != nil && ptErr.Details["kind"] == "daemon" {
			return "Stop it with 'proctrack daemon stop' first."
		}
		return "Names and rules must be unique within proctrack."

	case errors.ErrCodeInvalidPattern:
		return "Regex rules use Go RE2 syntax."

	case errors.ErrCodePersistenceFailed:
		return "Check that the database path is writable. 'proctrack paths' shows where it lives."

	default:
		return ""
	}
}

func asProcTrackError(err error) *errors.ProcTrackError {
	for err != nil {
		if ptErr, ok := err.(*errors.ProcTrackError); ok {
			return ptErr
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}
