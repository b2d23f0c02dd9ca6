package table

import (
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/grovetools/proctrack/tui/theme"
)

// Options configures a styled table.
type Options struct {
	Bordered      bool
	AlternateRows bool
	// RightAlign lists data columns rendered flush right, such as durations.
	RightAlign map[int]bool
	// RowStyle, when set, styles individual data rows (e.g. active groups).
	RowStyle func(row int) lipgloss.Style
	Theme    *theme.Theme
}

// DefaultOptions returns the default table options
func DefaultOptions() Options {
	return Options{
		Bordered:      true,
		AlternateRows: theme.DefaultTheme.UseAlternatingRows,
		Theme:         theme.DefaultTheme,
	}
}

// New creates a lipgloss table with the theme's styling applied.
func New(opts Options) *ltable.Table {
	if opts.Theme == nil {
		opts.Theme = theme.DefaultTheme
	}
	t := opts.Theme

	table := ltable.New()
	if opts.Bordered {
		table = table.
			Border(lipgloss.RoundedBorder()).
			BorderStyle(t.TableBorder)
	} else {
		table = table.Border(lipgloss.HiddenBorder())
	}

	return table.StyleFunc(func(row, col int) lipgloss.Style {
		if row == ltable.HeaderRow {
			return t.TableHeader.Padding(0, 1)
		}

		style := t.TableRow.Padding(0, 1)
		if opts.RowStyle != nil {
			style = style.Inherit(opts.RowStyle(row))
		}
		if opts.AlternateRows && row%2 == 1 {
			style = style.Faint(true)
		}
		if opts.RightAlign[col] {
			style = style.Align(lipgloss.Right)
		}
		return style
	})
}

// SimpleTable renders a bordered table with headers and rows.
func SimpleTable(headers []string, rows [][]string) string {
	return New(DefaultOptions()).
		Headers(headers...).
		Rows(rows...).
		String()
}

// StatusTable renders label/value pairs without borders.
func StatusTable(items [][]string) string {
	opts := DefaultOptions()
	opts.Bordered = false
	opts.AlternateRows = false
	table := New(opts)

	for _, item := range items {
		if len(item) >= 2 {
			label := theme.DefaultTheme.Muted.Render(item[0] + ":")
			table = table.Row(label, item[1])
		}
	}

	return table.String()
}
