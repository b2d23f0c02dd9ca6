package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/proctrack/tui/theme"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// HelpExtrasFunc renders additional help sections after EXAMPLES.
type HelpExtrasFunc func(out io.Writer, t *theme.Theme)

var (
	helpExtras   = make(map[*cobra.Command]HelpExtrasFunc)
	helpExtrasMu sync.RWMutex
)

const (
	maxWidth = 72
	minWidth = 40
)

// SetStyledHelp installs the styled help renderer on cmd.
func SetStyledHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelpFunc)
}

// SetStyledHelpWithExtras installs the styled help renderer and registers
// extras to be printed at the end of cmd's help.
func SetStyledHelpWithExtras(cmd *cobra.Command, extras HelpExtrasFunc) {
	helpExtrasMu.Lock()
	helpExtras[cmd] = extras
	helpExtrasMu.Unlock()
	cmd.SetHelpFunc(styledHelpFunc)
}

// ApplyStyledHelpRecursive installs styled help on cmd and every subcommand.
// Usage output on errors is suppressed; the error handler prints a
// remediation hint instead.
func ApplyStyledHelpRecursive(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelpFunc)
	cmd.SetUsageFunc(func(*cobra.Command) error { return nil })
	for _, sub := range cmd.Commands() {
		ApplyStyledHelpRecursive(sub)
	}
}

type helpPrinter struct {
	out   io.Writer
	theme *theme.Theme
	width int

	title   lipgloss.Style
	section lipgloss.Style
	name    lipgloss.Style
	sub     lipgloss.Style
	flag    lipgloss.Style
	italic  lipgloss.Style
}

func newHelpPrinter(out io.Writer, t *theme.Theme) *helpPrinter {
	return &helpPrinter{
		out:     out,
		theme:   t,
		width:   terminalWidth() - 2,
		title:   lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Orange),
		section: lipgloss.NewStyle().Italic(true).Foreground(t.Colors.Orange),
		name:    lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Cyan),
		sub:     lipgloss.NewStyle().Foreground(t.Colors.Green),
		flag:    lipgloss.NewStyle().Foreground(t.Colors.Violet),
		italic:  lipgloss.NewStyle().Italic(true),
	}
}

func styledHelpFunc(cmd *cobra.Command, args []string) {
	p := newHelpPrinter(cmd.OutOrStdout(), theme.DefaultTheme)

	description, examples := splitExamples(cmd.Long)
	if cmd.Example != "" {
		examples = cmd.Example
	}

	p.header(cmd, description)
	p.usage(cmd)
	p.commands(cmd)
	p.flags(cmd)
	p.examples(cmd, examples)

	helpExtrasMu.RLock()
	extras := helpExtras[cmd]
	helpExtrasMu.RUnlock()
	if extras != nil {
		extras(p.out, p.theme)
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(p.out, "\n Use \"%s [command] --help\" for more information.\n", cmd.CommandPath())
	}
}

func (p *helpPrinter) line(s string) {
	fmt.Fprintln(p.out, " "+s)
}

func (p *helpPrinter) heading(s string) {
	fmt.Fprintln(p.out)
	p.line(p.section.Render(s))
}

func (p *helpPrinter) header(cmd *cobra.Command, description string) {
	p.line(p.title.Render(strings.ToUpper(cmd.CommandPath())))
	if cmd.Short != "" {
		for _, l := range strings.Split(wrapText(cmd.Short, p.width), "\n") {
			p.line(p.italic.Render(l))
		}
	}
	// Long descriptions conventionally repeat Short as their first line.
	description = strings.TrimSpace(strings.TrimPrefix(description, cmd.Short))
	description = strings.TrimPrefix(description, ".")
	if description = strings.TrimSpace(description); description != "" {
		fmt.Fprintln(p.out)
		for _, l := range strings.Split(wrapText(description, p.width), "\n") {
			p.line(l)
		}
	}
}

func (p *helpPrinter) usage(cmd *cobra.Command) {
	if !cmd.Runnable() && !cmd.HasSubCommands() {
		return
	}
	p.heading("USAGE")
	if cmd.Runnable() {
		p.line(cmd.UseLine())
	}
	if cmd.HasSubCommands() {
		p.line(cmd.CommandPath() + " [command]")
	}
}

func (p *helpPrinter) commands(cmd *cobra.Command) {
	if !cmd.HasAvailableSubCommands() {
		return
	}
	var subs []*cobra.Command
	width := 0
	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() {
			continue
		}
		subs = append(subs, sub)
		if n := len(sub.Name()); n > width {
			width = n
		}
	}
	p.heading("COMMANDS")
	for _, sub := range subs {
		pad := strings.Repeat(" ", width-len(sub.Name()))
		p.line(fmt.Sprintf("%s%s  %s", p.name.Render(sub.Name()), pad, sub.Short))
	}
}

// flags lists local flags in detail on leaf commands and compactly on
// parents. Inherited flags always get the compact form.
func (p *helpPrinter) flags(cmd *cobra.Command) {
	local := visibleFlags(cmd.LocalFlags())
	inherited := visibleFlags(cmd.InheritedFlags())

	if len(local) > 0 {
		if cmd.HasAvailableSubCommands() {
			fmt.Fprintln(p.out)
			p.line(p.theme.Muted.Render("Flags: " + compactFlags(local)))
		} else {
			p.heading("FLAGS")
			width := 0
			for _, f := range local {
				if n := len(flagName(f)); n > width {
					width = n
				}
			}
			for _, f := range local {
				name := flagName(f)
				usage := f.Usage
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "[]" && f.DefValue != "0s" {
					usage += p.theme.Muted.Render(fmt.Sprintf(" (default: %s)", f.DefValue))
				}
				p.line(fmt.Sprintf("%s%s  %s", p.flag.Render(name), strings.Repeat(" ", width-len(name)), usage))
			}
		}
	}

	if len(inherited) > 0 {
		fmt.Fprintln(p.out)
		p.line(p.theme.Muted.Render("Global flags: " + compactFlags(inherited)))
	}
}

func (p *helpPrinter) examples(cmd *cobra.Command, examples string) {
	if examples == "" {
		return
	}
	p.heading("EXAMPLES")
	for _, l := range strings.Split(examples, "\n") {
		trimmed := strings.TrimSpace(l)
		switch {
		case trimmed == "":
			fmt.Fprintln(p.out)
		case strings.HasPrefix(trimmed, "#"):
			p.line(p.theme.Muted.Render(trimmed))
		default:
			p.line("  " + p.styleCommandLine(trimmed, cmd.Root()))
		}
	}
}

// styleCommandLine highlights the program name, the subcommands it resolves
// to, and flags in an example invocation.
func (p *helpPrinter) styleCommandLine(line string, root *cobra.Command) string {
	parts := strings.Fields(line)
	var cursor *cobra.Command
	for i, part := range parts {
		switch {
		case i == 0 && part == root.Name():
			parts[i] = p.name.Render(part)
			cursor = root
		case strings.HasPrefix(part, "-"):
			parts[i] = p.flag.Render(part)
		case cursor != nil:
			if sub := findSubcommand(cursor, part); sub != nil {
				parts[i] = p.sub.Render(part)
				cursor = sub
			} else {
				cursor = nil
			}
		}
	}
	return strings.Join(parts, " ")
}

func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, sub := range cmd.Commands() {
		if sub.Name() == name || sub.HasAlias(name) {
			return sub
		}
	}
	return nil
}

// splitExamples separates an "Examples:" block from a long description.
func splitExamples(long string) (description, examples string) {
	for _, marker := range []string{"\nExamples:\n", "\nExample:\n"} {
		if idx := strings.Index(long, marker); idx != -1 {
			return strings.TrimSpace(long[:idx]), strings.TrimSpace(long[idx+len(marker):])
		}
	}
	return strings.TrimSpace(long), ""
}

func visibleFlags(set *pflag.FlagSet) []*pflag.Flag {
	var flags []*pflag.Flag
	set.VisitAll(func(f *pflag.Flag) {
		if !f.Hidden {
			flags = append(flags, f)
		}
	})
	return flags
}

func compactFlags(flags []*pflag.Flag) string {
	names := make([]string, 0, len(flags))
	for _, f := range flags {
		if f.Shorthand != "" {
			names = append(names, fmt.Sprintf("-%s/--%s", f.Shorthand, f.Name))
		} else {
			names = append(names, "--"+f.Name)
		}
	}
	return strings.Join(names, ", ")
}

func flagName(f *pflag.Flag) string {
	if f.Shorthand != "" {
		return fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	}
	return "    --" + f.Name
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < minWidth || width > maxWidth {
		return maxWidth
	}
	return width
}

// wrapText wraps each paragraph of text to width, keeping existing breaks.
func wrapText(text string, width int) string {
	if width <= 0 {
		width = maxWidth
	}
	var out []string
	for _, paragraph := range strings.Split(text, "\n") {
		if len(paragraph) <= width {
			out = append(out, paragraph)
			continue
		}
		var line string
		for _, word := range strings.Fields(paragraph) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= width:
				line += " " + word
			default:
				out = append(out, line)
				line = word
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
