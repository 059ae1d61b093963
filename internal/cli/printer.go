package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

// Printer writes command output. Errors go to err, everything else to out.
type Printer struct {
	out io.Writer
	err io.Writer
}

// NewPrinter creates a printer over the given writers.
func NewPrinter(out, err io.Writer) *Printer {
	return &Printer{out: out, err: err}
}

// Success prints a message in green with a checkmark prefix.
func (p *Printer) Success(format string, a ...any) {
	green.Fprintf(p.out, "✓ %s\n", fmt.Sprintf(format, a...))
}

// Info prints a plain line.
func (p *Printer) Info(format string, a ...any) {
	fmt.Fprintf(p.out, format+"\n", a...)
}

// Step prints an emphasised line.
func (p *Printer) Step(format string, a ...any) {
	cyan.Fprintf(p.out, "→ %s\n", fmt.Sprintf(format, a...))
}

// Warning prints a message in yellow.
func (p *Printer) Warning(format string, a ...any) {
	yellow.Fprintf(p.err, "⚠️  %s\n", fmt.Sprintf(format, a...))
}

// Muted prints a de-emphasised line.
func (p *Printer) Muted(format string, a ...any) {
	faint.Fprintf(p.out, "%s\n", fmt.Sprintf(format, a...))
}

// Error prints a formatted error with suggestions and returns a short error for cobra.
func (p *Printer) Error(title, explanation string, suggestions ...string) error {
	red.Fprintf(p.err, "%s\n", title)
	if explanation != "" {
		fmt.Fprintf(p.err, "\n%s\n", explanation)
	}
	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(p.err, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(p.err, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(p.err, "  %d. %s\n", i+1, s)
		}
	}
	return fmt.Errorf("%s", title)
}

// Table renders rows under header.
func (p *Printer) Table(header []string, rows [][]string) error {
	table := tablewriter.NewWriter(p.out)
	h := make([]any, len(header))
	for i, v := range header {
		h[i] = v
	}
	table.Header(h...)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// Heading prints a bold section title.
func (p *Printer) Heading(title string) {
	fmt.Fprintf(p.out, "\n%s\n%s\n", color.New(color.Bold).Sprint(title), strings.Repeat("─", len([]rune(title))))
}
