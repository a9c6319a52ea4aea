// Package report renders calculation results for the command line, either as
// aligned tables (styled with Lip Gloss on terminals) or as JSON.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Format selects the output encoding.
type Format string

// Output formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// DefaultPrecision is the number of decimals used for emission values.
const DefaultPrecision = 2

const (
	tabMinWidth = 0
	tabWidth    = 4
	tabPadding  = 2
	// underlineWidth is the width of the plain-text title rule.
	underlineWidth = 48
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat parses a --output value. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q (want table or json)", ErrUnknownFormat, s)
	}
}

// Renderer writes results to w in the configured format.
type Renderer struct {
	w         io.Writer
	format    Format
	precision int
	styled    bool
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithPrecision sets the decimals shown for emission values.
func WithPrecision(p int) Option {
	return func(r *Renderer) {
		if p >= 0 {
			r.precision = p
		}
	}
}

// WithStyle forces styled output on or off regardless of the writer.
func WithStyle(styled bool) Option {
	return func(r *Renderer) { r.styled = styled }
}

// New creates a Renderer. Table output is styled when w is a terminal.
func New(w io.Writer, format Format, opts ...Option) *Renderer {
	r := &Renderer{
		w:         w,
		format:    format,
		precision: DefaultPrecision,
		styled:    isWriterTerminal(w),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Format returns the renderer's output format.
func (r *Renderer) Format() Format {
	return r.format
}

func isWriterTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

func (r *Renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

func titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
}

func sectionStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
}

func boxStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
}

// title writes a report heading.
func (r *Renderer) title(text string) {
	if r.styled {
		fmt.Fprintln(r.w, titleStyle().Render(text))
		return
	}
	fmt.Fprintln(r.w, text)
	fmt.Fprintln(r.w, strings.Repeat("=", min(len(text), underlineWidth)))
}

// section writes a sub-heading preceded by a blank line.
func (r *Renderer) section(text string) {
	fmt.Fprintln(r.w)
	if r.styled {
		fmt.Fprintln(r.w, sectionStyle().Render(text))
		return
	}
	fmt.Fprintln(r.w, text)
}

// highlight writes a one-line callout, boxed on terminals.
func (r *Renderer) highlight(text string) {
	if r.styled {
		fmt.Fprintln(r.w, boxStyle().Render(text))
		return
	}
	fmt.Fprintln(r.w, text)
}

// table writes header and rows as tab-aligned columns.
func (r *Renderer) table(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(r.w, tabMinWidth, tabWidth, tabPadding, ' ', 0)
	if len(header) > 0 {
		fmt.Fprintln(tw, strings.Join(header, "\t"))
	}
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}
	return nil
}

// fields writes label/value pairs as a two-column table.
func (r *Renderer) fields(pairs [][2]string) error {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{p[0] + ":", p[1]})
	}
	return r.table(nil, rows)
}
