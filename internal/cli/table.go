package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))

// Table writes tab-aligned rows under a bold header. Call Flush when done.
type Table struct {
	w *tabwriter.Writer
}

// NewTable writes the header row and returns the table.
func NewTable(w io.Writer, headers ...string) *Table {
	t := &Table{w: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	styled := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = headerStyle.Render(h)
	}
	_, _ = fmt.Fprintln(t.w, strings.Join(styled, "\t"))
	return t
}

// Row writes one row.
func (t *Table) Row(cells ...string) {
	_, _ = fmt.Fprintln(t.w, strings.Join(cells, "\t"))
}

// Flush aligns and writes the buffered rows.
func (t *Table) Flush() error {
	return t.w.Flush()
}
