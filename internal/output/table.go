package output

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// TableData is tabular output.
type TableData struct {
	Headers []string
	Rows    []*TableRow
	// Shown instead of the table when there are no rows
	Empty string
}

// TableRow is one row of a table.
type TableRow struct {
	Cells []string
	Style RowStyle
}

// RowStyle colors a row.
type RowStyle int

const (
	StyleDefault RowStyle = iota
	StyleHeader
	StyleSeparator
	StyleSuccess
	StyleError
	StyleWarning
	StyleInfo
)

// NewTableData creates an empty table.
func NewTableData(headers ...string) *TableData {
	return &TableData{
		Headers: headers,
		Rows:    make([]*TableRow, 0),
		Empty:   "Nenhum registro encontrado.",
	}
}

// NewKeyValueTable creates a two column table without headers, used for
// details of a single record.
func NewKeyValueTable() *TableData {
	return &TableData{Rows: make([]*TableRow, 0)}
}

// AddRow appends a row.
func (td *TableData) AddRow(cells ...string) {
	td.Rows = append(td.Rows, &TableRow{Cells: cells})
}

// AddRowWithStyle appends a styled row.
func (td *TableData) AddRowWithStyle(cells []string, style RowStyle) {
	td.Rows = append(td.Rows, &TableRow{Cells: cells, Style: style})
}

// String renders the table without colors.
func (td *TableData) String() string {
	return td.Render(false)
}

// Render renders the table, coloring rows by style when colors is set.
func (td *TableData) Render(colors bool) string {
	if len(td.Rows) == 0 {
		return td.Empty
	}

	var builder strings.Builder
	w := tabwriter.NewWriter(&builder, 0, 0, 2, ' ', 0)

	// tabwriter counts escape codes as width, so colors are applied per
	// line after alignment
	styles := make([]RowStyle, 0, len(td.Rows)+2)

	if len(td.Headers) > 0 {
		fmt.Fprintln(w, strings.Join(td.Headers, "\t"))
		separators := make([]string, len(td.Headers))
		for i := range separators {
			separators[i] = strings.Repeat("-", len([]rune(td.Headers[i])))
		}
		fmt.Fprintln(w, strings.Join(separators, "\t"))
		styles = append(styles, StyleHeader, StyleSeparator)
	}

	for _, row := range td.Rows {
		fmt.Fprintln(w, strings.Join(row.Cells, "\t"))
		styles = append(styles, row.Style)
	}

	w.Flush()

	out := strings.TrimRight(builder.String(), "\n")
	if !colors {
		return out
	}

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if i < len(styles) {
			lines[i] = Colorize(true, styles[i], line)
		}
	}
	return strings.Join(lines, "\n")
}

// Colorize wraps s in the escape codes of style.
func Colorize(colors bool, style RowStyle, s string) string {
	if !colors {
		return s
	}
	switch style {
	case StyleHeader:
		return "\033[1;34m" + s + "\033[0m"
	case StyleSeparator:
		return "\033[1;90m" + s + "\033[0m"
	case StyleSuccess:
		return "\033[1;32m" + s + "\033[0m"
	case StyleError:
		return "\033[1;31m" + s + "\033[0m"
	case StyleWarning:
		return "\033[1;33m" + s + "\033[0m"
	case StyleInfo:
		return "\033[1;36m" + s + "\033[0m"
	default:
		return s
	}
}
