package formatting

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	kstrings "kubeship/pkg/strings"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
	}
}

// FormatData renders Tabular values and string maps as tables. Anything
// else falls back to YAML.
func (f *TableFormatter) FormatData(data interface{}) error {
	switch d := data.(type) {
	case Tabular:
		return f.formatTabular(d)
	case map[string]string:
		return f.formatObjectData(d)
	case string:
		_, err := fmt.Fprintln(f.options.writer(), d)
		return err
	default:
		return NewYAMLFormatter(f.options).FormatData(data)
	}
}

// SetOptions updates the formatter options
func (f *TableFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *TableFormatter) GetOptions() Options {
	return f.options
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.options.writer())
	if f.options.Quiet {
		t.SetStyle(table.StyleLight)
		t.Style().Options.DrawBorder = false
		t.Style().Options.SeparateColumns = false
	} else {
		t.SetStyle(table.StyleRounded)
	}
	return t
}

func (f *TableFormatter) header(s string) interface{} {
	if f.options.Color {
		return text.FgHiCyan.Sprint(s)
	}
	return s
}

func (f *TableFormatter) formatTabular(d Tabular) error {
	rows := d.Rows()
	if len(rows) == 0 {
		return f.formatEmptyMessage("No items found")
	}

	t := f.createTable()
	headers := make(table.Row, 0, len(d.Headers()))
	for _, h := range d.Headers() {
		headers = append(headers, f.header(h))
	}
	t.AppendHeader(headers)

	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = v
		}
		t.AppendRow(row)
	}
	t.Render()
	return nil
}

// formatObjectData formats a map as sorted key-value pairs
func (f *TableFormatter) formatObjectData(data map[string]string) error {
	if len(data) == 0 {
		return f.formatEmptyMessage("No items found")
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := f.createTable()
	t.AppendHeader(table.Row{f.header("KEY"), f.header("VALUE")})
	for _, k := range keys {
		t.AppendRow(table.Row{k, kstrings.Truncate(data[k], kstrings.DefaultCellMaxLen)})
	}
	t.Render()
	return nil
}

func (f *TableFormatter) formatEmptyMessage(message string) error {
	if f.options.Color {
		message = text.FgYellow.Sprint(message)
	}
	_, err := fmt.Fprintln(f.options.writer(), message)
	return err
}
