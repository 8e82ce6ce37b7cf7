// Package output renders command results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gopkg.in/yaml.v3"
)

// Format selects how results are written.
type Format string

const (
	FormatAuto  Format = "auto"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json or yaml)", s)
	}
}

// Resolve turns FormatAuto into a table on a terminal and JSON otherwise.
func (f Format) Resolve(w io.Writer) Format {
	if f != FormatAuto {
		return f
	}
	if file, ok := w.(*os.File); ok && isatty.IsTerminal(file.Fd()) {
		return FormatTable
	}
	return FormatJSON
}

// Table is the tabular form of a result.
type Table struct {
	Header []string
	Rows   [][]string
	Footer []string
}

// Write renders data in the requested format. The table is only used for
// FormatTable.
func Write(w io.Writer, f Format, data any, table Table) error {
	switch f.Resolve(w) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return writeTable(w, table)
	}
}

func writeTable(w io.Writer, t Table) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeaderAutoFormat(tw.Off),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)
	table.Header(t.Header)
	for _, row := range t.Rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}
	if len(t.Footer) > 0 {
		table.Footer(t.Footer)
	}
	return table.Render()
}

// MB formats megabytes, switching to GB at a thousand.
func MB(v float64) string {
	if v >= 1000 || v <= -1000 {
		return fmt.Sprintf("%.2f GB", v/1000)
	}
	return fmt.Sprintf("%.0f MB", v)
}

// Level colors an alert level for terminal output.
func Level(level string) string {
	switch level {
	case "warning":
		return color.YellowString(level)
	case "critical", "exceeded":
		return color.RedString(level)
	default:
		return color.GreenString(level)
	}
}
