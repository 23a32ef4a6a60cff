// Package render writes statement results for people and for programs.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leengari/flatsql/internal/executor"
)

// Format selects how results are written
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts the names used on the command line
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json, csv or markdown)", s)
}

// Options tune table output
type Options struct {
	ShowElapsed bool
}

// Result writes res in the given format. Results of statements replayed by
// a commit are written before the commit's own summary.
func Result(w io.Writer, res *executor.Result, format Format, opts Options) error {
	if res == nil {
		return nil
	}
	if format == FormatJSON {
		return renderJSON(w, res)
	}

	for _, child := range res.Children {
		if err := Result(w, child, format, opts); err != nil {
			return err
		}
	}

	if res.IsResultSet() {
		if err := renderRows(w, res, format); err != nil {
			return err
		}
	} else if res.Message != "" && format == FormatTable {
		_, _ = fmt.Fprintln(w, res.Message)
	}

	if res.Error != "" && format == FormatTable {
		_, _ = fmt.Fprintf(w, "Error: %s\n", res.Error)
	}
	if opts.ShowElapsed && format == FormatTable {
		_, _ = fmt.Fprintf(w, "Query execution time: %d ms\n", res.Elapsed.Milliseconds())
	}
	return nil
}

func renderRows(w io.Writer, res *executor.Result, format Format) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, rec := range res.Rows {
		row := make(table.Row, len(res.Columns))
		for i := range res.Columns {
			row[i] = rec.Field(i)
		}
		t.AppendRow(row)
	}

	switch format {
	case FormatCSV:
		t.RenderCSV()
	case FormatMarkdown:
		t.RenderMarkdown()
	default:
		t.Render()
		_, _ = fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
	}
	return nil
}

func renderJSON(w io.Writer, res *executor.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// Names writes a single-column listing such as the table catalog
func Names(w io.Writer, title string, names []string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{title})
	for _, n := range names {
		t.AppendRow(table.Row{n})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(names))
}
