package render

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leengari/flatsql/internal/domain/data"
	"github.com/leengari/flatsql/internal/executor"
)

func selection() *executor.Result {
	return &executor.Result{
		Statement: "SELECT * FROM person;",
		Columns:   []string{"id", "name"},
		Rows:      []data.Record{{"1", "Alice"}, {"2", "Bob, Jr"}},
		Message:   "Returned 2 rows",
		Elapsed:   3 * time.Millisecond,
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"":         FormatTable,
		"TABLE":    FormatTable,
		"json":     FormatJSON,
		"csv":      FormatCSV,
		"md":       FormatMarkdown,
		"markdown": FormatMarkdown,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Result(&buf, selection(), FormatTable, Options{ShowElapsed: true}))

	out := buf.String()
	assert.Contains(t, out, "id")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "(2 rows)")
	assert.Contains(t, out, "Query execution time: 3 ms")
}

func TestTableEmptyKeepsHeader(t *testing.T) {
	var buf bytes.Buffer
	res := &executor.Result{Columns: []string{"id", "name"}, Rows: []data.Record{}, Error: "predicate error: invalid operator: >>"}
	require.NoError(t, Result(&buf, res, FormatTable, Options{}))

	out := buf.String()
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "(0 rows)")
	assert.Contains(t, out, "Error: predicate error")
}

func TestMessageOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Result(&buf, &executor.Result{Message: "Table 'person' dropped"}, FormatTable, Options{}))
	assert.Equal(t, "Table 'person' dropped\n", buf.String())
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Result(&buf, selection(), FormatCSV, Options{}))

	out := buf.String()
	assert.Contains(t, out, "id,name")
	assert.Contains(t, out, "1,Alice")
	assert.Contains(t, out, `"Bob, Jr"`)
	assert.NotContains(t, out, "rows)")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Result(&buf, selection(), FormatJSON, Options{}))

	var got struct {
		Columns []string   `json:"columns"`
		Rows    [][]string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []string{"id", "name"}, got.Columns)
	assert.Equal(t, [][]string{{"1", "Alice"}, {"2", "Bob, Jr"}}, got.Rows)
}

func TestChildrenRenderedFirst(t *testing.T) {
	var buf bytes.Buffer
	res := &executor.Result{
		Message:  "Transaction committed, 1 statement(s) applied",
		Children: []*executor.Result{{Message: "INSERT 1 into 'person'"}},
	}
	require.NoError(t, Result(&buf, res, FormatTable, Options{}))
	assert.Equal(t, "INSERT 1 into 'person'\nTransaction committed, 1 statement(s) applied\n", buf.String())
}

func TestNames(t *testing.T) {
	var buf bytes.Buffer
	Names(&buf, "table", []string{"person", "pet"})
	assert.Contains(t, buf.String(), "pet")
	assert.Contains(t, buf.String(), "(2 rows)")
}
