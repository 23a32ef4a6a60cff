package executor

import (
	"time"

	"github.com/leengari/flatsql/internal/domain/data"
)

// Result is what one statement produced.
//
// Columns is non-nil only for selections; a selection that matched nothing
// still carries its header. Children holds the results of statements
// replayed by a COMMIT.
type Result struct {
	Statement    string        `json:"statement,omitempty"`
	Columns      []string      `json:"columns,omitempty"`
	Rows         []data.Record `json:"rows,omitempty"`
	Message      string        `json:"message,omitempty"`
	RowsAffected int           `json:"rows_affected"`
	Queued       bool          `json:"queued,omitempty"`
	Elapsed      time.Duration `json:"elapsed_ns"`
	Error        string        `json:"error,omitempty"`
	Children     []*Result     `json:"children,omitempty"`
}

// IsResultSet reports whether the result carries a header and rows
func (r *Result) IsResultSet() bool {
	return r != nil && r.Columns != nil
}
