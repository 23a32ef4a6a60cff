package filter

import (
	"strings"

	"github.com/leengari/flatsql/internal/domain/data"
	dberrors "github.com/leengari/flatsql/internal/domain/errors"
)

// Projection is the resolved column list of a SELECT: header positions in
// output order plus the header names as written in the table
type Projection struct {
	Indexes []int
	Columns []string
}

// ResolveProjection maps requested column names onto header positions.
// Names are trimmed and matched case-insensitively. An empty request selects
// every column in header order.
func ResolveProjection(table *data.Table, requested []string) (*Projection, error) {
	header := table.Header

	if len(requested) == 0 {
		proj := &Projection{
			Indexes: make([]int, len(header)),
			Columns: make([]string, len(header)),
		}
		for i, col := range header {
			proj.Indexes[i] = i
			proj.Columns[i] = col
		}
		return proj, nil
	}

	proj := &Projection{
		Indexes: make([]int, 0, len(requested)),
		Columns: make([]string, 0, len(requested)),
	}
	for _, name := range requested {
		idx := IndexOf(header, name)
		if idx < 0 {
			return nil, dberrors.ColumnNotFound(strings.TrimSpace(name), table.Name)
		}
		proj.Indexes = append(proj.Indexes, idx)
		proj.Columns = append(proj.Columns, header[idx])
	}
	return proj, nil
}

// IndexOf returns the position of name in header ignoring case, or -1
func IndexOf(header data.Record, name string) int {
	target := strings.TrimSpace(name)
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), target) {
			return i
		}
	}
	return -1
}

// Project builds the output record for row
func (p *Projection) Project(row data.Record) data.Record {
	out := make(data.Record, len(p.Indexes))
	for i, idx := range p.Indexes {
		out[i] = row.Field(idx)
	}
	return out
}
