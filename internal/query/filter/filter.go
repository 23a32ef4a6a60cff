// Package filter resolves SELECT projections and evaluates WHERE predicates
// over loaded table rows.
package filter

import (
	"github.com/leengari/flatsql/internal/domain/data"
)

// ResultSet is the output of a selection: projected header plus matching rows
type ResultSet struct {
	Table   string
	Columns []string
	Rows    []data.Record
}

// Apply projects and filters the rows of table.
//
// An unknown projected column fails with a not-found error and no result.
// A malformed predicate yields an empty result set (header kept) together
// with the predicate error, so callers can still render the header.
func Apply(table *data.Table, columns []string, where string, hasWhere bool) (*ResultSet, error) {
	proj, err := ResolveProjection(table, columns)
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{
		Table:   table.Name,
		Columns: proj.Columns,
		Rows:    []data.Record{},
	}

	var pred *BoundPredicate
	if hasWhere {
		p, err := ParsePredicate(where)
		if err != nil {
			return rs, err
		}
		pred, err = p.Bind(table)
		if err != nil {
			return rs, err
		}
	}

	for _, row := range table.Rows {
		if pred != nil && !pred.Match(row) {
			continue
		}
		rs.Rows = append(rs.Rows, proj.Project(row))
	}
	return rs, nil
}
