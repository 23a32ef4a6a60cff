package data

// Table is the loaded content of a table resource.
// Header is record 0 of the resource; Rows are records 1..n.
type Table struct {
	Name   string
	Header Record
	Rows   []Record
}

// Records returns header followed by rows, the on-disk order
func (t *Table) Records() []Record {
	out := make([]Record, 0, len(t.Rows)+1)
	out = append(out, t.Header)
	out = append(out, t.Rows...)
	return out
}

// FromRecords splits resource records into header and rows
func FromRecords(name string, records []Record) *Table {
	t := &Table{Name: name}
	if len(records) == 0 {
		return t
	}
	t.Header = records[0]
	t.Rows = records[1:]
	return t
}
