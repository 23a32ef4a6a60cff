package data

import "encoding/json"

// Record is one line of a table resource: an ordered list of fields
type Record []string

// Copy creates a copy of the record to prevent mutation
func (r Record) Copy() Record {
	c := make(Record, len(r))
	copy(c, r)
	return c
}

// Field returns the field at i, or "" when the record is shorter than i+1.
// Legacy resources may hold rows whose width differs from the header.
func (r Record) Field(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// MarshalJSON encodes a nil record as an empty array
func (r Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(r))
}
