// Package models provides the in-memory data structures shared by the
// snapshot stages.
package models

// Row is one flattened top-level member: its key and its textual value.
type Row struct {
	Key   string `json:"key" parquet:"key"`
	Value string `json:"value" parquet:"value"`
}

// Table is an ordered sequence of rows, one per top-level key of the source
// document, in the document's member order.
type Table struct {
	// Rows holds the flattened members in source order
	Rows []Row
}

// NewTable creates a table with room for capacity rows
func NewTable(capacity int) *Table {
	return &Table{Rows: make([]Row, 0, capacity)}
}

// Append adds a row at the end of the table
func (t *Table) Append(key, value string) {
	t.Rows = append(t.Rows, Row{Key: key, Value: value})
}

// Len returns the number of rows. A nil table has none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// IsEmpty reports whether the table is nil or has no rows
func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

// Keys returns the row keys in order
func (t *Table) Keys() []string {
	keys := make([]string, 0, t.Len())
	for _, r := range t.Rows {
		keys = append(keys, r.Key)
	}
	return keys
}

// Lookup returns the value stored under key
func (t *Table) Lookup(key string) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, r := range t.Rows {
		if r.Key == key {
			return r.Value, true
		}
	}
	return "", false
}
